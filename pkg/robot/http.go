package robot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-rover/internal/httpc"
)

// HTTPController implements Hardware using the motor daemon's HTTP API.
// The daemon owns the servo/motor HAT and the ultrasonic sensor; this
// controller is the only client allowed to drive it.
type HTTPController struct {
	BaseURL string

	client *http.Client
}

// NewHTTPController creates a controller for the daemon at baseURL
// (e.g. "http://127.0.0.1:8001").
func NewHTTPController(baseURL string) *HTTPController {
	return &HTTPController{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  httpc.NewClient(httpc.HardwareTimeout),
	}
}

// Acquire claims exclusive control of the hardware.
// The daemon answers 409 when another controller already holds it.
func (r *HTTPController) Acquire(ctx context.Context) error {
	state, err := r.DaemonStatus(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	if state != "running" {
		return fmt.Errorf("%w: daemon state %q", ErrNotConnected, state)
	}
	if err := r.post(ctx, "/api/acquire", nil); err != nil {
		return fmt.Errorf("acquire hardware: %w", err)
	}
	return nil
}

// DaemonStatus returns the motor daemon state.
func (r *HTTPController) DaemonStatus(ctx context.Context) (string, error) {
	data, err := httpc.GetBytes(ctx, r.client, r.BaseURL+"/api/daemon/status", 4096)
	if err != nil {
		return "", fmt.Errorf("daemon status request failed: %w", err)
	}

	var status struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(data, &status); err != nil {
		return "", fmt.Errorf("failed to decode daemon status: %w", err)
	}
	return status.State, nil
}

// DriveForward drives forward at speed percent.
func (r *HTTPController) DriveForward(speed int) error {
	return r.drive("forward", speed)
}

// DriveBackward drives backward at speed percent.
func (r *HTTPController) DriveBackward(speed int) error {
	return r.drive("backward", speed)
}

// Stop cuts drive power.
func (r *HTTPController) Stop() error {
	return r.drive("forward", 0)
}

// SetSteeringAngle turns the front wheels.
func (r *HTTPController) SetSteeringAngle(angle int) error {
	return r.post(context.Background(), "/api/steering", map[string]int{
		"angle": ClampSteering(angle),
	})
}

// SetCameraAngle points the camera mount.
func (r *HTTPController) SetCameraAngle(pan, tilt int) error {
	return r.post(context.Background(), "/api/camera", map[string]int{
		"pan":  ClampPan(pan),
		"tilt": ClampTilt(tilt),
	})
}

// ReadDistance reads the ultrasonic sensor.
func (r *HTTPController) ReadDistance() (float64, error) {
	data, err := httpc.GetBytes(context.Background(), r.client, r.BaseURL+"/api/distance", 4096)
	if err != nil {
		return 0, fmt.Errorf("distance request failed: %w", err)
	}

	var reading struct {
		Distance *float64 `json:"distance"`
	}
	if err := json.Unmarshal(data, &reading); err != nil {
		return 0, fmt.Errorf("failed to decode distance: %w", err)
	}
	if reading.Distance == nil || *reading.Distance < 0 {
		return 0, fmt.Errorf("sensor returned no echo")
	}
	return *reading.Distance, nil
}

// Close releases the hardware claim.
func (r *HTTPController) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return r.post(ctx, "/api/release", nil)
}

func (r *HTTPController) drive(direction string, speed int) error {
	return r.post(context.Background(), "/api/drive", map[string]interface{}{
		"direction": direction,
		"speed":     ClampSpeed(speed),
	})
}

// post sends a JSON command to the daemon.
func (r *HTTPController) post(ctx context.Context, path string, payload interface{}) error {
	body := []byte("{}")
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", path, err)
		}
	}

	if err := httpc.PostJSON(ctx, r.client, r.BaseURL+path, body); err != nil {
		return fmt.Errorf("%s request failed: %w", path, err)
	}
	return nil
}
