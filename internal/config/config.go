// Package config loads go-rover configuration.
// Values come from an optional YAML file, then environment variables,
// then command line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Default rover configuration. Distances are centimeters, angles degrees.
const (
	DefaultPort              = "8000"
	DefaultRoverID           = 1
	DefaultRoverName         = "rover_1"
	DefaultStartMode         = "manual"
	DefaultEventCapacity     = 500
	DefaultHeartbeatCapacity = 100

	DefaultSafeDistance    = 40
	DefaultDangerDistance  = 20
	DefaultMoveSpeed       = 15
	DefaultBackupSpeed     = 7
	DefaultTurnAngle       = 30
	DefaultBackupSteps     = 3
	DefaultDriveInterval   = 250 * time.Millisecond
	DefaultBackupStepDelay = 250 * time.Millisecond
	DefaultStatusInterval  = 500 * time.Millisecond

	DefaultBroadcastInterval = 5 * time.Second
	DefaultShutdownTimeout   = time.Second

	DefaultSnapshotDir  = "static/snapshots"
	DefaultMaxSnapshots = 10
)

// Rover identifies the rover and its startup behaviour.
type Rover struct {
	ID                int    `yaml:"id" env:"ROVER_ID"`
	Name              string `yaml:"name" env:"ROVER_NAME"`
	StartMode         string `yaml:"start_mode" env:"ROVER_START_MODE"`
	EventCapacity     int    `yaml:"event_capacity" env:"ROVER_EVENT_CAPACITY"`
	HeartbeatCapacity int    `yaml:"heartbeat_capacity" env:"ROVER_HEARTBEAT_CAPACITY"`
	// BatteryDrainPerSecond is the simulated drain in percent per second.
	BatteryDrainPerSecond float64 `yaml:"battery_drain_per_second" env:"ROVER_BATTERY_DRAIN"`
}

// Drive holds the obstacle avoidance tuning.
type Drive struct {
	SafeDistance    float64       `yaml:"safe_distance" env:"DRIVE_SAFE_DISTANCE"`
	DangerDistance  float64       `yaml:"danger_distance" env:"DRIVE_DANGER_DISTANCE"`
	MoveSpeed       int           `yaml:"move_speed" env:"DRIVE_MOVE_SPEED"`
	BackupSpeed     int           `yaml:"backup_speed" env:"DRIVE_BACKUP_SPEED"`
	TurnAngle       int           `yaml:"turn_angle" env:"DRIVE_TURN_ANGLE"`
	BackupSteps     int           `yaml:"backup_steps" env:"DRIVE_BACKUP_STEPS"`
	Interval        time.Duration `yaml:"interval" env:"DRIVE_INTERVAL"`
	BackupStepDelay time.Duration `yaml:"backup_step_delay" env:"DRIVE_BACKUP_STEP_DELAY"`
	StatusInterval  time.Duration `yaml:"status_interval" env:"DRIVE_STATUS_INTERVAL"`
}

// Hardware selects the actuation/sensing backend.
type Hardware struct {
	// Driver is "http" for the motor daemon or "sim" for the simulator.
	Driver string `yaml:"driver" env:"ROBOT_DRIVER"`
	URL    string `yaml:"url" env:"ROBOT_URL"`
}

// Server configures the HTTP/websocket surface.
type Server struct {
	Port              string        `yaml:"port" env:"PORT"`
	StaticDir         string        `yaml:"static_dir" env:"STATIC_DIR"`
	BroadcastInterval time.Duration `yaml:"broadcast_interval" env:"BROADCAST_INTERVAL"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// Camera configures frame capture.
type Camera struct {
	// FrameURL returns a single JPEG or an MJPEG stream.
	FrameURL string `yaml:"frame_url" env:"CAMERA_FRAME_URL"`
}

// Minio configures the S3 compatible snapshot store.
type Minio struct {
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL"`
	// Prefix is prepended to object keys so rovers can share a bucket.
	Prefix string `yaml:"prefix" env:"MINIO_PREFIX"`
}

// Snapshots configures image persistence.
type Snapshots struct {
	// Backend is "file" or "minio".
	Backend string `yaml:"backend" env:"SNAPSHOT_BACKEND"`
	Dir     string `yaml:"dir" env:"SNAPSHOT_DIR"`
	Keep    int    `yaml:"keep" env:"SNAPSHOT_KEEP"`
	Minio   Minio  `yaml:"minio"`
}

// Uplink configures forwarding of events and heartbeats to a ground station.
type Uplink struct {
	// Kind is "" (disabled), "http" or "mqtt".
	Kind              string        `yaml:"kind" env:"UPLINK_KIND"`
	URL               string        `yaml:"url" env:"UPLINK_URL"`
	Topic             string        `yaml:"topic" env:"UPLINK_TOPIC"`
	ClientID          string        `yaml:"client_id" env:"UPLINK_CLIENT_ID"`
	Username          string        `yaml:"username" env:"UPLINK_USERNAME"`
	Password          string        `yaml:"password" env:"UPLINK_PASSWORD"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" env:"UPLINK_HEARTBEAT_INTERVAL"`
}

// Config is the complete service configuration.
type Config struct {
	LogLevel  string    `yaml:"log_level" env:"LOG_LEVEL"`
	Rover     Rover     `yaml:"rover"`
	Drive     Drive     `yaml:"drive"`
	Hardware  Hardware  `yaml:"hardware"`
	Server    Server    `yaml:"server"`
	Camera    Camera    `yaml:"camera"`
	Snapshots Snapshots `yaml:"snapshots"`
	Uplink    Uplink    `yaml:"uplink"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Rover: Rover{
			ID:                    DefaultRoverID,
			Name:                  DefaultRoverName,
			StartMode:             DefaultStartMode,
			EventCapacity:         DefaultEventCapacity,
			HeartbeatCapacity:     DefaultHeartbeatCapacity,
			BatteryDrainPerSecond: 0.2,
		},
		Drive: Drive{
			SafeDistance:    DefaultSafeDistance,
			DangerDistance:  DefaultDangerDistance,
			MoveSpeed:       DefaultMoveSpeed,
			BackupSpeed:     DefaultBackupSpeed,
			TurnAngle:       DefaultTurnAngle,
			BackupSteps:     DefaultBackupSteps,
			Interval:        DefaultDriveInterval,
			BackupStepDelay: DefaultBackupStepDelay,
			StatusInterval:  DefaultStatusInterval,
		},
		Hardware: Hardware{
			Driver: "sim",
		},
		Server: Server{
			Port:              DefaultPort,
			StaticDir:         "./static",
			BroadcastInterval: DefaultBroadcastInterval,
			ShutdownTimeout:   DefaultShutdownTimeout,
		},
		Snapshots: Snapshots{
			Backend: "file",
			Dir:     DefaultSnapshotDir,
			Keep:    DefaultMaxSnapshots,
		},
		Uplink: Uplink{
			Topic:             "rovers",
			HeartbeatInterval: 10 * time.Second,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Rover.StartMode {
	case "manual", "autonomous":
	default:
		errs = append(errs, fmt.Errorf("rover.start_mode: unknown mode %q", c.Rover.StartMode))
	}
	if c.Rover.EventCapacity <= 0 {
		errs = append(errs, errors.New("rover.event_capacity must be positive"))
	}
	if c.Drive.SafeDistance <= c.Drive.DangerDistance {
		errs = append(errs, fmt.Errorf("drive: safe_distance (%v) must exceed danger_distance (%v)",
			c.Drive.SafeDistance, c.Drive.DangerDistance))
	}
	if c.Drive.Interval <= 0 || c.Drive.StatusInterval <= 0 {
		errs = append(errs, errors.New("drive: intervals must be positive"))
	}
	if c.Drive.BackupSteps < 0 || c.Drive.BackupStepDelay < 0 {
		errs = append(errs, errors.New("drive: backup_steps and backup_step_delay must not be negative"))
	}
	if c.Server.BroadcastInterval <= 0 {
		errs = append(errs, errors.New("server.broadcast_interval must be positive"))
	}
	switch c.Hardware.Driver {
	case "sim":
	case "http":
		if c.Hardware.URL == "" {
			errs = append(errs, errors.New("hardware.url is required for the http driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("hardware.driver: unknown driver %q", c.Hardware.Driver))
	}
	switch c.Snapshots.Backend {
	case "file":
	case "minio":
		if c.Snapshots.Minio.Endpoint == "" || c.Snapshots.Minio.Bucket == "" {
			errs = append(errs, errors.New("snapshots.minio: endpoint and bucket are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("snapshots.backend: unknown backend %q", c.Snapshots.Backend))
	}
	switch c.Uplink.Kind {
	case "":
	case "http", "mqtt":
		if c.Uplink.URL == "" {
			errs = append(errs, errors.New("uplink.url is required when the uplink is enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("uplink.kind: unknown kind %q", c.Uplink.Kind))
	}

	return errors.Join(errs...)
}
