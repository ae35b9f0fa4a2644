// Package camera grabs still frames from the rover's camera.
package camera

import (
	"fmt"
	"net/url"
	"time"

	"github.com/teslashibe/go-rover/internal/httpc"
)

// Config holds the frame source parameters.
type Config struct {
	// URL returns either a single JPEG or a multipart MJPEG stream.
	// Empty selects the built-in test pattern.
	URL string `json:"url"`

	// Timeout bounds one grab, including reading the first MJPEG part.
	Timeout time.Duration `json:"timeout"`

	// MaxFrameBytes caps the size of one frame.
	MaxFrameBytes int64 `json:"max_frame_bytes"`

	// Width and Height size the test pattern.
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Timeout:       httpc.HardwareTimeout,
		MaxFrameBytes: 8 << 20,
		Width:         320,
		Height:        240,
	}
}

// Validate checks if all configuration values are within valid ranges.
// Returns a list of validation errors, or empty slice if valid.
func (c Config) Validate() []string {
	var errors []string

	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("url must be an http(s) URL, got %q", c.URL))
		}
	}
	if c.Timeout <= 0 {
		errors = append(errors, "timeout must be positive")
	}
	if c.MaxFrameBytes <= 0 {
		errors = append(errors, "max_frame_bytes must be positive")
	}
	if c.Width <= 0 || c.Width > 4096 || c.Height <= 0 || c.Height > 4096 {
		errors = append(errors, fmt.Sprintf("pattern size %dx%d out of range", c.Width, c.Height))
	}

	return errors
}
