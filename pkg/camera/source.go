package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/teslashibe/go-rover/internal/httpc"
)

// ErrNotJPEG is returned when the camera answers with something other than
// a JPEG image.
var ErrNotJPEG = errors.New("frame is not a JPEG image")

// FrameSource grabs one JPEG encoded frame.
type FrameSource interface {
	Grab(ctx context.Context) ([]byte, error)
}

// FrameFunc adapts a function to FrameSource.
type FrameFunc func(ctx context.Context) ([]byte, error)

// Grab calls f.
func (f FrameFunc) Grab(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// New returns the frame source described by cfg.
func New(cfg Config) (FrameSource, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera config: %s", strings.Join(errs, "; "))
	}
	if cfg.URL == "" {
		return NewPattern(cfg.Width, cfg.Height), nil
	}
	return NewHTTPSource(cfg), nil
}

// HTTPSource grabs frames from a camera HTTP endpoint. Both single JPEG
// responses and multipart MJPEG streams are supported; for a stream only
// the first part is read.
type HTTPSource struct {
	url    string
	limit  int64
	client *http.Client
}

// NewHTTPSource creates a source for cfg.URL.
func NewHTTPSource(cfg Config) *HTTPSource {
	return &HTTPSource{
		url:    cfg.URL,
		limit:  cfg.MaxFrameBytes,
		client: httpc.NewClient(cfg.Timeout),
	}
}

// Grab fetches one frame.
func (s *HTTPSource) Grab(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("camera unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &httpc.StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}

	body := io.Reader(resp.Body)
	mediaType, params, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		part, err := multipart.NewReader(resp.Body, params["boundary"]).NextPart()
		if err != nil {
			return nil, fmt.Errorf("read mjpeg part: %w", err)
		}
		defer part.Close()
		body = part
	}

	frame, err := io.ReadAll(io.LimitReader(body, s.limit+1))
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	if int64(len(frame)) > s.limit {
		return nil, fmt.Errorf("frame exceeds %d bytes", s.limit)
	}
	if !IsJPEG(frame) {
		return nil, ErrNotJPEG
	}
	return frame, nil
}

// IsJPEG reports whether data starts with the JPEG start-of-image marker.
func IsJPEG(data []byte) bool {
	return len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
}

// Pattern serves a generated test image. It stands in for the camera when
// the rover runs without one.
type Pattern struct {
	width, height int

	once  sync.Once
	frame []byte
	err   error
}

// NewPattern creates a width x height test pattern source.
func NewPattern(width, height int) *Pattern {
	return &Pattern{width: width, height: height}
}

// Grab returns the encoded pattern.
func (p *Pattern) Grab(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.once.Do(func() { p.frame, p.err = p.render() })
	if p.err != nil {
		return nil, p.err
	}
	return bytes.Clone(p.frame), nil
}

func (p *Pattern) render() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(255 * x / p.width),
				G: uint8(255 * y / p.height),
				B: 128,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode test pattern: %w", err)
	}
	return buf.Bytes(), nil
}
