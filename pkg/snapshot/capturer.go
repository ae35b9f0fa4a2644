package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/teslashibe/go-rover/pkg/camera"
	"github.com/teslashibe/go-rover/pkg/eventlog"
)

const (
	// DefaultKeep is how many images are retained when Options.Keep is zero.
	DefaultKeep = 10

	namePrefix = "snapshot_"
	nameSuffix = ".jpg"
	nameLayout = "20060102_150405"
)

// Recorder receives the capture events. *rover.Coordinator satisfies it.
type Recorder interface {
	Record(t eventlog.EventType, message string) eventlog.Event
}

// Info describes one stored image.
type Info struct {
	Filename string
	Taken    time.Time
}

// Options configures a Capturer.
type Options struct {
	Keep int
	// Now overrides the clock used for file names. Nil means time.Now.
	Now func() time.Time
}

// Capturer grabs frames from a camera and stores them, keeping only the
// most recent ones.
type Capturer struct {
	source camera.FrameSource
	store  Store
	rec    Recorder
	keep   int
	now    func() time.Time

	// mu serializes captures so retention sees a consistent listing.
	mu sync.Mutex
}

// NewCapturer creates a capturer.
func NewCapturer(source camera.FrameSource, store Store, rec Recorder, opts Options) *Capturer {
	if opts.Keep <= 0 {
		opts.Keep = DefaultKeep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Capturer{
		source: source,
		store:  store,
		rec:    rec,
		keep:   opts.Keep,
		now:    opts.Now,
	}
}

// FileName returns the name an image taken at t is stored under.
func FileName(t time.Time) string {
	return namePrefix + t.Format(nameLayout) + nameSuffix
}

// ParseFileName extracts the capture time from a stored image name.
func ParseFileName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, namePrefix) || !strings.HasSuffix(name, nameSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, namePrefix), nameSuffix)
	t, err := time.ParseInLocation(nameLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Take grabs one frame, stores it and prunes images beyond the retention
// count. Every step is recorded as an event; failures are recorded as an
// ERROR event and returned.
func (c *Capturer) Take(ctx context.Context) (Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := c.take(ctx)
	if err != nil {
		c.rec.Record(eventlog.TypeError, fmt.Sprintf("Failed to take snapshot: %v", err))
		return Info{}, err
	}
	return info, nil
}

func (c *Capturer) take(ctx context.Context) (Info, error) {
	frame, err := c.source.Grab(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("no frame available: %w", err)
	}

	taken := c.now().Truncate(time.Second)
	name := FileName(taken)

	c.rec.Record(eventlog.TypeStatus, fmt.Sprintf("Saving snapshot to %s", c.store.Location(name)))
	if err := c.store.Put(ctx, name, frame); err != nil {
		return Info{}, err
	}

	if err := c.prune(ctx); err != nil {
		return Info{}, err
	}

	c.rec.Record(eventlog.TypeStatus, fmt.Sprintf("Snapshot taken: %s", name))
	return Info{Filename: name, Taken: taken}, nil
}

// prune deletes the oldest images beyond the retention count.
func (c *Capturer) prune(ctx context.Context) error {
	names, err := c.names(ctx)
	if err != nil {
		return err
	}
	if len(names) <= c.keep {
		return nil
	}

	for _, old := range names[:len(names)-c.keep] {
		c.rec.Record(eventlog.TypeStatus, fmt.Sprintf("Removing old snapshot: %s", old))
		if err := c.store.Delete(ctx, old); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("remove %s: %w", old, err)
		}
	}
	return nil
}

// names returns stored snapshot names in capture order. The timestamp
// layout sorts lexically.
func (c *Capturer) names(ctx context.Context) ([]string, error) {
	all, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	names := lo.Filter(all, func(name string, _ int) bool {
		return strings.HasPrefix(name, namePrefix)
	})
	sort.Strings(names)
	return names, nil
}

// List returns the stored images, oldest first. Names that do not carry a
// valid timestamp are skipped. A store failure is recorded as an ERROR
// event.
func (c *Capturer) List(ctx context.Context) ([]Info, error) {
	names, err := c.names(ctx)
	if err != nil {
		c.rec.Record(eventlog.TypeError, fmt.Sprintf("Failed to list snapshots: %v", err))
		return []Info{}, err
	}

	return lo.FilterMap(names, func(name string, _ int) (Info, bool) {
		taken, ok := ParseFileName(name)
		return Info{Filename: name, Taken: taken}, ok
	}), nil
}
