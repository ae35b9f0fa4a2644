package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-rover/pkg/camera"
	"github.com/teslashibe/go-rover/pkg/eventlog"
)

var fakeJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0xFF, 0xD9}

// recorder collects events in memory.
type recorder struct {
	mu     sync.Mutex
	events []eventlog.Event
}

func (r *recorder) Record(t eventlog.EventType, msg string) eventlog.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := eventlog.NewEvent(1, t, msg)
	r.events = append(r.events, e)
	return e
}

func (r *recorder) messages(t eventlog.EventType) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e.Message)
		}
	}
	return out
}

// stepClock advances one second per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Second)
		return t
	}
}

func staticFrame() camera.FrameSource {
	return camera.FrameFunc(func(context.Context) ([]byte, error) { return fakeJPEG, nil })
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	name := FileName(at)
	if name != "snapshot_20240102_030405.jpg" {
		t.Fatalf("FileName() = %s", name)
	}
	got, ok := ParseFileName(name)
	if !ok || !got.Equal(at) {
		t.Errorf("ParseFileName(%s) = %v, %v", name, got, ok)
	}

	for _, bad := range []string{"photo.jpg", "snapshot_.jpg", "snapshot_20240102_030405.png", "snapshot_2024_nope.jpg"} {
		if _, ok := ParseFileName(bad); ok {
			t.Errorf("ParseFileName(%s) accepted", bad)
		}
	}
}

func TestCapturer_TakeAndRetain(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	// Foreign files are left alone.
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)

	rec := &recorder{}
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	c := NewCapturer(staticFrame(), store, rec, Options{Keep: 3, Now: stepClock(start)})

	var taken []Info
	for i := 0; i < 5; i++ {
		info, err := c.Take(context.Background())
		if err != nil {
			t.Fatalf("Take #%d: %v", i, err)
		}
		taken = append(taken, info)
	}

	list, err := c.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("kept %d snapshots, want 3", len(list))
	}
	for i, info := range list {
		if info.Filename != taken[i+2].Filename {
			t.Errorf("list[%d] = %s, want %s", i, info.Filename, taken[i+2].Filename)
		}
		if !info.Taken.Equal(taken[i+2].Taken) {
			t.Errorf("list[%d] time = %v, want %v", i, info.Taken, taken[i+2].Taken)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Errorf("foreign file removed: %v", err)
	}

	removed := 0
	for _, msg := range rec.messages(eventlog.TypeStatus) {
		if strings.HasPrefix(msg, "Removing old snapshot: ") {
			removed++
		}
	}
	if removed != 2 {
		t.Errorf("removal events = %d, want 2", removed)
	}
	status := rec.messages(eventlog.TypeStatus)
	if last := status[len(status)-1]; last != "Snapshot taken: "+taken[4].Filename {
		t.Errorf("last status = %q", last)
	}
}

func TestCapturer_NoFrame(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	rec := &recorder{}
	src := camera.FrameFunc(func(context.Context) ([]byte, error) { return nil, errors.New("camera offline") })
	c := NewCapturer(src, store, rec, Options{})

	if _, err := c.Take(context.Background()); err == nil {
		t.Fatal("Take() succeeded without a frame")
	}
	errs := rec.messages(eventlog.TypeError)
	if len(errs) != 1 || !strings.HasPrefix(errs[0], "Failed to take snapshot: ") {
		t.Errorf("ERROR events = %v", errs)
	}
	if list, _ := c.List(context.Background()); len(list) != 0 {
		t.Errorf("list = %v, want empty", list)
	}
}

// brokenStore fails every listing.
type brokenStore struct{ *FileStore }

func (brokenStore) List(context.Context) ([]string, error) {
	return nil, errors.New("disk unplugged")
}

func TestCapturer_ListFailure(t *testing.T) {
	fs, _ := NewFileStore(t.TempDir())
	rec := &recorder{}
	c := NewCapturer(staticFrame(), brokenStore{fs}, rec, Options{})

	list, err := c.List(context.Background())
	if err == nil {
		t.Fatal("List() error = nil")
	}
	if list == nil || len(list) != 0 {
		t.Errorf("list = %v, want empty non-nil", list)
	}
	if errs := rec.messages(eventlog.TypeError); len(errs) != 1 {
		t.Errorf("ERROR events = %v", errs)
	}
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "snapshots")
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := s.Put(ctx, "snapshot_20240101_000000.jpg", fakeJPEG); err != nil {
		t.Fatalf("Put: %v", err)
	}
	names, _ := s.List(ctx)
	if len(names) != 1 {
		t.Fatalf("List = %v", names)
	}
	data, err := os.ReadFile(s.Location(names[0]))
	if err != nil || string(data) != string(fakeJPEG) {
		t.Errorf("stored data = %x, %v", data, err)
	}

	if err := s.Put(ctx, "../escape.jpg", fakeJPEG); err == nil {
		t.Error("Put accepted a path outside the directory")
	}
	if err := s.Delete(ctx, "missing.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(missing) = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, names[0]); err != nil {
		t.Errorf("Delete: %v", err)
	}
}
