// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/spotiq/internal/models"
)

// TrackID returns a deterministic, valid track identifier for n.
func TrackID(n int) models.ResourceID {
	return models.ResourceID{Kind: models.KindTrack, ID: fmt.Sprintf("t%021d", n)}
}

// PlaylistID returns a deterministic, valid playlist identifier for n.
func PlaylistID(n int) models.ResourceID {
	return models.ResourceID{Kind: models.KindPlaylist, ID: fmt.Sprintf("p%021d", n)}
}

// AlbumID returns a deterministic, valid album identifier for n.
func AlbumID(n int) models.ResourceID {
	return models.ResourceID{Kind: models.KindAlbum, ID: fmt.Sprintf("a%021d", n)}
}

// Metadata builds available metadata named after id.
func Metadata(id models.ResourceID) models.TrackMetadata {
	return models.TrackMetadata{Artist: "Artist", Name: id.ID, DurationMs: 180_000, Resource: id}
}

// FakeFetcher is a test double for [services.MetadataFetcher].
//
// Unknown ids resolve to [Metadata]. When Gate is non-nil every fetch blocks until it is closed.
type FakeFetcher struct {
	mu          sync.Mutex
	Gate        chan struct{}
	Unavailable map[models.ResourceID]bool
	Errors      map[models.ResourceID]error
	calls       map[models.ResourceID]int
}

func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{
		Unavailable: make(map[models.ResourceID]bool),
		Errors:      make(map[models.ResourceID]error),
		calls:       make(map[models.ResourceID]int),
	}
}

func (f *FakeFetcher) FetchTrackMetadata(ctx context.Context, id models.ResourceID) (models.TrackMetadata, error) {
	f.mu.Lock()
	f.calls[id]++
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.TrackMetadata{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errors[id]; err != nil {
		return models.TrackMetadata{}, err
	}
	meta := Metadata(id)
	meta.Unavailable = f.Unavailable[id]
	return meta, nil
}

// SetError makes subsequent fetches of id fail with err; nil clears it.
func (f *FakeFetcher) SetError(id models.ResourceID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.Errors, id)
		return
	}
	f.Errors[id] = err
}

// SetUnavailable marks id as unplayable.
func (f *FakeFetcher) SetUnavailable(ids ...models.ResourceID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.Unavailable[id] = true
	}
}

// Calls returns how many times id was fetched.
func (f *FakeFetcher) Calls(id models.ResourceID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

// FakeExpander is a test double for [services.CollectionExpander].
type FakeExpander struct {
	mu       sync.Mutex
	Gate     chan struct{}
	Children map[models.ResourceID][]models.ResourceID
	Errors   map[models.ResourceID]error
	calls    int
}

func NewFakeExpander() *FakeExpander {
	return &FakeExpander{
		Children: make(map[models.ResourceID][]models.ResourceID),
		Errors:   make(map[models.ResourceID]error),
	}
}

func (f *FakeExpander) ExpandCollection(ctx context.Context, id models.ResourceID) ([]models.ResourceID, error) {
	f.mu.Lock()
	f.calls++
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errors[id]; err != nil {
		return nil, err
	}
	return append([]models.ResourceID(nil), f.Children[id]...), nil
}

// Calls returns the number of expansion requests.
func (f *FakeExpander) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakePlayer is a test double for [services.PlaybackController] that records every command.
type FakePlayer struct {
	mu       sync.Mutex
	Err      error
	commands []string
}

func (p *FakePlayer) record(cmd string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = append(p.commands, cmd)
	return p.Err
}

func (p *FakePlayer) LoadTrack(ctx context.Context, id models.ResourceID) error {
	return p.record("load " + id.String())
}

func (p *FakePlayer) Play(ctx context.Context) error { return p.record("play") }
func (p *FakePlayer) Stop(ctx context.Context) error { return p.record("stop") }

// Commands returns the recorded commands in order.
func (p *FakePlayer) Commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.commands...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
