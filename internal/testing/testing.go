// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/earshot/internal/models"
)

// MockCatalog is a configurable test double for [services.Catalog].
//
// Each field overrides one gateway call; nil fields return empty
// collections, which is a valid gateway response.
type MockCatalog struct {
	TopArtistsFn      func(ctx context.Context, token, timeRange string, limit int) ([]models.Artist, error)
	TopTracksFn       func(ctx context.Context, token, timeRange string, limit int) ([]models.Track, error)
	ArtistTopTracksFn func(ctx context.Context, token, artistID string, take int) ([]models.Track, error)
	RelatedArtistsFn  func(ctx context.Context, token, artistID string, take int) ([]models.Artist, error)
	RecentlyPlayedFn  func(ctx context.Context, token string, limit int) (map[string]struct{}, error)
	SavedTrackIDsFn   func(ctx context.Context, token string, max int) (map[string]struct{}, error)
}

func (m *MockCatalog) GetTopArtists(ctx context.Context, token, timeRange string, limit int) ([]models.Artist, error) {
	if m.TopArtistsFn == nil {
		return nil, nil
	}
	return m.TopArtistsFn(ctx, token, timeRange, limit)
}

func (m *MockCatalog) GetTopTracks(ctx context.Context, token, timeRange string, limit int) ([]models.Track, error) {
	if m.TopTracksFn == nil {
		return nil, nil
	}
	return m.TopTracksFn(ctx, token, timeRange, limit)
}

func (m *MockCatalog) GetArtistTopTracks(ctx context.Context, token, artistID string, take int) ([]models.Track, error) {
	if m.ArtistTopTracksFn == nil {
		return nil, nil
	}
	return m.ArtistTopTracksFn(ctx, token, artistID, take)
}

func (m *MockCatalog) GetRelatedArtists(ctx context.Context, token, artistID string, take int) ([]models.Artist, error) {
	if m.RelatedArtistsFn == nil {
		return nil, nil
	}
	return m.RelatedArtistsFn(ctx, token, artistID, take)
}

func (m *MockCatalog) GetRecentlyPlayedTrackIDs(ctx context.Context, token string, limit int) (map[string]struct{}, error) {
	if m.RecentlyPlayedFn == nil {
		return nil, nil
	}
	return m.RecentlyPlayedFn(ctx, token, limit)
}

func (m *MockCatalog) GetSavedTrackIDs(ctx context.Context, token string, max int) (map[string]struct{}, error) {
	if m.SavedTrackIDsFn == nil {
		return nil, nil
	}
	return m.SavedTrackIDsFn(ctx, token, max)
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

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if err == nil && !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
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
