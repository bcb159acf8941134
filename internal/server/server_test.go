package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/earshot/internal/discovery"
	"github.com/desertthunder/earshot/internal/models"
	"github.com/desertthunder/earshot/internal/shared"
	mocks "github.com/desertthunder/earshot/internal/testing"
)

type fakeEngine struct {
	results []models.DiscoveryResult
	trace   string
	err     error
	desired int
}

func (f *fakeEngine) GetDiscoveryVerbose(ctx context.Context, progress chan<- discovery.ProgressUpdate, accessToken string, topTracks []models.Track, desired int) ([]models.DiscoveryResult, string, error) {
	f.desired = desired
	return f.results, f.trace, f.err
}

type fakeStore struct {
	runs map[string]*models.DiscoveryRun
}

func (f *fakeStore) Get(id string) (*models.DiscoveryRun, error) {
	run, ok := f.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return run, nil
}

func (f *fakeStore) List(limit int) ([]*models.DiscoveryRun, error) {
	var runs []*models.DiscoveryRun
	for _, run := range f.runs {
		runs = append(runs, run)
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func staticToken(token string) TokenFunc {
	return func(ctx context.Context) (string, error) {
		return token, nil
	}
}

func testLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

func TestBasicRouter(t *testing.T) {
	t.Run("Method Filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle("GET", "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405 for POST, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
			t.Errorf("expected pong, got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		router := NewBasicRouter()
		var order []string

		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router.Use(tag("outer"), tag("inner"))
		router.Handle("GET", "/ordered", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ordered", nil))

		want := "outer,inner,handler"
		if got := strings.Join(order, ","); got != want {
			t.Errorf("middleware order %q, want %q", got, want)
		}
	})

	t.Run("Recovery Middleware", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(RecoveryMiddleware(testLogger()))
		router.Handle("GET", "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/boom", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500 after panic, got %d", rec.Code)
		}
	})
}

func TestHealthHandler(t *testing.T) {
	router := NewBasicRouter()
	router.Handler(&HealthHandler{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestDiscoverHandler(t *testing.T) {
	results := []models.DiscoveryResult{
		{
			Track:   models.Track{ID: "t1", Name: "One", Artists: []string{"Alpha"}},
			Score:   0.8,
			Reasons: []string{"artist-top", "new-to-you"},
		},
	}

	newHandler := func(engine *fakeEngine) *BasicRouter {
		router := NewBasicRouter()
		router.Handler(NewDiscoverHandler(engine, &mocks.MockCatalog{}, staticToken("token"), 40, testLogger()))
		return router
	}

	t.Run("Plain Response Omits Scores", func(t *testing.T) {
		engine := &fakeEngine{results: results, trace: "Pool=1"}
		rec := httptest.NewRecorder()
		newHandler(engine).ServeHTTP(rec, httptest.NewRequest("GET", "/api/discover", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, `"t1"`) {
			t.Errorf("body missing track: %s", body)
		}
		if strings.Contains(body, "trace") || strings.Contains(body, "reasons") {
			t.Errorf("plain response should omit trace and reasons: %s", body)
		}
		if engine.desired != 40 {
			t.Errorf("expected default desired 40, got %d", engine.desired)
		}
	})

	t.Run("Verbose Response Includes Trace And Reasons", func(t *testing.T) {
		engine := &fakeEngine{results: results, trace: "Pool=1 Diversified=1 Results=1"}
		rec := httptest.NewRecorder()
		newHandler(engine).ServeHTTP(rec, httptest.NewRequest("GET", "/api/discover?verbose=true", nil))

		body := rec.Body.String()
		if !strings.Contains(body, "Pool=1") {
			t.Errorf("verbose body missing trace: %s", body)
		}
		if !strings.Contains(body, "artist-top") {
			t.Errorf("verbose body missing reasons: %s", body)
		}
	})

	t.Run("Limit Parameter Overrides Default", func(t *testing.T) {
		engine := &fakeEngine{results: results}
		newHandler(engine).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/discover?limit=7", nil))
		if engine.desired != 7 {
			t.Errorf("expected desired 7, got %d", engine.desired)
		}
	})

	t.Run("Invalid Limit Is Rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(&fakeEngine{}).ServeHTTP(rec, httptest.NewRequest("GET", "/api/discover?limit=lots", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Token Failure Returns Unauthorized", func(t *testing.T) {
		router := NewBasicRouter()
		failing := func(ctx context.Context) (string, error) {
			return "", shared.ErrTokenExpired
		}
		router.Handler(NewDiscoverHandler(&fakeEngine{}, &mocks.MockCatalog{}, failing, 40, testLogger()))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/discover", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})
}

func TestRunsHandler(t *testing.T) {
	run := models.NewDiscoveryRun(40, 10, 8, 2, "Pool=10", []models.DiscoveryResult{
		{Track: models.Track{ID: "t1", Name: "One", Artists: []string{"Alpha"}}, Score: 0.5, Reasons: []string{"seed-track"}},
	})
	store := &fakeStore{runs: map[string]*models.DiscoveryRun{run.RunID: run}}

	router := NewBasicRouter()
	router.Handler(NewRunsHandler(store, testLogger()))

	t.Run("List", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/runs", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), run.RunID) {
			t.Errorf("list missing run: %s", rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"count":1`) {
			t.Errorf("list missing count: %s", rec.Body.String())
		}
	})

	t.Run("Get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/runs/"+run.RunID, nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"t1"`) {
			t.Errorf("run body missing tracks: %s", rec.Body.String())
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/runs/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestOAuthHandler(t *testing.T) {
	t.Run("Rejects Bad State", func(t *testing.T) {
		handler := NewOAuthHandler(nil, "expected-state")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/callback?state=wrong&code=abc", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for bad state, got %d", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() == nil {
			t.Error("expected error result for bad state")
		}
	})

	t.Run("Rejects Second Callback", func(t *testing.T) {
		handler := NewOAuthHandler(nil, "state")

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/callback?state=wrong", nil))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/callback?state=wrong", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for replayed callback, got %d", rec.Code)
		}
	})
}
