package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lucasnoah/gateagent/internal/gate"
	"github.com/lucasnoah/gateagent/internal/history"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	store, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rep := gate.NewReport([]gate.Result{
		{Name: "ESLint", Status: gate.StatusPassed, Message: "0 error(s), 0 warning(s)", Duration: 300 * time.Millisecond},
		{Name: "TypeScript", Status: gate.StatusFailed, Message: "1 type error(s) found <x>", Errors: []string{"e"}, Details: map[string]any{"errorCount": 1}},
	}, 2*time.Second, at)
	id, err := store.Record(context.Background(), "/work/app", "0123456789abcdef", rep)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	s := NewServer(store, nil)
	s.now = func() time.Time { return at.Add(90 * time.Minute) }
	return s, id
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestDashboard(t *testing.T) {
	s, id := testServer(t)
	rec := get(t, s.Handler(), "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<a href="/runs/` + id + `">` + id[:8] + `</a>`,
		"1h ago",
		`<td class="result-fail">FAIL</td>`,
		"2.00s",
		"/work/app",
		"0%",
		"Gates across all runs",
		"<td>100.0%</td>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestDashboard_Empty(t *testing.T) {
	store, err := history.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatal(err)
	}
	rec := get(t, NewServer(store, nil).Handler(), "/")
	if !strings.Contains(rec.Body.String(), "No gate runs recorded yet.") {
		t.Errorf("expected empty state, got %s", rec.Body.String())
	}
}

func TestRunDetail(t *testing.T) {
	s, id := testServer(t)
	rec := get(t, s.Handler(), "/runs/"+id)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<span class="badge badge-failed">failed</span>`,
		"✗ <strong>TypeScript</strong>",
		"1 type error(s) found &lt;x&gt;",
		"config 01234567",
		"300ms",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("run page missing %q", want)
		}
	}
}

func TestRunDetail_NotFound(t *testing.T) {
	s, _ := testServer(t)
	if rec := get(t, s.Handler(), "/runs/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if rec := get(t, s.Handler(), "/elsewhere"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestAPIRuns(t *testing.T) {
	s, id := testServer(t)
	rec := get(t, s.Handler(), "/api/runs?limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var runs []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 1 || runs[0]["id"] != id || runs[0]["durationMs"] != float64(2000) {
		t.Errorf("unexpected runs: %v", runs)
	}

	if rec := get(t, s.Handler(), "/api/runs?limit=zero"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}
}

func TestAPIRun(t *testing.T) {
	s, id := testServer(t)
	rec := get(t, s.Handler(), "/api/runs/"+id)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var run struct {
		ID      string `json:"id"`
		Success bool   `json:"success"`
		Results []struct {
			Name    string         `json:"name"`
			Status  string         `json:"status"`
			Details map[string]any `json:"details"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.ID != id || run.Success || len(run.Results) != 2 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.Results[1].Status != "failed" || run.Results[1].Details["errorCount"] != float64(1) {
		t.Errorf("unexpected result: %+v", run.Results[1])
	}
}

type failingStore struct{}

func (failingStore) Recent(context.Context, int) ([]history.Run, error) {
	return nil, errors.New("db down")
}
func (failingStore) Get(context.Context, string) (*history.Run, error) {
	return nil, errors.New("db down")
}
func (failingStore) Results(context.Context, string) ([]history.GateResult, error) {
	return nil, errors.New("db down")
}
func (failingStore) GateStats(context.Context, time.Time) ([]history.GateStat, error) {
	return nil, errors.New("db down")
}

func TestStoreErrors(t *testing.T) {
	h := NewServer(failingStore{}, nil).Handler()
	for _, path := range []string{"/", "/runs/x", "/api/runs", "/api/runs/x"} {
		if rec := get(t, h, path); rec.Code != http.StatusInternalServerError {
			t.Errorf("%s: status = %d, want 500", path, rec.Code)
		}
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	s := NewServer(failingStore{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRelTime(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
	}
	for _, tc := range cases {
		if got := relTime(now, now.Add(-tc.ago)); got != tc.want {
			t.Errorf("relTime(-%v) = %q, want %q", tc.ago, got, tc.want)
		}
	}
}

func TestURL(t *testing.T) {
	if got := URL(":8080"); got != "http://localhost:8080" {
		t.Errorf("URL(:8080) = %q", got)
	}
	if got := URL("0.0.0.0:9000"); got != "http://0.0.0.0:9000" {
		t.Errorf("URL(0.0.0.0:9000) = %q", got)
	}
}
