package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type":"FeatureCollection","features":[
			{"type":"Feature","id":"A","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{"severity":"Severe","event":"Tornado Warning"}},
			{"type":"Feature","geometry":null,"properties":{"id":"B","event":"Heat Advisory"}}
		]}`))
	}))
	defer srv.Close()

	snap, err := NewHTTPFetcher(srv.URL, srv.Client()).FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("expected 2 records, got %d", len(snap))
	}
	if snap[0].ID != "A" || !snap[0].HasGeometry {
		t.Errorf("unexpected first record %+v", snap[0])
	}
	if snap[1].ID != "B" || snap[1].HasGeometry {
		t.Errorf("unexpected second record %+v", snap[1])
	}
}

func TestHTTPFetcher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`},
		{name: "malformed", status: http.StatusOK, body: `{"features":[`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			if _, err := NewHTTPFetcher(srv.URL, srv.Client()).FetchSnapshot(context.Background()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

type staticSource struct {
	body []byte
	err  error
}

func (s staticSource) Alerts(ctx context.Context) ([]byte, time.Time, error) {
	return s.body, time.Time{}, s.err
}

func TestSourceFetcher(t *testing.T) {
	f := NewSourceFetcher(staticSource{body: []byte(`{"features":[{"type":"Feature","id":"A","geometry":null,"properties":{}}]}`)})

	snap, err := f.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap) != 1 || snap[0].ID != "A" {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	f = NewSourceFetcher(staticSource{err: errors.New("upstream down")})
	if _, err := f.FetchSnapshot(context.Background()); err == nil {
		t.Error("expected error")
	}
}
