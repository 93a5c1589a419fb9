package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mr1hm/go-weather-dashboard/internal/metrics"
	"github.com/mr1hm/go-weather-dashboard/internal/models"
)

const defaultFetchTimeout = 15 * time.Second

// SnapshotFetcher produces one alert snapshot per call.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (models.Snapshot, error)
}

// HTTPFetcher reads snapshots from the poll endpoint.
type HTTPFetcher struct {
	url    string
	client *http.Client
}

func NewHTTPFetcher(url string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &HTTPFetcher{url: url, client: client}
}

func (f *HTTPFetcher) FetchSnapshot(ctx context.Context) (snap models.Snapshot, err error) {
	start := time.Now()
	defer func() { metrics.RecordUpstreamFetch("dashboard", time.Since(start), err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	snap, err = models.DecodeSnapshot(resp.Body)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// AlertSource is an in-process provider of the encoded poll response.
type AlertSource interface {
	Alerts(ctx context.Context) ([]byte, time.Time, error)
}

// SourceFetcher decodes snapshots from an AlertSource without a network hop.
type SourceFetcher struct {
	src AlertSource
}

func NewSourceFetcher(src AlertSource) *SourceFetcher {
	return &SourceFetcher{src: src}
}

func (f *SourceFetcher) FetchSnapshot(ctx context.Context) (models.Snapshot, error) {
	body, _, err := f.src.Alerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading alerts: %w", err)
	}
	return models.DecodeSnapshot(bytes.NewReader(body))
}
