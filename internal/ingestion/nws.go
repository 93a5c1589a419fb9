package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/go-weather-dashboard/internal/metrics"
)

const (
	alertsTimeout  = 15 * time.Second
	zoneTimeout    = 10 * time.Second
	maxRetries     = 2
	maxBodySize    = 32 << 20
	geoJSONAccept  = "application/geo+json"
	defaultWorkers = 4
)

type ClientOptions struct {
	AlertsURL       string
	UserAgent       string
	ZoneFallback    bool
	ZoneConcurrency int
	HTTPClient      *http.Client
}

// Client fetches active alerts from the NWS API and fills in zone geometry
// for alert types that are issued by zone rather than polygon.
type Client struct {
	alertsURL       string
	userAgent       string
	zoneFallback    bool
	zoneConcurrency int
	httpClient      *http.Client
	zones           *zoneCache
}

func NewClient(opts ClientOptions) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	n := opts.ZoneConcurrency
	if n < 1 {
		n = defaultWorkers
	}
	c := &Client{
		alertsURL:       opts.AlertsURL,
		userAgent:       opts.UserAgent,
		zoneFallback:    opts.ZoneFallback,
		zoneConcurrency: n,
		httpClient:      hc,
	}
	c.zones = newZoneCache(c.fetchZoneGeometry)
	return c
}

// FetchActive returns the active alert collection.
func (c *Client) FetchActive(ctx context.Context) (*geojson.FeatureCollection, error) {
	start := time.Now()
	fc, err := c.fetchActive(ctx)
	metrics.RecordUpstreamFetch("alerts", time.Since(start), err)
	return fc, err
}

func (c *Client) fetchActive(ctx context.Context) (*geojson.FeatureCollection, error) {
	reqCtx, cancel := context.WithTimeout(ctx, alertsTimeout)
	defer cancel()

	body, err := c.get(reqCtx, c.alertsURL)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("error decoding alerts: %w", err)
	}

	if c.zoneFallback {
		// Zone results are cached for the process lifetime; each lookup is
		// bounded by zoneTimeout alone.
		c.addZoneGeometry(context.WithoutCancel(ctx), fc.Features)
	}

	slog.Debug("fetched active alerts", "count", len(fc.Features))
	return fc, nil
}

func (c *Client) fetchZoneGeometry(ctx context.Context, url string) (*geojson.Feature, error) {
	ctx, cancel := context.WithTimeout(ctx, zoneTimeout)
	defer cancel()

	start := time.Now()
	body, err := c.get(ctx, url)
	metrics.RecordUpstreamFetch("zone", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	f, err := geojson.UnmarshalFeature(body)
	if err != nil {
		return nil, fmt.Errorf("error decoding zone %s: %w", url, err)
	}
	return f, nil
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d - status: %s", e.code, e.status)
}

// get performs a GET with retries on network errors and 5xx responses.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("error creating request: %w", err))
		}
		req.Header.Set("Accept", geoJSONAccept)
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("error doing request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := &statusError{code: resp.StatusCode, status: resp.Status}
			if resp.StatusCode < http.StatusInternalServerError {
				return backoff.Permanent(err)
			}
			return err
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return fmt.Errorf("error reading resp.Body: %w", err)
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), maxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return body, nil
}

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}
