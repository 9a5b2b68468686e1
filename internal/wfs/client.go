// Package wfs implements the paginated, fault-tolerant GetFeature protocol
// against the cadastral WFS endpoints: a retrying page fetcher, the
// fallback orchestrator with its page accumulation loop, and the zone
// bounding-box resolver.
package wfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"parcelone/internal/core/observability"
	"parcelone/internal/geojson"
)

const userAgent = "ParcelOne/WFS 1.0"

// HTTPError is a non-2xx upstream response. It is the signal the fallback
// orchestrator dispatches on.
type HTTPError struct {
	Status int
	URL    string
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("wfs: upstream status %d", e.Status)
}

// Client issues single GetFeature page requests with a bounded retry
// budget. It is the only layer where raw transport errors live; everything
// above sees either bytes or the final error of the last attempt.
type Client struct {
	http     *http.Client
	log      *slog.Logger
	attempts int
	backoff  time.Duration
	register string // metrics label
}

func NewClient(hc *http.Client, log *slog.Logger, attempts int, backoff time.Duration) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = 600 * time.Millisecond
	}
	return &Client{http: hc, log: log, attempts: attempts, backoff: backoff}
}

// WithRegister returns a copy labelling upstream metrics with the register.
func (c *Client) WithRegister(reg string) *Client {
	cp := *c
	cp.register = reg
	return &cp
}

// GetBytes fetches one URL, retrying every failure class (not just
// timeouts) with linear backoff. The last error is returned once the
// budget is spent.
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for i := 0; i < c.attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(c.backoff * time.Duration(i)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		body, err := c.getOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, lastErr
		}
		c.log.Debug("wfs request failed", "attempt", i+1, "err", err)
	}
	return nil, lastErr
}

func (c *Client) getOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/xml,*/*;q=0.5")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	observability.ObserveUpstreamLatency(c.register, time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, &HTTPError{Status: resp.StatusCode, URL: url, Body: string(snippet)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

var (
	numberReturnedRe = regexp.MustCompile(`numberReturned="(\d+)"`)
	numberMatchedRe  = regexp.MustCompile(`numberMatched="(\d+)"`)
	srsNameRe        = regexp.MustCompile(`srsName="[^"]*EPSG:[:]*(\d+)`)
)

// HasAnyFeature is a format-agnostic sniff: GML member markers for XML
// bodies, a non-empty features array (or bare Feature) for JSON bodies.
// Malformed input means "no features", never an error.
func HasAnyFeature(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	if n, ok := geojson.CountFeatures(body); ok {
		return n > 0
	}
	return bytes.Contains(body, []byte("featureMember")) ||
		bytes.Contains(body, []byte(":member")) ||
		bytes.Contains(body, []byte("<wfs:member"))
}

// DeclaredCount reads the server's result-size hint: numberReturned in
// GML, features length in GeoJSON. ok=false when the body declares
// nothing usable.
func DeclaredCount(body []byte) (int, bool) {
	if n, ok := geojson.CountFeatures(body); ok {
		return n, true
	}
	if m := numberReturnedRe.FindSubmatch(body); m != nil {
		if n, err := strconv.Atoi(string(m[1])); err == nil {
			return n, true
		}
	}
	return 0, false
}

// DeclaredMatched reads the total match count announced on a GML page,
// used to decide whether parallel fan-out is safe.
func DeclaredMatched(body []byte) (int, bool) {
	if m := numberMatchedRe.FindSubmatch(body); m != nil {
		if n, err := strconv.Atoi(string(m[1])); err == nil {
			return n, true
		}
	}
	return 0, false
}

// DetectCRS sniffs the EPSG code a GML page reports in its srsName
// attributes, e.g. urn:ogc:def:crs:EPSG::5514.
func DetectCRS(body []byte) string {
	if m := srsNameRe.FindSubmatch(body); m != nil {
		return "EPSG:" + string(m[1])
	}
	return ""
}
