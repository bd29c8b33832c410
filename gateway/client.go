// Package gateway holds the HTTP adapters for each upstream source: the
// venue order books and the reference rate feeds. Adapters never panic and
// never leak upstream failures past the Source boundary as anything other
// than an error the poller downgrades to an empty contribution.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"p2pradar/market"
)

// Source fetches the advertised order book for one (venue, side) pair.
type Source interface {
	Venue() market.Exchange
	Fetch(ctx context.Context, side market.Side) ([]market.MarketAd, error)
}

const defaultUserAgent = "Mozilla/5.0"

// NewDefaultHTTPClient provides an http.Client with a per-request timeout;
// an unresponsive source must not stall the whole cycle.
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// postJSON issues a JSON POST and returns the response body. Extra headers
// are applied on top of the shared defaults.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doRead(client, req)
}

func getJSON(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	return doRead(client, req)
}

func doRead(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d", req.URL.Host, resp.StatusCode)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return buf.Bytes(), nil
}
