package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const maxResponseBytes = 1 << 20

// latestResponse is the open.er-api.com "latest" payload.
type latestResponse struct {
	Result    string                         `json:"result"`
	ErrorType string                         `json:"error-type"`
	BaseCode  string                         `json:"base_code"`
	Rates     map[string]decimal.NullDecimal `json:"rates"`
}

// HTTPProvider fetches current rates from an open.er-api.com compatible
// endpoint: GET {baseURL}/latest/{FROM}.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(timeout),
	}
}

// newHTTPClient creates a pooled client with explicit timeouts so a hung
// provider cannot stall a save indefinitely.
func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

func (p *HTTPProvider) Lookup(ctx context.Context, from, to string) (*decimal.Decimal, error) {
	endpoint := p.baseURL + "/latest/" + url.PathEscape(from)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate provider returned status %d", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rate response: %w", err)
	}

	if body.Result != "success" {
		if body.ErrorType == "unsupported-code" {
			return nil, nil
		}
		if body.ErrorType == "" {
			return nil, errors.New("rate provider returned no result")
		}
		return nil, fmt.Errorf("rate provider error: %s", body.ErrorType)
	}

	rate, ok := body.Rates[to]
	if !ok || !rate.Valid {
		return nil, nil
	}
	return &rate.Decimal, nil
}
