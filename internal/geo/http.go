package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the ip-api.com JSON endpoint; the IP is appended to it.
	DefaultEndpoint = "http://ip-api.com/json/"
	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 3 * time.Second
)

// ipAPIResponse is the subset of the ip-api.com response we read.
type ipAPIResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	City       string `json:"city"`
	RegionName string `json:"regionName"`
	Country    string `json:"country"`
}

// HTTPResolver looks addresses up with a single GET against an ip-api compatible endpoint.
type HTTPResolver struct {
	endpoint string
	client   *http.Client
}

// NewHTTPResolver returns a resolver for endpoint. Empty endpoint and zero timeout use the defaults.
func NewHTTPResolver(endpoint string, timeout time.Duration) *HTTPResolver {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPResolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *HTTPResolver) Resolve(ctx context.Context, ip string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+url.PathEscape(ip), nil)
	if err != nil {
		return failed(err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return failed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failed(fmt.Errorf("unexpected status %s", resp.Status))
	}

	var data ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return failed(fmt.Errorf("decode response: %w", err))
	}

	if data.Status != "success" {
		return Result{Kind: NotFound, Reason: data.Message}
	}

	return Result{Kind: Resolved, Location: join(data.City, data.RegionName, data.Country)}
}

func join(city, region, country string) string {
	return strings.Join([]string{city, region, country}, ", ")
}
