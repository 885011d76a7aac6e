package predictor

import (
	"net/http"
	"time"
)

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithHTTPTimeout bounds each request.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithAPIKey sends key in the X-API-Key header.
func WithAPIKey(key string) HTTPOption {
	return func(c *HTTPClient) { c.apiKey = key }
}

// NATSOption configures a NATSClient.
type NATSOption func(*NATSClient)

// WithRequestTimeout bounds how long a request waits for a reply.
func WithRequestTimeout(d time.Duration) NATSOption {
	return func(c *NATSClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}
