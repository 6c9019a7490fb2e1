package readiness

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// NewHTTPClient returns the HTTP client used by readiness probes. Probes don't retry on their own,
// the poller policy controls the attempts.
func NewHTTPClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "sbxsmoke-readiness")
}

// HTTPCheck returns a check that succeeds when the URL answers with a 2xx status.
func HTTPCheck(client *resty.Client, url string) Check {
	return func(ctx context.Context) bool {
		resp, err := client.R().SetContext(ctx).Get(url)
		if err != nil {
			return false
		}
		return resp.IsSuccess()
	}
}
