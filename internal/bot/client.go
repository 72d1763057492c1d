package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"no-lights-dtek/internal/dtek"
)

// ErrAddressRejected means the API could not resolve the address (HTTP 422).
var ErrAddressRejected = errors.New("address rejected")

// ErrUnavailable means the API is refusing scrapes for now (HTTP 503).
var ErrUnavailable = errors.New("status service unavailable")

// APIClient calls the status API for on-demand checks.
type APIClient struct {
	client *resty.Client
}

type apiError struct {
	Error string `json:"error"`
}

// NewAPIClient creates a client for the API at baseURL. A check drives a real
// browser session, so the timeout is generous.
func NewAPIClient(baseURL string) *APIClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(3 * time.Minute)
	client.SetHeader("Accept", "application/json")
	return &APIClient{client: client}
}

// Status asks the API to resolve addr and extract its current status.
func (a *APIClient) Status(ctx context.Context, addr dtek.Address) (*dtek.ScrapeResult, error) {
	var res dtek.ScrapeResult
	var apiErr apiError

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"city":   addr.City,
			"street": addr.Street,
			"house":  addr.House,
		}).
		SetResult(&res).
		SetError(&apiErr).
		Get("/api/status")
	if err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}

	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = resp.Status()
		}
		switch resp.StatusCode() {
		case http.StatusUnprocessableEntity:
			return nil, fmt.Errorf("%w: %s", ErrAddressRejected, msg)
		case http.StatusServiceUnavailable:
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, msg)
		}
		return nil, fmt.Errorf("status API returned HTTP %d: %s", resp.StatusCode(), msg)
	}
	return &res, nil
}
