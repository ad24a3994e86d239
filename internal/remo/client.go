package remo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/glockpete/hass-nature-remo/internal/rate"
)

// Client talks to the Nature Remo cloud API. It issues exactly one request
// per call and never retries; retry policy belongs to the coordinator.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	guard      *rate.Guard
}

func NewClient(cfg Config) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	guard := rate.NewGuard("nature")
	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: strings.TrimSpace(cfg.AccessToken),
		TokenType:   "Bearer",
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: &oauth2.Transport{
				Source: source,
				Base:   rate.Wrap(nil, guard),
			},
		},
		timeout: cfg.RequestTimeout,
		guard:   guard,
	}, nil
}

// Devices returns all hub devices on the account.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	payload, err := c.do(ctx, http.MethodGet, "/devices", nil)
	if err != nil {
		return nil, err
	}

	var devices []Device
	if err := json.Unmarshal(payload, &devices); err != nil {
		return nil, &ResponseError{StatusCode: http.StatusOK, Body: fmt.Sprintf("decode devices: %v", err)}
	}
	return devices, nil
}

// Appliances returns all registered appliances on the account.
func (c *Client) Appliances(ctx context.Context) ([]Appliance, error) {
	payload, err := c.do(ctx, http.MethodGet, "/appliances", nil)
	if err != nil {
		return nil, err
	}

	var appliances []Appliance
	if err := json.Unmarshal(payload, &appliances); err != nil {
		return nil, &ResponseError{StatusCode: http.StatusOK, Body: fmt.Sprintf("decode appliances: %v", err)}
	}
	return appliances, nil
}

// SendAirconSettings posts AC command parameters and returns the settings the
// server confirmed.
func (c *Client) SendAirconSettings(ctx context.Context, applianceID string, params map[string]string) (AirconSettings, error) {
	if strings.TrimSpace(applianceID) == "" {
		return AirconSettings{}, &ValidationError{Message: "appliance id is required"}
	}
	if len(params) == 0 {
		return AirconSettings{}, &ValidationError{Message: "no settings to send"}
	}

	form := url.Values{}
	for key, value := range params {
		form.Set(key, value)
	}

	path := fmt.Sprintf("/appliances/%s/aircon_settings", url.PathEscape(applianceID))
	payload, err := c.do(ctx, http.MethodPost, path, form)
	if err != nil {
		return AirconSettings{}, err
	}

	var settings AirconSettings
	if err := json.Unmarshal(payload, &settings); err != nil {
		return AirconSettings{}, &ResponseError{StatusCode: http.StatusOK, Body: fmt.Sprintf("decode settings: %v", err)}
	}
	return settings, nil
}

// RateLimits returns the last observed API budget.
func (c *Client) RateLimits() rate.Limits {
	return c.guard.Limits()
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &AuthError{}
	case resp.StatusCode != http.StatusOK:
		return nil, &ResponseError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	return payload, nil
}

// classifyTransportError maps transport failures onto the error taxonomy.
// Classification order matters: a deadline error inside a url.Error must
// resolve to TimeoutError, not ConnectionError.
func classifyTransportError(err error) error {
	var limitErr rate.LimitError
	if errors.As(err, &limitErr) {
		return &ResponseError{StatusCode: http.StatusTooManyRequests, Body: limitErr.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &TimeoutError{Err: err}
	}
	return &ConnectionError{Err: err}
}
