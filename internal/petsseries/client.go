package petsseries

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pets-series/petsbridge/internal/models"
)

// API is the outbound contract the snapshot builder depends on. The client
// owns authentication, token refresh and per-call retry; callers never see
// raw transport state.
type API interface {
	Homes(ctx context.Context) ([]models.Home, error)
	Devices(ctx context.Context, home models.Home) ([]models.Device, error)
	Events(ctx context.Context, home models.Home, eventType models.EventType, from, to time.Time) ([]models.Event, error)
	Settings(ctx context.Context, home models.Home, deviceID string) (map[string]any, error)
	Meals(ctx context.Context, home models.Home) ([]models.Meal, error)
	Close() error
}

const (
	requestTimeout = 30 * time.Second
	maxAttempts    = 3
)

// Config carries the credentials and endpoint for one account.
type Config struct {
	BaseURL      string
	AccessToken  string
	RefreshToken string
}

// Client talks to the vendor cloud backend. Token state is owned and
// mutated exclusively by the client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func NewClient(cfg Config, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: requestTimeout},
		logger:       logger,
		accessToken:  cfg.AccessToken,
		refreshToken: cfg.RefreshToken,
	}
}

// Initialize validates the stored credentials by performing a token refresh.
// A rejected refresh token surfaces as *AuthError so setup can abort with a
// re-authentication request instead of a generic failure.
func (c *Client) Initialize(ctx context.Context) error {
	return c.refreshAccessToken(ctx)
}

func (c *Client) Homes(ctx context.Context) ([]models.Home, error) {
	var homes []models.Home
	if err := c.getJSON(ctx, "/api/homes", &homes); err != nil {
		return nil, err
	}
	return homes, nil
}

func (c *Client) Devices(ctx context.Context, home models.Home) ([]models.Device, error) {
	var devices []models.Device
	path := fmt.Sprintf("/api/homes/%s/devices", url.PathEscape(home.ID))
	if err := c.getJSON(ctx, path, &devices); err != nil {
		return nil, err
	}
	for i := range devices {
		devices[i].HomeID = home.ID
	}
	return devices, nil
}

func (c *Client) Events(ctx context.Context, home models.Home, eventType models.EventType, from, to time.Time) ([]models.Event, error) {
	var events []models.Event
	q := url.Values{}
	q.Set("types", eventType.String())
	q.Set("from", from.Format(time.RFC3339))
	q.Set("to", to.Format(time.RFC3339))
	path := fmt.Sprintf("/api/homes/%s/events?%s", url.PathEscape(home.ID), q.Encode())
	if err := c.getJSON(ctx, path, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) Settings(ctx context.Context, home models.Home, deviceID string) (map[string]any, error) {
	var settings map[string]any
	path := fmt.Sprintf("/api/homes/%s/devices/%s/settings",
		url.PathEscape(home.ID), url.PathEscape(deviceID))
	if err := c.getJSON(ctx, path, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (c *Client) Meals(ctx context.Context, home models.Home) ([]models.Meal, error) {
	var meals []models.Meal
	path := fmt.Sprintf("/api/homes/%s/meals", url.PathEscape(home.ID))
	if err := c.getJSON(ctx, path, &meals); err != nil {
		return nil, err
	}
	for i := range meals {
		meals[i].HomeID = home.ID
	}
	return meals, nil
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// getJSON performs one logical GET with retry. 401 triggers a single token
// refresh followed by a retry; transient failures back off exponentially;
// auth failures are returned as-is and never retried.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second

	refreshed := false
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := c.doOnce(ctx, path, out)
		if err == nil {
			return nil
		}
		if IsAuthError(err) {
			return err
		}
		if errors.Is(err, errUnauthorized) && !refreshed {
			refreshed = true
			if rerr := c.refreshAccessToken(ctx); rerr != nil {
				return rerr
			}
			continue
		}
		if !errors.Is(err, errTransient) {
			return err
		}
		lastErr = err
		c.logger.WithError(err).WithField("path", path).Debug("retrying petsseries request")

		sleep := bo.NextBackOff()
		if sleep == backoff.Stop {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
	return fmt.Errorf("%w: %v", ErrRequest, lastErr)
}

func (c *Client) doOnce(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	c.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	c.mu.Unlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %v", err)
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return errUnauthorized
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: got %d", errTransient, resp.StatusCode)
	default:
		return fmt.Errorf("%w: got %d", ErrStatus, resp.StatusCode)
	}
}

// refreshAccessToken exchanges the refresh token for a new access token.
// An invalid_client response is terminal and maps to *AuthError.
func (c *Client) refreshAccessToken(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	c.mu.Lock()
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.refreshToken},
	}
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		if strings.Contains(string(body), "invalid_client") {
			return &AuthError{Reason: strings.TrimSpace(string(body))}
		}
		return fmt.Errorf("%w: got %d refreshing token", ErrStatus, resp.StatusCode)
	}

	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(body, &tokens); err != nil {
		return fmt.Errorf("failed to decode token response: %v", err)
	}

	c.mu.Lock()
	c.accessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		c.refreshToken = tokens.RefreshToken
	}
	c.mu.Unlock()

	c.logger.Debug("refreshed petsseries access token")
	return nil
}

var _ API = (*Client)(nil)
