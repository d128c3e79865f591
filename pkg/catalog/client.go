package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/harborwell/stockroom-backend/pkg/config"
	pkgerrors "github.com/harborwell/stockroom-backend/pkg/errors"
)

const (
	defaultTimeout              = 10 * time.Second
	defaultMaxRetries           = 4
	retryBaseDelay              = 500 * time.Millisecond
	requestBodyReadLimit  int64 = 1024
)

var errBaseURLRequired = errors.New("catalog base url is required")

// Client pushes availability snapshots into the headless CMS that renders the
// storefront. The CMS is a mirror, never the source of truth, so every call is
// best-effort and safe to replay.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	maxRetries int
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMaxRetries overrides how many attempts a push makes before giving up.
func WithMaxRetries(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.maxRetries = attempts
		}
	}
}

// NewClient builds the CMS client from configuration.
func NewClient(cfg config.CatalogConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiToken:   strings.TrimSpace(cfg.APIToken),
		maxRetries: maxRetries,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// AvailabilityUpdate is the payload mirrored to the CMS for one variant.
type AvailabilityUpdate struct {
	ExternalKey       string    `json:"externalKey"`
	AvailableQuantity int       `json:"availableQuantity"`
	AsOf              time.Time `json:"asOf"`
}

// PushAvailability mirrors the availability snapshot, retrying transient
// failures with exponential backoff. 4xx responses other than 429 are treated
// as permanent and not retried.
func (c *Client) PushAvailability(ctx context.Context, update AvailabilityUpdate) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "catalog client not configured")
	}
	if strings.TrimSpace(update.ExternalKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "external key is required")
	}
	if update.AvailableQuantity < 0 {
		update.AvailableQuantity = 0
	}

	backoff := retry.WithMaxRetries(uint64(c.maxRetries-1), retry.NewExponential(retryBaseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.pushOnce(ctx, update); err != nil {
			if isPermanent(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func isPermanent(err error) bool {
	var perm permanentError
	return errors.As(err, &perm)
}

func (c *Client) pushOnce(ctx context.Context, update AvailabilityUpdate) error {
	endpoint := fmt.Sprintf("%s/variants/%s/availability",
		strings.TrimRight(c.baseURL, "/"),
		url.PathEscape(update.ExternalKey),
	)

	payload, err := json.Marshal(update)
	if err != nil {
		return permanentError{err: pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal availability update")}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return permanentError{err: pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build availability request")}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute availability request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "availability push failed")

	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return permanentError{err: wrapped}
	}
	return wrapped
}
