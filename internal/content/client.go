// Package content retrieves event records from the headless CMS and turns
// them into validated model.Event values. This is the only path by which
// catalog data enters the portal.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventportal/internal/config"
	"github.com/Shivanand-hulikatti/eventportal/internal/model"
)

const pageSize = 100

// FetchResult is the outcome of one catalog fetch.
type FetchResult struct {
	Events  []model.Event
	Dropped []Dropped
}

// Client reads entries from a Contentful-style delivery API.
type Client struct {
	http        *http.Client
	baseURL     string
	space       string
	environment string
	token       string
	contentType string
	attempts    uint
	delay       time.Duration
	logger      *zap.Logger
}

// NewClient constructs a Client from configuration.
func NewClient(cfg config.CMS, logger *zap.Logger) *Client {
	return &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		space:       cfg.Space,
		environment: cfg.Environment,
		token:       cfg.Token,
		contentType: cfg.ContentType,
		attempts:    cfg.RetryAttempts,
		delay:       cfg.RetryDelay,
		logger:      logger,
	}
}

// statusError is a non-2xx answer from the delivery API.
type statusError struct {
	code       int
	retryAfter int
	body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("cms responded %d: %s", e.code, e.body)
}

func (e *statusError) transient() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// FetchEvents returns every event entry, validated and ordered by date
// ascending. Invalid entries are dropped individually; a transport or API
// failure fails the whole call with an error wrapping model.ErrUnavailable.
func (c *Client) FetchEvents(ctx context.Context) (*FetchResult, error) {
	res := &FetchResult{}
	for skip := 0; ; {
		page, err := c.fetchPageWithRetry(ctx, skip)
		if err != nil {
			return nil, fmt.Errorf("fetch events: %w: %w", model.ErrUnavailable, err)
		}

		events, dropped := normalize(page)
		res.Events = append(res.Events, events...)
		res.Dropped = append(res.Dropped, dropped...)

		skip += len(page.Items)
		if len(page.Items) == 0 || skip >= page.Total {
			break
		}
	}

	for _, d := range res.Dropped {
		c.logger.Warn("cms entry dropped", zap.String("entry_id", d.ID), zap.String("reason", d.Reason))
	}
	sortEvents(res.Events)
	return res, nil
}

func (c *Client) fetchPageWithRetry(ctx context.Context, skip int) (*collection, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.delay
	b.Multiplier = 2
	b.RandomizationFactor = 0

	return backoff.Retry(ctx, func() (*collection, error) {
		page, err := c.fetchPage(ctx, skip)
		if err == nil {
			return page, nil
		}
		var se *statusError
		if errors.As(err, &se) {
			if !se.transient() {
				return nil, backoff.Permanent(err)
			}
			if se.retryAfter > 0 {
				return nil, backoff.RetryAfter(se.retryAfter)
			}
		}
		return nil, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.attempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.Warn("cms fetch failed, retrying", zap.Error(err), zap.Duration("wait", wait))
		}),
	)
}

func (c *Client) entriesURL(skip int) string {
	q := url.Values{}
	q.Set("content_type", c.contentType)
	q.Set("order", "fields.date")
	q.Set("include", strconv.Itoa(maxLinkDepth))
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("skip", strconv.Itoa(skip))
	return fmt.Sprintf("%s/spaces/%s/environments/%s/entries?%s",
		c.baseURL, url.PathEscape(c.space), url.PathEscape(c.environment), q.Encode())
}

func (c *Client) fetchPage(ctx context.Context, skip int) (*collection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.entriesURL(skip), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request entries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return nil, &statusError{code: resp.StatusCode, retryAfter: retryAfter, body: strings.TrimSpace(string(body))}
	}

	var page collection
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return &page, nil
}
