package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

type Response struct {
	StatusCode int
	Body       []byte
}

type Interface interface {
	Get(ctx context.Context, path string, query url.Values) (*Response, error)
	Post(ctx context.Context, path string, query url.Values, body any) (*Response, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	GetFunc    func(ctx context.Context, path string, query url.Values) (*Response, error)
	PostFunc   func(ctx context.Context, path string, query url.Values, body any) (*Response, error)
}

var _ Interface = (*Client)(nil)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// Backoff is the delay before the first retry; it doubles on each attempt.
	Backoff time.Duration
}

func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}

	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}

	if opts.Backoff == 0 {
		opts.Backoff = 100 * time.Millisecond
	}

	return &Client{
		baseURL: opts.BaseURL,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
	}
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	if c.GetFunc != nil {
		return c.GetFunc(ctx, path, query)
	}
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) Post(ctx context.Context, path string, query url.Values, body any) (*Response, error) {
	if c.PostFunc != nil {
		return c.PostFunc(ctx, path, query, body)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
	}
	return c.do(ctx, http.MethodPost, path, query, payload)
}

func (c *Client) buildURL(path string, query url.Values) string {
	var fullURL string
	if c.baseURL == "" {
		fullURL = path // If no base URL, treat path as full URL
	} else {
		fullURL = c.baseURL + path
	}
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	return fullURL
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) (*Response, error) {
	fullURL := c.buildURL(path, query)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<(attempt-1)) * c.backoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.send(ctx, method, fullURL, payload)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil || isTimeout(err) {
				return nil, err
			}
			log.Debug().Err(err).Str("url", fullURL).Int("attempt", attempt+1).Msg("Request failed, retrying")
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError && attempt < c.maxRetries-1 {
			log.Debug().Int("status", resp.StatusCode).Str("url", fullURL).Int("attempt", attempt+1).Msg("Server error, retrying")
			lastErr = nil
			continue
		}
		return resp, nil
	}

	if lastErr == nil {
		lastErr = errors.New("retries exhausted")
	}
	return nil, fmt.Errorf("%s %s after %d attempts: %w", method, path, c.maxRetries, lastErr)
}

func (c *Client) send(ctx context.Context, method, fullURL string, payload []byte) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			return
		}
	}(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
	}, nil
}
