package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sundayezeilo/shortlinks/internal/httpx"
	"github.com/sundayezeilo/shortlinks/internal/shortener"
)

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

// apiError is a non-2xx answer from the service.
type apiError struct {
	Status int
	Body   httpx.ErrorResponse
}

func (e *apiError) Error() string {
	if e.Body.Message != "" {
		return fmt.Sprintf("%s (%d %s)", e.Body.Message, e.Status, e.Body.Error)
	}
	return fmt.Sprintf("unexpected status %d", e.Status)
}

func (c *client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return 0, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("could not reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr.Body)
		return resp.StatusCode, apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func (c *client) shorten(ctx context.Context, destination, custom string) (shortener.ShortenResponse, bool, error) {
	var res shortener.ShortenResponse
	status, err := c.do(ctx, http.MethodPost, "/shorten", shortener.ShortenRequest{
		Destination: destination,
		CustomCode:  custom,
	}, &res)
	return res, status == http.StatusCreated, err
}

func (c *client) stats(ctx context.Context, code string) (shortener.StatsResponse, error) {
	var res shortener.StatsResponse
	_, err := c.do(ctx, http.MethodGet, "/stats/"+url.PathEscape(code), nil, &res)
	return res, err
}

func (c *client) history(ctx context.Context) ([]shortener.HistoryItem, error) {
	var res []shortener.HistoryItem
	_, err := c.do(ctx, http.MethodGet, "/history", nil, &res)
	return res, err
}
