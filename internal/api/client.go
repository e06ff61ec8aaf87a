package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"campus-meetup-confirm/internal/config"
	"campus-meetup-confirm/internal/model"
	"campus-meetup-confirm/pkg/logger"
)

// ErrBackendRejected indicates a well-formed response with success=false
var ErrBackendRejected = errors.New("backend rejected request")

// Client talks to the marketplace REST backend. Completion and rating
// calls are issued exactly once per user action; retry is always an
// explicit user decision, never automatic.
type Client struct {
	httpClient *http.Client
	config     *config.APIConfig
	logger     *logger.Logger
}

// NewClient creates a new marketplace backend client
func NewClient(cfg *config.APIConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log,
	}
}

// FetchTransaction fetches a transaction by id and returns it as a session
func (c *Client) FetchTransaction(ctx context.Context, transactionID string) (*model.Session, error) {
	path := "/api/v1/transactions/" + url.PathEscape(transactionID)

	var resp model.TransactionResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	if !resp.Success || resp.Transaction == nil {
		return nil, fmt.Errorf("failed to fetch transaction: %w", ErrBackendRejected)
	}

	return resp.Transaction.Session(), nil
}

// CompleteTransaction marks the transaction complete. The caller holds the
// single-flight guard; this method performs one call and reports the result.
func (c *Client) CompleteTransaction(ctx context.Context, transactionID string) error {
	path := "/api/v1/transactions/" + url.PathEscape(transactionID) + "/complete"

	var resp model.CompleteResponse
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return fmt.Errorf("failed to complete transaction: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("failed to complete transaction: %w", ErrBackendRejected)
	}

	c.logger.WithTransactionID(transactionID).Info("Transaction marked complete")
	return nil
}

// SubmitRating posts feedback for a completed transaction
func (c *Client) SubmitRating(ctx context.Context, rating *model.Rating) error {
	if err := rating.Validate(); err != nil {
		return err
	}

	var resp model.RatingResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/ratings", rating, &resp); err != nil {
		return fmt.Errorf("failed to submit rating: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("failed to submit rating: %w", ErrBackendRejected)
	}

	c.logger.WithTransactionID(rating.TransactionID).Info("Rating submitted",
		"rating", rating.Rating,
		"categories", rating.Categories,
	)
	return nil
}

// do performs a single JSON request against the backend
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	} else {
		reader = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "campus-meetup-confirm/1.0")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
