package watermarkapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/basel-ax/watermark-builder/internal/domain"
)

// Client represents the watermarking service API client
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient creates a new watermarking service client.
// A zero timeout leaves the HTTP client without a deadline.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		endpoint: endpoint,
	}
}

// Endpoint returns the URL the client posts to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// ProcessText sends picture with a text watermark description and returns the rendered image
func (c *Client) ProcessText(ctx context.Context, picture domain.ImagePayload, params domain.TextWatermarkParams) ([]byte, error) {
	return c.process(ctx, textWatermarkForm(picture, params))
}

// ProcessCustom sends picture together with the watermark image and returns the rendered image
func (c *Client) ProcessCustom(ctx context.Context, picture domain.ImagePayload, params domain.CustomWatermarkParams) ([]byte, error) {
	return c.process(ctx, customWatermarkForm(picture, params))
}

func (c *Client) process(ctx context.Context, f *form) ([]byte, error) {
	body, contentType, err := f.encode()
	if err != nil {
		return nil, &domain.TransportError{Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.TransportError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.TransportError{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeServiceError(resp.StatusCode, data)
	}

	return data, nil
}

type apiErrorCodes struct {
	ErrorCodes []apiErrorCode `json:"errorCodes"`
}

type apiErrorCode struct {
	Code int     `json:"code"`
	Data *string `json:"data"`
}

// decodeServiceError turns a non-200 body into a *domain.ServiceError, or a
// *domain.TransportError when the body is not the documented JSON document
func decodeServiceError(status int, body []byte) error {
	var result apiErrorCodes
	if err := json.Unmarshal(body, &result); err != nil {
		return &domain.TransportError{Err: fmt.Errorf("failed to decode error response (status %d): %w", status, err)}
	}

	codes := make([]domain.ErrorCode, 0, len(result.ErrorCodes))
	for _, ec := range result.ErrorCodes {
		codes = append(codes, domain.ErrorCode(ec.Code))
	}

	return &domain.ServiceError{
		StatusCode: status,
		Codes:      codes,
	}
}

var _ domain.WatermarkService = (*Client)(nil)
