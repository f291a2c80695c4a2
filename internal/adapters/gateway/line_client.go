// Package gateway implements external API adapters
// Following Hexagonal Architecture: Outbound adapters for external services
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"facebot/internal/core/domain"
	"facebot/internal/core/ports"
)

// Custom errors for specific platform API failures
var (
	// ErrFetchFailed indicates the attachment content could not be retrieved
	ErrFetchFailed = errors.New("content fetch failed")

	// ErrReplyFailed indicates the reply could not be delivered. The reply
	// token is single-use, so callers must not retry.
	ErrReplyFailed = errors.New("reply send failed")
)

// Ensure LineClient implements the outbound ports
var (
	_ ports.ContentFetcher = (*LineClient)(nil)
	_ ports.ReplySender    = (*LineClient)(nil)
)

// LineClient handles communication with the messaging platform:
// reply delivery and attachment content download
type LineClient struct {
	httpClient   *http.Client
	apiEndpoint  string // Reply API base, e.g. https://api.line.me
	dataEndpoint string // Content API base, e.g. https://api-data.line.me
	channelToken string // Bearer token for both endpoints
}

// NewLineClient creates a new platform API client.
// Endpoints are injectable so tests can point the client at a local server.
func NewLineClient(apiEndpoint, dataEndpoint, channelToken string) *LineClient {
	return &LineClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		apiEndpoint:  apiEndpoint,
		dataEndpoint: dataEndpoint,
		channelToken: channelToken,
	}
}

// replyRequest is the reply API payload structure
type replyRequest struct {
	ReplyToken string                `json:"replyToken"`
	Messages   []domain.ReplyMessage `json:"messages"`
}

// FetchContent downloads the binary attachment behind a message ID and
// returns it base64-encoded for the detection service.
func (c *LineClient) FetchContent(ctx context.Context, messageID string) (string, error) {
	url := fmt.Sprintf("%s/v2/bot/message/%s/content", c.dataEndpoint, messageID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.channelToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		slog.Error("Content API returned non-success status",
			"status_code", resp.StatusCode,
			"message_id", messageID,
			"body", string(body),
		)
		return "", fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrFetchFailed, err)
	}

	slog.Debug("Attachment content fetched",
		"message_id", messageID,
		"bytes", len(raw),
	)

	return base64.StdEncoding.EncodeToString(raw), nil
}

// Reply sends one authenticated POST to the reply endpoint with the ordered
// message batch. No retry: the token is consumed by the first attempt.
func (c *LineClient) Reply(ctx context.Context, replyToken string, messages []domain.ReplyMessage) error {
	url := c.apiEndpoint + "/v2/bot/message/reply"

	payload, err := json.Marshal(replyRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", ErrReplyFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrReplyFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.channelToken)

	slog.Info("Sending reply",
		"message_count", len(messages),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReplyFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		slog.Error("Reply API returned non-success status",
			"status_code", resp.StatusCode,
			"body", string(body),
		)
		return fmt.Errorf("%w: status %d", ErrReplyFailed, resp.StatusCode)
	}

	slog.Info("Reply sent successfully",
		"message_count", len(messages),
	)

	return nil
}
