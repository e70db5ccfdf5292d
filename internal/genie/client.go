package genie

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charotAmine/databricks-genieslack/pkg/logger"
	"github.com/charotAmine/databricks-genieslack/pkg/metrics"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxWait      = 90 * time.Second
	defaultHTTPTimeout  = 30 * time.Second

	// maxErrorBodyBytes caps the response excerpt carried in error reasons.
	maxErrorBodyBytes = 500
)

// Config holds Genie client configuration.
type Config struct {
	Host         string
	Token        string
	SpaceID      string
	PollInterval time.Duration
	MaxWait      time.Duration
	HTTPTimeout  time.Duration
}

// Client is a thin wrapper around the Genie Conversation REST API. All calls
// share one authenticated http.Client.
type Client struct {
	host         string
	token        string
	spaceID      string
	pollInterval time.Duration
	maxWait      time.Duration
	httpClient   *http.Client
	logger       *logger.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a new Genie client.
func New(cfg Config, log *logger.Logger, opts ...Option) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("genie: host must not be empty")
	}
	if cfg.Token == "" {
		return nil, errors.New("genie: token must not be empty")
	}
	if cfg.SpaceID == "" {
		return nil, errors.New("genie: space ID must not be empty")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}

	c := &Client{
		host:         strings.TrimRight(cfg.Host, "/"),
		token:        cfg.Token,
		spaceID:      cfg.SpaceID,
		pollInterval: cfg.PollInterval,
		maxWait:      cfg.MaxWait,
		httpClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		logger:       log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StartConversation begins a new conversation with an initial question.
func (c *Client) StartConversation(ctx context.Context, question string) (*startConversationResponse, error) {
	path := fmt.Sprintf("/api/2.0/genie/spaces/%s/start-conversation", c.spaceID)
	var resp startConversationResponse
	if err := c.do(ctx, "start_conversation", http.MethodPost, path, map[string]string{"content": question}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateMessage sends a follow-up question inside an existing conversation.
func (c *Client) CreateMessage(ctx context.Context, conversationID, question string) (*Message, error) {
	path := fmt.Sprintf("/api/2.0/genie/spaces/%s/conversations/%s/messages", c.spaceID, conversationID)
	var msg Message
	if err := c.do(ctx, "create_message", http.MethodPost, path, map[string]string{"content": question}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessage polls for the status and result of a message.
func (c *Client) GetMessage(ctx context.Context, conversationID, messageID string) (*Message, error) {
	path := fmt.Sprintf("/api/2.0/genie/spaces/%s/conversations/%s/messages/%s", c.spaceID, conversationID, messageID)
	var msg Message
	if err := c.do(ctx, "get_message", http.MethodGet, path, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetQueryResult retrieves the query result rows for an attachment.
func (c *Client) GetQueryResult(ctx context.Context, conversationID, messageID, attachmentID string) (*QueryResult, error) {
	path := fmt.Sprintf("/api/2.0/genie/spaces/%s/conversations/%s/messages/%s/attachments/%s/query-result",
		c.spaceID, conversationID, messageID, attachmentID)
	var qr QueryResult
	if err := c.do(ctx, "get_query_result", http.MethodGet, path, nil, &qr); err != nil {
		return nil, err
	}
	return &qr, nil
}

// SendFeedback submits thumbs-up / thumbs-down feedback on an answer. The
// rating is upper-cased before sending. Returns whether the submission
// succeeded; failures are logged, never returned.
func (c *Client) SendFeedback(ctx context.Context, conversationID, messageID string, rating Rating, comment string) bool {
	path := fmt.Sprintf("/api/2.0/genie/spaces/%s/conversations/%s/messages/%s/feedback",
		c.spaceID, conversationID, messageID)

	payload := map[string]string{"rating": strings.ToUpper(string(rating))}
	if comment != "" {
		payload["feedback_text"] = comment
	}

	if err := c.do(ctx, "send_feedback", http.MethodPost, path, payload, nil); err != nil {
		c.logger.Error("feedback submission failed",
			zap.String("conversation_id", conversationID),
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// do executes one authenticated request and decodes the JSON body into out
// (when out is non-nil and the body is non-empty). Every failure comes back as
// a *Error; nothing is allowed to escape as a panic or untyped fault.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return newError(ErrorMalformed, operation, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.host+path, reqBody)
	if err != nil {
		return newError(ErrorTransport, operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordGenieRequest(operation, "error", time.Since(start).Seconds())
		c.logger.Error("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return newError(ErrorTransport, operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordGenieRequest(operation, "error", time.Since(start).Seconds())
		return newError(ErrorTransport, operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code := ErrorTransport
		status := "error"
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			code = ErrorUnauthorized
			status = "unauthorized"
		}
		metrics.RecordGenieRequest(operation, status, time.Since(start).Seconds())
		excerpt := string(respBody)
		if len(excerpt) > maxErrorBodyBytes {
			excerpt = excerpt[:maxErrorBodyBytes]
		}
		c.logger.Error("unexpected status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", excerpt),
		)
		return newError(code, fmt.Sprintf("%s: status %d: %s", operation, resp.StatusCode, excerpt), nil)
	}

	metrics.RecordGenieRequest(operation, "ok", time.Since(start).Seconds())

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return newError(ErrorMalformed, operation, err)
		}
	}
	return nil
}
