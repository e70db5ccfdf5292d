package genie

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charotAmine/databricks-genieslack/pkg/metrics"
)

// User-facing failure messages carried on a failed Answer.
const (
	errSendFailed = "Failed to send message to Genie"
	errExtractIDs = "Could not extract conversation/message IDs from response"
	errTimedOut   = "Timed out waiting for Genie response"
	errUnknown    = "Unknown error"
)

// Ask sends a question and blocks until the answer is ready, the backend
// reports a terminal failure, or the wall-clock deadline elapses. An empty
// conversationID starts a new conversation; otherwise the question continues
// the given one. Ask never returns an error: every failure mode is folded
// into a failure Answer the caller can branch on.
func (c *Client) Ask(ctx context.Context, question, conversationID string) Answer {
	start := time.Now()
	answer, polls := c.ask(ctx, question, conversationID)

	outcome := "success"
	if !answer.Success {
		outcome = "failure"
	}
	metrics.RecordAsk(outcome, time.Since(start).Seconds(), polls)

	return answer
}

func (c *Client) ask(ctx context.Context, question, conversationID string) (Answer, int) {
	cid, mid, err := c.send(ctx, question, conversationID)
	if err != nil {
		var genieErr *Error
		if errors.As(err, &genieErr) && genieErr.Code == ErrorMalformed {
			return Answer{Success: false, ConversationID: conversationID, Error: errExtractIDs}, 0
		}
		return Answer{Success: false, ConversationID: conversationID, Error: errSendFailed}, 0
	}

	terminal, polls := c.pollUntilDone(ctx, cid, mid)
	if terminal == nil {
		return Answer{Success: false, ConversationID: cid, MessageID: mid, Error: errTimedOut}, polls
	}

	return c.parseTerminal(ctx, cid, mid, terminal), polls
}

// send posts the question and extracts the conversation and message IDs from
// the response. The start-conversation response nests the message; the
// create-message response is the message itself. Missing IDs are reported as
// a malformed response to guard against response-shape drift.
func (c *Client) send(ctx context.Context, question, conversationID string) (cid, mid string, err error) {
	if conversationID != "" {
		msg, err := c.CreateMessage(ctx, conversationID, question)
		if err != nil {
			return "", "", err
		}
		cid = msg.ConversationID
		if cid == "" {
			cid = conversationID
		}
		mid = msg.ID
	} else {
		resp, err := c.StartConversation(ctx, question)
		if err != nil {
			return "", "", err
		}
		cid = resp.Message.ConversationID
		if cid == "" {
			cid = resp.Conversation.ID
		}
		mid = resp.Message.ID
	}

	if cid == "" || mid == "" {
		return "", "", newError(ErrorMalformed, "missing conversation or message ID", nil)
	}
	return cid, mid, nil
}

// pollUntilDone polls GetMessage at a constant interval until the message
// reaches a terminal status or the deadline elapses. A transport failure
// mid-poll aborts immediately rather than retrying. Returns the terminal
// message (nil on timeout or abort) and the number of polls issued.
func (c *Client) pollUntilDone(ctx context.Context, conversationID, messageID string) (*Message, int) {
	deadline := time.Now().Add(c.maxWait)
	polls := 0

	for time.Now().Before(deadline) {
		msg, err := c.GetMessage(ctx, conversationID, messageID)
		polls++
		if err != nil {
			c.logger.Warn("poll aborted",
				zap.String("message_id", messageID),
				zap.Error(err),
			)
			return nil, polls
		}
		if msg.Status.Terminal() {
			if msg.Status != StatusCompleted {
				c.logger.Warn("message finished with failure status",
					zap.String("message_id", messageID),
					zap.String("status", string(msg.Status)),
				)
			}
			return msg, polls
		}

		select {
		case <-ctx.Done():
			return nil, polls
		case <-time.After(c.pollInterval):
		}
	}

	c.logger.Warn("timed out waiting for message", zap.String("message_id", messageID))
	return nil, polls
}

// parseTerminal normalizes a terminal message payload into an Answer.
//
// For COMPLETED messages it walks the attachments in order: text contents and
// query descriptions accumulate into the answer text; the last query
// attachment's SQL wins; rows are fetched for every query attachment carrying
// an attachment ID and the last successful fetch wins. The multi-query case
// is deliberately kept that simple.
func (c *Client) parseTerminal(ctx context.Context, conversationID, messageID string, msg *Message) Answer {
	if msg.Status != StatusCompleted {
		errMsg := errUnknown
		if msg.Error != nil && msg.Error.Message != "" {
			errMsg = msg.Error.Message
		}
		return Answer{
			Success:        false,
			ConversationID: conversationID,
			MessageID:      messageID,
			Error:          errMsg,
		}
	}

	var textParts []string
	var sql *string
	var result *QueryResult

	for _, att := range msg.Attachments {
		if att.Text != nil && att.Text.Content != "" {
			textParts = append(textParts, att.Text.Content)
		}
		if att.Query != nil {
			if att.Query.Description != "" {
				textParts = append(textParts, att.Query.Description)
			}
			q := att.Query.Query
			sql = &q
			if att.AttachmentID != "" {
				qr, err := c.GetQueryResult(ctx, conversationID, messageID, att.AttachmentID)
				if err != nil {
					c.logger.Warn("query result fetch failed",
						zap.String("attachment_id", att.AttachmentID),
						zap.Error(err),
					)
				} else {
					result = qr
				}
			}
		}
	}

	text := strings.Join(textParts, "\n\n")
	if text == "" {
		text = msg.Content
	}

	return Answer{
		Success:        true,
		ConversationID: conversationID,
		MessageID:      messageID,
		Text:           strings.TrimSpace(text),
		SQL:            sql,
		QueryResult:    result,
	}
}
