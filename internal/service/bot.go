package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charotAmine/databricks-genieslack/internal/genie"
	"github.com/charotAmine/databricks-genieslack/pkg/logger"
	"github.com/charotAmine/databricks-genieslack/pkg/metrics"
)

// Asker is the Genie surface the bot consumes.
type Asker interface {
	Ask(ctx context.Context, question, conversationID string) genie.Answer
	SendFeedback(ctx context.Context, conversationID, messageID string, rating genie.Rating, comment string) bool
}

// ChatClient posts and updates messages on the chat surface.
type ChatClient interface {
	// PostMessage posts a threaded text reply and returns its timestamp.
	PostMessage(ctx context.Context, channel, threadTS, text string) (string, error)

	// PostFeedbackPrompt posts the feedback-button prompt and returns its
	// timestamp.
	PostFeedbackPrompt(ctx context.Context, channel, threadTS string) (string, error)

	// UpdateMessage replaces an existing message with plain text, removing
	// any interactive blocks.
	UpdateMessage(ctx context.Context, channel, ts, text string) error
}

// MessageEvent is an inbound question event, already unwrapped from the chat
// platform's envelope.
type MessageEvent struct {
	Channel  string
	UserID   string
	BotID    string // non-empty when the sender is a bot
	ThreadTS string // empty when the message starts a new thread
	TS       string
	Text     string
}

// FeedbackAction is an inbound button press on a feedback prompt.
type FeedbackAction struct {
	Channel   string
	MessageTS string // timestamp of the prompt message the button lives on
}

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

// StripMention removes mention markup from a question.
func StripMention(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

// Bot orchestrates the question flow: inbound event → conversation lookup →
// Genie ask → formatted replies → feedback prompt.
type Bot struct {
	genie        Asker
	chat         ChatClient
	tracker      *Tracker
	logger       *logger.Logger
	botUserID    string
	tableMaxRows int
}

// NewBot creates the orchestrator.
func NewBot(asker Asker, chat ChatClient, tracker *Tracker, log *logger.Logger, botUserID string, tableMaxRows int) *Bot {
	if tableMaxRows <= 0 {
		tableMaxRows = DefaultTableMaxRows
	}
	return &Bot{
		genie:        asker,
		chat:         chat,
		tracker:      tracker,
		logger:       log,
		botUserID:    botUserID,
		tableMaxRows: tableMaxRows,
	}
}

// HandleMessage processes one inbound question event end to end. It blocks
// for up to the Genie client's max wait; callers run it on its own goroutine
// so unrelated events keep flowing.
func (b *Bot) HandleMessage(ctx context.Context, ev MessageEvent) {
	// Never answer ourselves or other bots.
	if ev.BotID != "" || (b.botUserID != "" && ev.UserID == b.botUserID) {
		return
	}

	threadTS := ev.ThreadTS
	if threadTS == "" {
		threadTS = ev.TS
	}
	log := b.logger.WithEvent(uuid.New().String(), ev.Channel, threadTS)

	question := StripMention(ev.Text)
	if question == "" {
		metrics.QuestionsTotal.WithLabelValues("empty").Inc()
		if _, err := b.chat.PostMessage(ctx, ev.Channel, threadTS, "Please ask me a question about your data!"); err != nil {
			log.Error("failed to post prompt-for-input reply", zap.Error(err))
		}
		return
	}

	// Best-effort placeholder so the user knows the question landed.
	if _, err := b.chat.PostMessage(ctx, ev.Channel, threadTS, "Thinking..."); err != nil {
		log.Warn("failed to post placeholder", zap.Error(err))
	}

	conversationID, _ := b.tracker.Conversation(threadTS)

	answer := b.genie.Ask(ctx, question, conversationID)

	if answer.ConversationID != "" {
		b.tracker.BindConversation(threadTS, answer.ConversationID)
	}

	if _, err := b.chat.PostMessage(ctx, ev.Channel, threadTS, FormatAnswer(answer)); err != nil {
		log.Error("failed to post answer", zap.Error(err))
	}

	if answer.QueryResult != nil {
		if table := FormatTable(answer.QueryResult, b.tableMaxRows); table != "" {
			if _, err := b.chat.PostMessage(ctx, ev.Channel, threadTS, table); err != nil {
				log.Error("failed to post query result table", zap.Error(err))
			}
		}
	}

	if !answer.Success {
		metrics.QuestionsTotal.WithLabelValues("failure").Inc()
		log.Info("question failed", zap.String("error", answer.Error))
		return
	}
	metrics.QuestionsTotal.WithLabelValues("success").Inc()

	if answer.ConversationID != "" && answer.MessageID != "" {
		promptTS, err := b.chat.PostFeedbackPrompt(ctx, ev.Channel, threadTS)
		if err != nil {
			log.Error("failed to post feedback prompt", zap.Error(err))
			return
		}
		b.tracker.BindFeedback(promptTS, answer.ConversationID, answer.MessageID)
	}

	log.Info("question answered",
		zap.String("conversation_id", answer.ConversationID),
		zap.String("message_id", answer.MessageID),
		zap.Bool("has_table", answer.QueryResult != nil),
	)
}

// HandleFeedback processes a rating button press. An action on a prompt with
// no recorded binding is silently dropped: no backend call, no user-visible
// error.
func (b *Bot) HandleFeedback(ctx context.Context, act FeedbackAction, rating genie.Rating) {
	ref, ok := b.tracker.Feedback(act.MessageTS)
	if !ok {
		b.logger.Warn("no feedback binding for message", zap.String("message_ts", act.MessageTS))
		return
	}

	submitted := b.genie.SendFeedback(ctx, ref.ConversationID, ref.MessageID, rating, "")

	status := "ok"
	label := "Thanks for your feedback!"
	if !submitted {
		status = "error"
		label = "Failed to submit feedback."
	}
	metrics.FeedbackTotal.WithLabelValues(string(rating), status).Inc()

	if err := b.chat.UpdateMessage(ctx, act.Channel, act.MessageTS, label); err != nil {
		b.logger.Error("failed to update feedback prompt",
			zap.String("message_ts", act.MessageTS),
			zap.Error(err),
		)
	}
}
