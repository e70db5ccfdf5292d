// Package slack provides the Socket Mode adapter between Slack and the bot.
package slack

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"github.com/charotAmine/databricks-genieslack/internal/genie"
	"github.com/charotAmine/databricks-genieslack/internal/service"
	"github.com/charotAmine/databricks-genieslack/pkg/logger"
)

// Action IDs for the feedback prompt buttons.
const (
	ActionFeedbackPositive = "feedback_positive"
	ActionFeedbackNegative = "feedback_negative"
)

// Handler receives translated inbound events.
type Handler interface {
	HandleMessage(ctx context.Context, ev service.MessageEvent)
	HandleFeedback(ctx context.Context, act service.FeedbackAction, rating genie.Rating)
}

// Config holds Slack connection configuration.
type Config struct {
	BotToken string
	AppToken string
}

// Client wraps the Slack Web API and a Socket Mode connection. It translates
// Slack envelopes into bot events and implements service.ChatClient for the
// outbound direction.
type Client struct {
	api       *slack.Client
	socket    *socketmode.Client
	botUserID string
	logger    *logger.Logger
	connected atomic.Bool
}

var _ service.ChatClient = (*Client)(nil)

// Connect authenticates against Slack and prepares a Socket Mode client. The
// bot's own user ID is resolved here so self-originated events can be dropped.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))

	auth, err := api.AuthTestContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with Slack: %w", err)
	}

	return &Client{
		api:       api,
		socket:    socketmode.New(api),
		botUserID: auth.UserID,
		logger:    log,
	}, nil
}

// BotUserID returns the bot's own Slack user ID.
func (c *Client) BotUserID() string {
	return c.botUserID
}

// IsConnected returns true while the Socket Mode connection is up.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Run starts the Socket Mode connection and dispatches events to the handler
// until the context is cancelled. Each inbound event is handled on its own
// goroutine so one long poll never blocks unrelated events.
func (c *Client) Run(ctx context.Context, handler Handler) error {
	go func() {
		if err := c.socket.RunContext(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("socket mode connection ended", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-c.socket.Events:
			if !ok {
				return nil
			}
			switch evt.Type {
			case socketmode.EventTypeConnected:
				c.connected.Store(true)
				c.logger.Info("socket mode connected")
			case socketmode.EventTypeDisconnect, socketmode.EventTypeConnectionError:
				c.connected.Store(false)
				c.logger.Warn("socket mode disconnected", zap.String("event", string(evt.Type)))
			case socketmode.EventTypeEventsAPI:
				apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				if evt.Request != nil {
					c.socket.Ack(*evt.Request)
				}
				c.dispatchEvent(ctx, handler, apiEvent)
			case socketmode.EventTypeInteractive:
				callback, ok := evt.Data.(slack.InteractionCallback)
				if !ok {
					continue
				}
				if evt.Request != nil {
					c.socket.Ack(*evt.Request)
				}
				c.dispatchInteraction(ctx, handler, callback)
			}
		}
	}
}

func (c *Client) dispatchEvent(ctx context.Context, handler Handler, apiEvent slackevents.EventsAPIEvent) {
	if apiEvent.Type != slackevents.CallbackEvent {
		return
	}

	switch ev := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		go handler.HandleMessage(ctx, service.MessageEvent{
			Channel:  ev.Channel,
			UserID:   ev.User,
			BotID:    ev.BotID,
			ThreadTS: ev.ThreadTimeStamp,
			TS:       ev.TimeStamp,
			Text:     ev.Text,
		})
	case *slackevents.MessageEvent:
		// DMs and thread replies; channel mentions arrive as app_mention.
		if ev.ChannelType != "im" && ev.ThreadTimeStamp == "" {
			return
		}
		if ev.SubType != "" {
			return
		}
		// A threaded mention fires both event types; app_mention owns it.
		if strings.Contains(ev.Text, "<@"+c.botUserID+">") {
			return
		}
		go handler.HandleMessage(ctx, service.MessageEvent{
			Channel:  ev.Channel,
			UserID:   ev.User,
			BotID:    ev.BotID,
			ThreadTS: ev.ThreadTimeStamp,
			TS:       ev.TimeStamp,
			Text:     ev.Text,
		})
	}
}

func (c *Client) dispatchInteraction(ctx context.Context, handler Handler, callback slack.InteractionCallback) {
	if callback.Type != slack.InteractionTypeBlockActions {
		return
	}

	for _, action := range callback.ActionCallback.BlockActions {
		var rating genie.Rating
		switch action.ActionID {
		case ActionFeedbackPositive:
			rating = genie.RatingPositive
		case ActionFeedbackNegative:
			rating = genie.RatingNegative
		default:
			continue
		}
		go handler.HandleFeedback(ctx, service.FeedbackAction{
			Channel:   callback.Channel.ID,
			MessageTS: callback.Message.Timestamp,
		}, rating)
	}
}

// PostMessage posts a threaded text reply and returns its timestamp.
func (c *Client) PostMessage(ctx context.Context, channel, threadTS, text string) (string, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	_, ts, err := c.api.PostMessageContext(ctx, channel, opts...)
	return ts, err
}

// PostFeedbackPrompt posts the feedback-button prompt and returns its
// timestamp.
func (c *Client) PostFeedbackPrompt(ctx context.Context, channel, threadTS string) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, channel,
		slack.MsgOptionText("Was this response helpful?", false),
		slack.MsgOptionBlocks(feedbackBlocks()...),
		slack.MsgOptionTS(threadTS),
	)
	return ts, err
}

// UpdateMessage replaces an existing message with plain text, removing the
// action buttons.
func (c *Client) UpdateMessage(ctx context.Context, channel, ts, text string) error {
	section := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, "_"+text+"_", false, false),
		nil, nil,
	)
	_, _, _, err := c.api.UpdateMessageContext(ctx, channel, ts,
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(section),
	)
	return err
}

func feedbackBlocks() []slack.Block {
	section := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, "*Was this response helpful?*", false, false),
		nil, nil,
	)
	positive := slack.NewButtonBlockElement(ActionFeedbackPositive, "",
		slack.NewTextBlockObject(slack.PlainTextType, "Helpful", true, false))
	negative := slack.NewButtonBlockElement(ActionFeedbackNegative, "",
		slack.NewTextBlockObject(slack.PlainTextType, "Not Helpful", true, false))
	return []slack.Block{section, slack.NewActionBlock("feedback", positive, negative)}
}
