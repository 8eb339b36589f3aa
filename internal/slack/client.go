package slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Client wraps the Slack SDK for the operations this service performs.
type Client struct {
	api *slack.Client
}

// NewClient creates a Slack client from a bot token (xoxb-...).
func NewClient(botToken string) *Client {
	return &Client{api: slack.New(botToken)}
}

// PostMessage posts text into a thread, converting Markdown to mrkdwn first.
func (c *Client) PostMessage(ctx context.Context, channelID, threadTS, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(ToMrkdwn(text), false),
		slack.MsgOptionTS(threadTS),
	)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

// ChannelName resolves a channel id to its human-readable name.
func (c *Client) ChannelName(ctx context.Context, channelID string) (string, error) {
	info, err := c.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
		ChannelID: channelID,
	})
	if err != nil {
		return "", fmt.Errorf("get channel info: %w", err)
	}
	return info.Name, nil
}

// AuthTest verifies the bot token and returns the bot's user id.
func (c *Client) AuthTest(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("auth test: %w", err)
	}
	return resp.UserID, nil
}
