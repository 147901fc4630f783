package telegram

import (
	"context"
	"log/slog"
)

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	u, err := Send[User](ctx, c, GetMe{})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SendMessage sends a text message and returns it as delivered.
func (c *Client) SendMessage(ctx context.Context, r SendMessage) (*Message, error) {
	return sendMessageResult(ctx, c, r)
}

// SendMarkdown converts Markdown to Telegram HTML and sends it.
func (c *Client) SendMarkdown(ctx context.Context, chatID ChatID, md string) (*Message, error) {
	return c.SendMessage(ctx, SendMessage{
		ChatID:    chatID,
		Text:      MarkdownToHTML(md),
		ParseMode: ParseModeHTML,
	})
}

// SendPhoto sends a photo.
func (c *Client) SendPhoto(ctx context.Context, r SendPhoto) (*Message, error) {
	return sendMessageResult(ctx, c, r)
}

// SendDocument sends a general file.
func (c *Client) SendDocument(ctx context.Context, r SendDocument) (*Message, error) {
	return sendMessageResult(ctx, c, r)
}

// SendMediaGroup sends an album and returns its messages.
func (c *Client) SendMediaGroup(ctx context.Context, r SendMediaGroup) ([]Message, error) {
	return Send[[]Message](ctx, c, r)
}

// SendChatAction shows a chat action such as typing.
func (c *Client) SendChatAction(ctx context.Context, chatID ChatID, action ChatAction) error {
	_, err := Send[bool](ctx, c, SendChatAction{ChatID: chatID, Action: action})
	return err
}

// EditMessageText replaces the text of a message the bot sent.
func (c *Client) EditMessageText(ctx context.Context, r EditMessageText) (*Message, error) {
	return sendMessageResult(ctx, c, r)
}

// React sets an emoji reaction on a message.
func (c *Client) React(ctx context.Context, chatID ChatID, messageID int64, emoji string) error {
	slog.Debug("setting reaction", "component", "telegram", "operation", "react", "chat_id", chatID.String(), "emoji", emoji)
	_, err := Send[bool](ctx, c, SetMessageReaction{
		ChatID:    chatID,
		MessageID: messageID,
		Reaction:  []ReactionType{{Type: "emoji", Emoji: emoji}},
	})
	return err
}

// GetUpdates fetches pending updates.
func (c *Client) GetUpdates(ctx context.Context, r GetUpdates) ([]Update, error) {
	return Send[[]Update](ctx, c, r)
}

// SetWebhook registers the webhook URL.
func (c *Client) SetWebhook(ctx context.Context, r SetWebhook) error {
	_, err := Send[bool](ctx, c, r)
	return err
}

// DeleteWebhook removes the webhook.
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	_, err := Send[bool](ctx, c, DeleteWebhook{DropPendingUpdates: dropPending})
	return err
}

// GetWebhookInfo returns the webhook status.
func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	info, err := Send[WebhookInfo](ctx, c, GetWebhookInfo{})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// SetMyCommands replaces the command menu for a scope; a nil scope is the default one.
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand, scope BotCommandScope) error {
	_, err := Send[bool](ctx, c, SetMyCommands{Commands: commands, Scope: scope})
	return err
}

// GetChatMember returns a chat member as one of the ChatMember variants.
func (c *Client) GetChatMember(ctx context.Context, chatID ChatID, userID int64) (ChatMember, error) {
	m, err := Send[AnyChatMember](ctx, c, GetChatMember{ChatID: chatID, UserID: userID})
	if err != nil {
		return nil, err
	}
	return m.ChatMember, nil
}

// AnswerCallbackQuery acknowledges a callback button press.
func (c *Client) AnswerCallbackQuery(ctx context.Context, r AnswerCallbackQuery) error {
	_, err := Send[bool](ctx, c, r)
	return err
}

func sendMessageResult(ctx context.Context, c *Client, r Request) (*Message, error) {
	m, err := Send[Message](ctx, c, r)
	if err != nil {
		return nil, err
	}
	slog.Debug("message sent", "component", "telegram", "operation", r.Method(), "message_id", m.MessageID)
	return &m, nil
}
