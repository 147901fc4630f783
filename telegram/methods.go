package telegram

import (
	"net/url"
)

// GetMe returns basic information about the bot.
type GetMe struct{}

func (GetMe) Method() string { return "getMe" }
func (GetMe) Params() Params { return nil }

// SendMessage sends a text message.
type SendMessage struct {
	ChatID              ChatID
	Text                string
	ParseMode           ParseMode
	ReplyToMessageID    int64
	DisableNotification bool
	ReplyMarkup         *InlineKeyboardMarkup
}

func (SendMessage) Method() string { return "sendMessage" }

func (r SendMessage) Params() Params {
	var p Params
	p.AddChat("chat_id", r.ChatID)
	p.AddString("text", r.Text)
	p.AddString("parse_mode", string(r.ParseMode))
	p.AddInt("reply_to_message_id", r.ReplyToMessageID)
	p.AddBool("disable_notification", r.DisableNotification)
	if r.ReplyMarkup != nil {
		p.Add("reply_markup", r.ReplyMarkup)
	}
	return p
}

// SendPhoto sends a photo.
type SendPhoto struct {
	ChatID    ChatID
	Photo     *InputFile
	Caption   string
	ParseMode ParseMode
}

func (SendPhoto) Method() string { return "sendPhoto" }

func (r SendPhoto) Params() Params {
	var p Params
	p.AddChat("chat_id", r.ChatID)
	p.AddFile("photo", r.Photo)
	p.AddString("caption", r.Caption)
	p.AddString("parse_mode", string(r.ParseMode))
	return p
}

// SendDocument sends a general file.
type SendDocument struct {
	ChatID    ChatID
	Document  *InputFile
	Thumbnail *InputFile
	Caption   string
	ParseMode ParseMode
}

func (SendDocument) Method() string { return "sendDocument" }

func (r SendDocument) Params() Params {
	var p Params
	p.AddChat("chat_id", r.ChatID)
	p.AddFile("document", r.Document)
	p.AddFile("thumbnail", r.Thumbnail)
	p.AddString("caption", r.Caption)
	p.AddString("parse_mode", string(r.ParseMode))
	return p
}

// SendMediaGroup sends two to ten photos, videos or documents as an album.
type SendMediaGroup struct {
	ChatID ChatID
	Media  []InputMedia
}

func (SendMediaGroup) Method() string { return "sendMediaGroup" }

func (r SendMediaGroup) Params() Params {
	var p Params
	p.AddChat("chat_id", r.ChatID)
	if len(r.Media) > 0 {
		p.Add("media", r.Media)
	}
	return p
}

// Files exposes the files nested in the media items.
func (r SendMediaGroup) Files() []*InputFile {
	var files []*InputFile
	for _, m := range r.Media {
		files = append(files, m.MediaFiles()...)
	}
	return files
}

// SendChatAction shows a status such as "typing" for a few seconds.
type SendChatAction struct {
	ChatID ChatID
	Action ChatAction
}

func (SendChatAction) Method() string { return "sendChatAction" }

func (r SendChatAction) Params() Params {
	var p Params
	p.AddChat("chat_id", r.ChatID)
	p.AddString("action", string(r.Action))
	return p
}

// EditMessageText replaces the text of a sent message.
type EditMessageText struct {
	ChatID    ChatID
	MessageID int64
	Text      string
	ParseMode ParseMode
}

func (EditMessageText) Method() string { return "editMessageText" }

func (r EditMessageText) Params() Params {
	var p Params
	p.AddChat("chat_id", r.ChatID)
	p.AddInt("message_id", r.MessageID)
	p.AddString("text", r.Text)
	p.AddString("parse_mode", string(r.ParseMode))
	return p
}

// SetMessageReaction sets the bot's reactions on a message.
type SetMessageReaction struct {
	ChatID    ChatID
	MessageID int64
	Reaction  []ReactionType
}

func (SetMessageReaction) Method() string { return "setMessageReaction" }

func (r SetMessageReaction) Params() Params {
	var p Params
	p.AddChat("chat_id", r.ChatID)
	p.AddInt("message_id", r.MessageID)
	if len(r.Reaction) > 0 {
		p.Add("reaction", r.Reaction)
	}
	return p
}

// AnswerCallbackQuery acknowledges an inline keyboard press.
type AnswerCallbackQuery struct {
	CallbackQueryID string
	Text            string
	ShowAlert       bool
}

func (AnswerCallbackQuery) Method() string { return "answerCallbackQuery" }

func (r AnswerCallbackQuery) Params() Params {
	var p Params
	p.AddString("callback_query_id", r.CallbackQueryID)
	p.AddString("text", r.Text)
	p.AddBool("show_alert", r.ShowAlert)
	return p
}

// GetUpdates receives incoming updates using long polling.
type GetUpdates struct {
	Offset         int64
	Limit          int
	Timeout        int
	AllowedUpdates []string
}

func (GetUpdates) Method() string { return "getUpdates" }

func (r GetUpdates) Params() Params {
	var p Params
	p.AddInt("offset", r.Offset)
	p.AddInt("limit", int64(r.Limit))
	p.AddInt("timeout", int64(r.Timeout))
	if len(r.AllowedUpdates) > 0 {
		p.Add("allowed_updates", r.AllowedUpdates)
	}
	return p
}

// SetWebhook registers an HTTPS URL that will receive updates. Receiving them
// is up to the caller.
type SetWebhook struct {
	URL                *url.URL
	Certificate        *InputFile
	SecretToken        string
	MaxConnections     int
	AllowedUpdates     []string
	DropPendingUpdates bool
}

func (SetWebhook) Method() string { return "setWebhook" }

func (r SetWebhook) Params() Params {
	var p Params
	p.AddURL("url", r.URL)
	p.AddFile("certificate", r.Certificate)
	p.AddString("secret_token", r.SecretToken)
	p.AddInt("max_connections", int64(r.MaxConnections))
	if len(r.AllowedUpdates) > 0 {
		p.Add("allowed_updates", r.AllowedUpdates)
	}
	p.AddBool("drop_pending_updates", r.DropPendingUpdates)
	return p
}

// DeleteWebhook removes the webhook so getUpdates can be used again.
type DeleteWebhook struct {
	DropPendingUpdates bool
}

func (DeleteWebhook) Method() string { return "deleteWebhook" }

func (r DeleteWebhook) Params() Params {
	var p Params
	p.AddBool("drop_pending_updates", r.DropPendingUpdates)
	return p
}

// GetWebhookInfo returns the current webhook status.
type GetWebhookInfo struct{}

func (GetWebhookInfo) Method() string { return "getWebhookInfo" }
func (GetWebhookInfo) Params() Params { return nil }

// GetFile prepares a file for download.
type GetFile struct {
	FileID string
}

func (GetFile) Method() string { return "getFile" }

func (r GetFile) Params() Params {
	var p Params
	p.AddString("file_id", r.FileID)
	return p
}

// SetMyCommands changes the bot's command menu for a scope.
type SetMyCommands struct {
	Commands     []BotCommand
	Scope        BotCommandScope
	LanguageCode string
}

func (SetMyCommands) Method() string { return "setMyCommands" }

func (r SetMyCommands) Params() Params {
	var p Params
	p.Add("commands", r.Commands)
	p.Add("scope", r.Scope)
	p.AddString("language_code", r.LanguageCode)
	return p
}

// GetChatMember returns a member of a chat.
type GetChatMember struct {
	ChatID ChatID
	UserID int64
}

func (GetChatMember) Method() string { return "getChatMember" }

func (r GetChatMember) Params() Params {
	var p Params
	p.AddChat("chat_id", r.ChatID)
	p.AddInt("user_id", r.UserID)
	return p
}
