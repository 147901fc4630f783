package telegram

import (
	"encoding/json"
	"fmt"
)

// ChatMember is one of ChatMemberOwner, ChatMemberAdministrator,
// ChatMemberMember, ChatMemberRestricted, ChatMemberLeft or ChatMemberBanned,
// told apart on the wire by "status".
type ChatMember interface {
	MemberStatus() string
	MemberUser() User
}

// ChatMemberOwner is the chat creator.
type ChatMemberOwner struct {
	User        User   `json:"user"`
	IsAnonymous bool   `json:"is_anonymous"`
	CustomTitle string `json:"custom_title,omitempty"`
}

// ChatMemberAdministrator is a chat administrator.
type ChatMemberAdministrator struct {
	User               User   `json:"user"`
	CanBeEdited        bool   `json:"can_be_edited"`
	CanDeleteMessages  bool   `json:"can_delete_messages"`
	CanRestrictMembers bool   `json:"can_restrict_members"`
	CanInviteUsers     bool   `json:"can_invite_users"`
	CustomTitle        string `json:"custom_title,omitempty"`
}

// ChatMemberMember is a regular member.
type ChatMemberMember struct {
	User      User  `json:"user"`
	UntilDate int64 `json:"until_date,omitempty"`
}

// ChatMemberRestricted is a member under restrictions.
type ChatMemberRestricted struct {
	User            User  `json:"user"`
	IsMember        bool  `json:"is_member"`
	CanSendMessages bool  `json:"can_send_messages"`
	UntilDate       int64 `json:"until_date"`
}

// ChatMemberLeft is a user who is not in the chat.
type ChatMemberLeft struct {
	User User `json:"user"`
}

// ChatMemberBanned is a user banned from the chat.
type ChatMemberBanned struct {
	User      User  `json:"user"`
	UntilDate int64 `json:"until_date"`
}

func (m ChatMemberOwner) MemberStatus() string         { return "creator" }
func (m ChatMemberAdministrator) MemberStatus() string { return "administrator" }
func (m ChatMemberMember) MemberStatus() string        { return "member" }
func (m ChatMemberRestricted) MemberStatus() string    { return "restricted" }
func (m ChatMemberLeft) MemberStatus() string          { return "left" }
func (m ChatMemberBanned) MemberStatus() string        { return "kicked" }

func (m ChatMemberOwner) MemberUser() User         { return m.User }
func (m ChatMemberAdministrator) MemberUser() User { return m.User }
func (m ChatMemberMember) MemberUser() User        { return m.User }
func (m ChatMemberRestricted) MemberUser() User    { return m.User }
func (m ChatMemberLeft) MemberUser() User          { return m.User }
func (m ChatMemberBanned) MemberUser() User        { return m.User }

// AnyChatMember decodes whichever ChatMember variant the "status" field names.
type AnyChatMember struct {
	ChatMember
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *AnyChatMember) UnmarshalJSON(data []byte) error {
	var head struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	var m ChatMember
	var err error
	switch head.Status {
	case "creator":
		m, err = decodeVariant[ChatMemberOwner](data)
	case "administrator":
		m, err = decodeVariant[ChatMemberAdministrator](data)
	case "member":
		m, err = decodeVariant[ChatMemberMember](data)
	case "restricted":
		m, err = decodeVariant[ChatMemberRestricted](data)
	case "left":
		m, err = decodeVariant[ChatMemberLeft](data)
	case "kicked":
		m, err = decodeVariant[ChatMemberBanned](data)
	default:
		return fmt.Errorf("telegram: unknown chat member status %q", head.Status)
	}
	if err != nil {
		return err
	}
	a.ChatMember = m
	return nil
}

// MarshalJSON writes the variant with its "status" discriminator.
func (a AnyChatMember) MarshalJSON() ([]byte, error) {
	if a.ChatMember == nil {
		return []byte("null"), nil
	}
	return withDiscriminator("status", a.MemberStatus(), a.ChatMember)
}

func decodeVariant[T any](data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

// withDiscriminator marshals v and prepends key:value to the object.
func withDiscriminator(key, value string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head, err := json.Marshal(map[string]string{key: value})
	if err != nil {
		return nil, err
	}
	if len(body) <= 2 {
		return head, nil
	}
	// {"key":"value"} + , + body without its opening brace
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

// BotCommandScope selects which users see a command list. The wire "type"
// is written by each variant's MarshalJSON.
type BotCommandScope interface {
	ScopeType() string
}

// BotCommandScopeDefault is the fallback scope.
type BotCommandScopeDefault struct{}

// BotCommandScopeAllPrivateChats covers all private chats.
type BotCommandScopeAllPrivateChats struct{}

// BotCommandScopeAllGroupChats covers all group and supergroup chats.
type BotCommandScopeAllGroupChats struct{}

// BotCommandScopeChat covers one chat.
type BotCommandScopeChat struct {
	ChatID ChatID `json:"chat_id"`
}

// BotCommandScopeChatMember covers one member of one chat.
type BotCommandScopeChatMember struct {
	ChatID ChatID `json:"chat_id"`
	UserID int64  `json:"user_id"`
}

func (BotCommandScopeDefault) ScopeType() string         { return "default" }
func (BotCommandScopeAllPrivateChats) ScopeType() string { return "all_private_chats" }
func (BotCommandScopeAllGroupChats) ScopeType() string   { return "all_group_chats" }
func (BotCommandScopeChat) ScopeType() string            { return "chat" }
func (BotCommandScopeChatMember) ScopeType() string      { return "chat_member" }

func (s BotCommandScopeDefault) MarshalJSON() ([]byte, error) {
	return withDiscriminator("type", s.ScopeType(), struct{}{})
}

func (s BotCommandScopeAllPrivateChats) MarshalJSON() ([]byte, error) {
	return withDiscriminator("type", s.ScopeType(), struct{}{})
}

func (s BotCommandScopeAllGroupChats) MarshalJSON() ([]byte, error) {
	return withDiscriminator("type", s.ScopeType(), struct{}{})
}

func (s BotCommandScopeChat) MarshalJSON() ([]byte, error) {
	type plain BotCommandScopeChat
	return withDiscriminator("type", s.ScopeType(), plain(s))
}

func (s BotCommandScopeChatMember) MarshalJSON() ([]byte, error) {
	type plain BotCommandScopeChatMember
	return withDiscriminator("type", s.ScopeType(), plain(s))
}

// InputMedia is one item of a media group: InputMediaPhoto, InputMediaVideo
// or InputMediaDocument.
type InputMedia interface {
	MediaType() string
	MediaFiles() []*InputFile
}

// InputMediaPhoto is a photo to send in a media group.
type InputMediaPhoto struct {
	Media     *InputFile `json:"media"`
	Caption   string     `json:"caption,omitempty"`
	ParseMode ParseMode  `json:"parse_mode,omitempty"`
}

// InputMediaVideo is a video to send in a media group.
type InputMediaVideo struct {
	Media     *InputFile `json:"media"`
	Thumbnail *InputFile `json:"thumbnail,omitempty"`
	Caption   string     `json:"caption,omitempty"`
	ParseMode ParseMode  `json:"parse_mode,omitempty"`
	Width     int        `json:"width,omitempty"`
	Height    int        `json:"height,omitempty"`
	Duration  int        `json:"duration,omitempty"`
}

// InputMediaDocument is a general file to send in a media group.
type InputMediaDocument struct {
	Media     *InputFile `json:"media"`
	Thumbnail *InputFile `json:"thumbnail,omitempty"`
	Caption   string     `json:"caption,omitempty"`
	ParseMode ParseMode  `json:"parse_mode,omitempty"`
}

func (m InputMediaPhoto) MediaType() string    { return "photo" }
func (m InputMediaVideo) MediaType() string    { return "video" }
func (m InputMediaDocument) MediaType() string { return "document" }

func (m InputMediaPhoto) MediaFiles() []*InputFile    { return nonNilFiles(m.Media) }
func (m InputMediaVideo) MediaFiles() []*InputFile    { return nonNilFiles(m.Media, m.Thumbnail) }
func (m InputMediaDocument) MediaFiles() []*InputFile { return nonNilFiles(m.Media, m.Thumbnail) }

func (m InputMediaPhoto) MarshalJSON() ([]byte, error) {
	type plain InputMediaPhoto
	return withDiscriminator("type", m.MediaType(), plain(m))
}

func (m InputMediaVideo) MarshalJSON() ([]byte, error) {
	type plain InputMediaVideo
	return withDiscriminator("type", m.MediaType(), plain(m))
}

func (m InputMediaDocument) MarshalJSON() ([]byte, error) {
	type plain InputMediaDocument
	return withDiscriminator("type", m.MediaType(), plain(m))
}

func nonNilFiles(files ...*InputFile) []*InputFile {
	var out []*InputFile
	for _, f := range files {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}
