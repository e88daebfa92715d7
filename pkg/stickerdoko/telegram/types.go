// Package telegram holds the subset of the Bot API the sticker bot speaks:
// inbound webhook updates, command parsing, and the method objects returned
// in webhook responses.
package telegram

// Update is an incoming webhook update. At most one of the optional fields
// is set.
type Update struct {
	UpdateID           int64               `json:"update_id"`
	Message            *Message            `json:"message,omitempty"`
	InlineQuery        *InlineQuery        `json:"inline_query,omitempty"`
	ChosenInlineResult *ChosenInlineResult `json:"chosen_inline_result,omitempty"`
}

// User is a Telegram account
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// Chat is the conversation a message belongs to
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Message is a chat message
type Message struct {
	MessageID      int64    `json:"message_id"`
	From           *User    `json:"from,omitempty"`
	Chat           Chat     `json:"chat"`
	Text           string   `json:"text,omitempty"`
	Sticker        *Sticker `json:"sticker,omitempty"`
	ReplyToMessage *Message `json:"reply_to_message,omitempty"`
}

// Sticker is a sticker attached to a message
type Sticker struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	SetName      string `json:"set_name,omitempty"`
	Emoji        string `json:"emoji,omitempty"`
}

// InlineQuery is a search typed after the bot's @username
type InlineQuery struct {
	ID     string `json:"id"`
	From   User   `json:"from"`
	Query  string `json:"query"`
	Offset string `json:"offset"`
}

// ChosenInlineResult reports which inline result a user sent. Telegram only
// delivers these when inline feedback is enabled for the bot.
type ChosenInlineResult struct {
	ResultID string `json:"result_id"`
	From     User   `json:"from"`
	Query    string `json:"query"`
}

// Username returns the sender's username, or fallback when unknown
func (m *Message) Username(fallback string) string {
	if m.From == nil || m.From.Username == "" {
		return fallback
	}
	return m.From.Username
}

// UsernameOr returns the user's username, or fallback when unset
func (u User) UsernameOr(fallback string) string {
	if u.Username == "" {
		return fallback
	}
	return u.Username
}
