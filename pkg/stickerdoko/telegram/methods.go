package telegram

const (
	MethodSendMessage       = "sendMessage"
	MethodAnswerInlineQuery = "answerInlineQuery"

	ParseModeHTML = "HTML"
)

// SendMessage replies in a chat. Returned as a webhook response body,
// Telegram executes it without a separate API call.
type SendMessage struct {
	Method           string `json:"method"`
	ChatID           int64  `json:"chat_id"`
	Text             string `json:"text"`
	ParseMode        string `json:"parse_mode,omitempty"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
}

// NewReply builds a plain text reply to m
func NewReply(m *Message, text string) *SendMessage {
	return &SendMessage{
		Method:           MethodSendMessage,
		ChatID:           m.Chat.ID,
		Text:             text,
		ReplyToMessageID: m.MessageID,
	}
}

// NewHTMLReply builds an HTML formatted reply to m
func NewHTMLReply(m *Message, text string) *SendMessage {
	reply := NewReply(m, text)
	reply.ParseMode = ParseModeHTML
	return reply
}

// InlineQueryResultCachedSticker is an inline result pointing at a sticker
// already stored on Telegram's servers
type InlineQueryResultCachedSticker struct {
	Type          string `json:"type"`
	ID            string `json:"id"`
	StickerFileID string `json:"sticker_file_id"`
}

// NewCachedSticker builds a sticker result. id comes back in
// ChosenInlineResult.ResultID when the user picks it.
func NewCachedSticker(id, fileID string) InlineQueryResultCachedSticker {
	return InlineQueryResultCachedSticker{Type: "sticker", ID: id, StickerFileID: fileID}
}

// AnswerInlineQuery answers an inline query with a result list
type AnswerInlineQuery struct {
	Method        string                           `json:"method"`
	InlineQueryID string                           `json:"inline_query_id"`
	Results       []InlineQueryResultCachedSticker `json:"results"`
	CacheTime     int                              `json:"cache_time"`
	IsPersonal    bool                             `json:"is_personal,omitempty"`
}

// NewAnswerInlineQuery builds an answer to q. cacheTime is in seconds;
// zero asks Telegram not to cache, so popularity changes show up at once.
func NewAnswerInlineQuery(q *InlineQuery, results []InlineQueryResultCachedSticker, cacheTime int) *AnswerInlineQuery {
	if results == nil {
		results = []InlineQueryResultCachedSticker{}
	}
	return &AnswerInlineQuery{
		Method:        MethodAnswerInlineQuery,
		InlineQueryID: q.ID,
		Results:       results,
		CacheTime:     cacheTime,
	}
}
