package models

import "encoding/json"

// TelegramUpdate is the subset of a Bot API update the relay reads
type TelegramUpdate struct {
	UpdateID      int64            `json:"update_id"`
	Message       *TelegramMessage `json:"message,omitempty"`
	EditedMessage *TelegramMessage `json:"edited_message,omitempty"`
}

// TelegramMessage is an incoming chat message
type TelegramMessage struct {
	MessageID int64         `json:"message_id"`
	From      *TelegramUser `json:"from,omitempty"`
	Chat      TelegramChat  `json:"chat"`
	Text      string        `json:"text,omitempty"`
}

// TelegramUser identifies the sender
type TelegramUser struct {
	ID       int64  `json:"id"`
	IsBot    bool   `json:"is_bot"`
	Username string `json:"username,omitempty"`
}

// TelegramChat identifies the conversation a reply goes to
type TelegramChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// TelegramBotCommand is one entry of setMyCommands
type TelegramBotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// TelegramSendMessage is the sendMessage request body
type TelegramSendMessage struct {
	ChatID           int64  `json:"chat_id"`
	Text             string `json:"text"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
}

// TelegramChatAction is the sendChatAction request body
type TelegramChatAction struct {
	ChatID int64  `json:"chat_id"`
	Action string `json:"action"`
}

// TelegramSetMyCommands is the setMyCommands request body
type TelegramSetMyCommands struct {
	Commands []TelegramBotCommand `json:"commands"`
}

// TelegramSetWebhook is the setWebhook request body
type TelegramSetWebhook struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// TelegramDeleteWebhook is the deleteWebhook request body
type TelegramDeleteWebhook struct {
	DropPendingUpdates bool `json:"drop_pending_updates"`
}

// TelegramResponse wraps every Bot API response
type TelegramResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
}

// ToInbound converts an update into the transport-neutral inbound event.
// ok is false when the update carries no text message.
func (u *TelegramUpdate) ToInbound(requestID string) (InboundCommand, bool) {
	msg := u.Message
	if msg == nil || msg.Text == "" {
		return InboundCommand{}, false
	}

	var sender int64
	if msg.From != nil {
		sender = msg.From.ID
	}
	return InboundCommand{
		RequestID: requestID,
		Text:      msg.Text,
		SenderID:  sender,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
	}, true
}
