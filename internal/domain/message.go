package domain

import "time"

// InboundMessage is a text message received from the messaging platform.
type InboundMessage struct {
	Channel    string
	UserID     string
	ReplyToken string
	Content    string
	Timestamp  time.Time
}

// OutboundMessage is a reply addressed to the platform's reply API.
// Exactly one of the Reply variants is set; ReplyNone messages are never
// constructed (the loop skips sending instead).
type OutboundMessage struct {
	Channel    string
	ReplyToken string
	Reply      Reply
}
