package domain

// ReplyKind discriminates the outcome of routing an agent reply.
type ReplyKind string

const (
	// ReplyNone means the agent decided the message needs no answer.
	ReplyNone ReplyKind = "none"
	// ReplyText is a plain text answer.
	ReplyText ReplyKind = "text"
	// ReplyCard is a confirmation card with a calendar link.
	ReplyCard ReplyKind = "card"
)

// Reply is the routed form of an agent's raw answer.
type Reply struct {
	Kind ReplyKind
	Text string
	Card *Card
}

// Card describes a renderable confirmation card. The channel layer owns the
// platform-specific layout; this is the platform-neutral content.
type Card struct {
	Header  string
	Lines   []string
	Button  CardButton
	AltText string
}

// CardButton is the card's single primary action: open a URI externally.
type CardButton struct {
	Label string
	URI   string
}

// TextReply builds a plain text reply.
func TextReply(text string) Reply {
	return Reply{Kind: ReplyText, Text: text}
}

// CardReply builds a card reply.
func CardReply(card *Card) Reply {
	return Reply{Kind: ReplyCard, Card: card}
}

// NoReply signals that no outbound message should be sent.
func NoReply() Reply {
	return Reply{Kind: ReplyNone}
}
