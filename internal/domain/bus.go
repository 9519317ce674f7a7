package domain

// MessageBus decouples the webhook channel from the agent loop.
type MessageBus interface {
	// Publish delivers an inbound message to the agent loop.
	Publish(msg InboundMessage)
	// Subscribe returns the inbound message stream.
	Subscribe() <-chan InboundMessage
	// SendOutbound dispatches a reply to the channel it belongs to.
	SendOutbound(msg OutboundMessage)
	// OnOutbound registers the outbound handler for a channel.
	OnOutbound(channelName string, handler func(OutboundMessage))
	// Close shuts the bus down; Publish becomes a no-op.
	Close()
}
