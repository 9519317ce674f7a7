package channel

import "eventmind/internal/domain"

// flexBubble renders a domain.Card as a LINE Flex bubble: bold header, one
// text line per card line, and a footer with the single primary URI button.
func flexBubble(card *domain.Card) map[string]any {
	bodyContents := make([]map[string]any, 0, len(card.Lines))
	for _, line := range card.Lines {
		bodyContents = append(bodyContents, map[string]any{
			"type": "text",
			"text": line,
			"wrap": true,
		})
	}

	return map[string]any{
		"type": "bubble",
		"header": map[string]any{
			"type":   "box",
			"layout": "vertical",
			"contents": []map[string]any{
				{"type": "text", "text": card.Header, "weight": "bold", "size": "lg"},
			},
		},
		"body": map[string]any{
			"type":     "box",
			"layout":   "vertical",
			"spacing":  "md",
			"contents": bodyContents,
		},
		"footer": map[string]any{
			"type":    "box",
			"layout":  "vertical",
			"spacing": "sm",
			"contents": []map[string]any{
				{
					"type":  "button",
					"style": "primary",
					"action": map[string]any{
						"type":  "uri",
						"label": card.Button.Label,
						"uri":   card.Button.URI,
					},
				},
			},
		},
	}
}

// replyMessages builds the messages array for the reply API call.
func replyMessages(reply domain.Reply) []map[string]any {
	switch reply.Kind {
	case domain.ReplyText:
		return []map[string]any{
			{"type": "text", "text": reply.Text},
		}
	case domain.ReplyCard:
		return []map[string]any{
			{
				"type":     "flex",
				"altText":  reply.Card.AltText,
				"contents": flexBubble(reply.Card),
			},
		}
	default:
		return nil
	}
}
