package agent

import (
	"encoding/json"
	"log/slog"
	"strings"

	"eventmind/internal/calendar"
	"eventmind/internal/domain"
)

// genericErrorText is the only error surface end users ever see for
// protocol-level failures (unparseable or malformed agent replies).
const genericErrorText = "發生錯誤"

// Reply discriminators emitted by the agent per its instruction.
const (
	typeNoResponse     = "NoResponse"
	typeNeedMoreDetail = "NeedMoreDetails"
	typeEvent          = "Event"
)

// Router parses the agent's raw reply into one of the three structured
// variants and builds the outbound reply. Unknown discriminators are a
// protocol error, not an implicit event.
type Router struct {
	logger *slog.Logger
}

func NewRouter(logger *slog.Logger) *Router {
	return &Router{logger: logger}
}

type rawReply struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type detailsData struct {
	Message string `json:"message"`
}

type eventData struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Note  string `json:"note"`
}

// Route never fails: every malformed input resolves to the generic error
// text, and only ReplyNone suppresses the outbound message entirely.
func (r *Router) Route(raw string) domain.Reply {
	cleaned := stripCodeFences(raw)

	var reply rawReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		r.logger.Warn("agent reply is not valid JSON", "err", err, "len", len(cleaned))
		return domain.TextReply(genericErrorText)
	}

	switch reply.Type {
	case typeNoResponse:
		return domain.NoReply()

	case typeNeedMoreDetail:
		var details detailsData
		if err := json.Unmarshal(reply.Data, &details); err != nil || details.Message == "" {
			r.logger.Warn("NeedMoreDetails reply without a message")
			return domain.TextReply(genericErrorText)
		}
		return domain.TextReply(details.Message)

	case typeEvent:
		var ev eventData
		if len(reply.Data) > 0 {
			if err := json.Unmarshal(reply.Data, &ev); err != nil {
				r.logger.Warn("event reply with malformed data", "err", err)
				return domain.TextReply(genericErrorText)
			}
		}
		event := calendar.NewEvent(ev.Title, ev.Date, ev.Time, ev.Note)
		card, err := event.Card()
		if err != nil {
			r.logger.Warn("cannot build event card", "err", err, "date", ev.Date, "time", ev.Time)
			return domain.TextReply(genericErrorText)
		}
		return domain.CardReply(card)

	default:
		r.logger.Warn("unrecognized agent reply type", "type", reply.Type)
		return domain.TextReply(genericErrorText)
	}
}

// stripCodeFences removes the markdown fence artifacts the runtime wraps
// around JSON output: ```json / ``` markers and stray backticks.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "`", "")
	return strings.TrimSpace(s)
}
