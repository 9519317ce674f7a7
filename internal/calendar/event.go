// Package calendar turns a structured event into a Google Calendar deep
// link and a confirmation card description. Everything here is pure: no
// clock reads, no I/O.
package calendar

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"eventmind/internal/domain"
)

// ErrMalformedTimestamp reports a date/time pair that does not match the
// expected YYYY-MM-DD / HH:mm layout.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

const (
	startLayout = "2006-01-02T15:04"
	gcalLayout  = "20060102T1504"

	// Every event is assumed to last one hour. The agent never supplies a
	// duration, and there is no override path.
	eventDuration = time.Hour

	calendarBase  = "https://calendar.google.com/calendar/render"
	eventLocation = "Taipei"

	defaultTitle = "無標題"
	defaultDate  = "未知日期"
	defaultTime  = "未知時間"
	emptyNote    = "無"
)

// Event is a validated event record built from an agent reply. It is
// constructed per reply, consumed to build a link and card, and discarded.
type Event struct {
	Title string
	Date  string // YYYY-MM-DD
	Time  string // HH:mm
	Note  string
}

// NewEvent applies placeholder defaults for missing fields. The note is
// kept verbatim; an empty note renders as 無.
func NewEvent(title, date, timeStr, note string) Event {
	if title == "" {
		title = defaultTitle
	}
	if date == "" {
		date = defaultDate
	}
	if timeStr == "" {
		timeStr = defaultTime
	}
	return Event{Title: title, Date: date, Time: timeStr, Note: note}
}

// Start parses the event's combined date+time.
func (e Event) Start() (time.Time, error) {
	start, err := time.Parse(startLayout, e.Date+"T"+e.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q %q", ErrMalformedTimestamp, e.Date, e.Time)
	}
	return start, nil
}

// Link builds the calendar deep link. Title and note are form-encoded; the
// dates range is start and start+1h in compact YYYYMMDDTHHMM form.
func (e Event) Link() (string, error) {
	start, err := e.Start()
	if err != nil {
		return "", err
	}
	end := start.Add(eventDuration)

	note := e.Note
	if note == "" {
		note = emptyNote
	}

	link := fmt.Sprintf(
		"%s?action=TEMPLATE&text=%s&details=%s&location=%s&dates=%s/%s&sf=true&openExternalBrowser=1",
		calendarBase,
		url.QueryEscape(e.Title),
		url.QueryEscape(note),
		eventLocation,
		start.Format(gcalLayout),
		end.Format(gcalLayout),
	)
	return link, nil
}

// Card builds the confirmation card shown to the user: a header, one line
// per event field, and a single button opening the calendar link.
func (e Event) Card() (*domain.Card, error) {
	link, err := e.Link()
	if err != nil {
		return nil, err
	}

	note := e.Note
	if note == "" {
		note = emptyNote
	}

	return &domain.Card{
		Header:  "事件確認",
		AltText: "事件確認",
		Lines: []string{
			"標題：" + e.Title,
			"日期：" + e.Date,
			"時間：" + e.Time,
			"備註：" + note,
		},
		Button: domain.CardButton{
			Label: "新增到行事曆",
			URI:   link,
		},
	}, nil
}
