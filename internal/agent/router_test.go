package agent

import (
	"strings"
	"testing"

	"eventmind/internal/domain"
)

func TestRoute_NoResponse(t *testing.T) {
	r := NewRouter(testLogger())
	reply := r.Route(`{"type":"NoResponse"}`)
	if reply.Kind != domain.ReplyNone {
		t.Errorf("expected no reply, got %q", reply.Kind)
	}
}

func TestRoute_NeedMoreDetails(t *testing.T) {
	r := NewRouter(testLogger())
	reply := r.Route(`{"type":"NeedMoreDetails","data":{"message":"哪一天？"}}`)
	if reply.Kind != domain.ReplyText {
		t.Fatalf("expected text reply, got %q", reply.Kind)
	}
	if reply.Text != "哪一天？" {
		t.Errorf("reply text = %q", reply.Text)
	}
}

func TestRoute_NeedMoreDetailsWithoutMessage(t *testing.T) {
	r := NewRouter(testLogger())
	reply := r.Route(`{"type":"NeedMoreDetails","data":{}}`)
	if reply.Kind != domain.ReplyText || reply.Text != genericErrorText {
		t.Errorf("missing message must yield the generic error, got %+v", reply)
	}
}

func TestRoute_Event(t *testing.T) {
	r := NewRouter(testLogger())
	reply := r.Route(`{"type":"Event","data":{"title":"開會","date":"2025-06-16","time":"14:00","note":""}}`)
	if reply.Kind != domain.ReplyCard {
		t.Fatalf("expected card reply, got %q", reply.Kind)
	}
	link := reply.Card.Button.URI
	if !strings.Contains(link, "dates=20250616T1400/20250616T1500") {
		t.Errorf("card link missing one-hour range: %s", link)
	}
	if !strings.Contains(link, "details=%E7%84%A1") {
		t.Errorf("empty note should encode the placeholder: %s", link)
	}
}

func TestRoute_EventWithMissingFields(t *testing.T) {
	// Defaulted date/time placeholders don't parse as timestamps, so the
	// card build fails and the user sees the generic error.
	r := NewRouter(testLogger())
	reply := r.Route(`{"type":"Event","data":{"title":"開會"}}`)
	if reply.Kind != domain.ReplyText || reply.Text != genericErrorText {
		t.Errorf("unparsable defaults must yield the generic error, got %+v", reply)
	}
}

func TestRoute_FencedJSON(t *testing.T) {
	r := NewRouter(testLogger())
	raw := "```json\n{\"type\":\"NeedMoreDetails\",\"data\":{\"message\":\"m\"}}\n```"
	reply := r.Route(raw)
	if reply.Kind != domain.ReplyText || reply.Text != "m" {
		t.Errorf("fenced JSON should be stripped and parsed, got %+v", reply)
	}
}

func TestRoute_MalformedJSON(t *testing.T) {
	inputs := []string{
		"not json at all",
		"{broken",
		"",
		"```json\n{still broken\n```",
	}
	r := NewRouter(testLogger())
	for _, in := range inputs {
		reply := r.Route(in)
		if reply.Kind != domain.ReplyText || reply.Text != genericErrorText {
			t.Errorf("Route(%q) = %+v, want generic error text", in, reply)
		}
	}
}

func TestRoute_UnknownDiscriminator(t *testing.T) {
	// Unknown tags are a protocol error, not an implicit event.
	r := NewRouter(testLogger())
	reply := r.Route(`{"type":"Surprise","data":{"title":"開會","date":"2025-06-16","time":"14:00"}}`)
	if reply.Kind != domain.ReplyText || reply.Text != genericErrorText {
		t.Errorf("unknown discriminator must yield the generic error, got %+v", reply)
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"`{\"a\":1}`", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
		{"{\"a\":1}", `{"a":1}`},
	}
	for _, c := range cases {
		if got := stripCodeFences(c.in); got != c.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
