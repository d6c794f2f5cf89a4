// Package calendar fetches tagged work events from the calendar web app.
//
// The web app answers GET <base>?path=events&year=<year> with
//
//	{"events": [{"id", "title", "jobName", "startTime", "endTime", "description", "isAllDay"}], "count": n}
//
// where only events whose title starts with the job tag (default "[バイト]") are
// returned and jobName is the trimmed text after the tag.
package calendar

import (
	"strings"
	"time"
)

// DefaultTag prefixes the titles of calendar events that represent shifts.
const DefaultTag = "[バイト]"

// ISOLayout is the millisecond ISO-8601 form the calendar emits for
// timestamps. Keys built from it match byte for byte across sync runs.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// Event is a normalized calendar event.
type Event struct {
	ID          string
	Title       string
	JobName     *string
	Start       time.Time
	End         time.Time
	Description string
	AllDay      bool
}

// Key returns the reconciliation key eventId + "_" + startISO.
func (e Event) Key() string {
	return EventKey(e.ID, e.Start)
}

// EventKey builds the reconciliation key for an event identifier and start time.
func EventKey(eventID string, start time.Time) string {
	return eventID + "_" + FormatISO(start)
}

// FormatISO renders t in UTC using ISOLayout.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseJobName extracts the job name that follows tag in title. It returns nil
// when the title does not carry the tag or nothing follows it.
func ParseJobName(tag, title string) *string {
	if tag == "" {
		tag = DefaultTag
	}
	rest, ok := strings.CutPrefix(title, tag)
	if !ok || strings.ContainsAny(rest, "\r\n") {
		return nil
	}
	name := strings.TrimSpace(rest)
	if name == "" {
		return nil
	}
	return &name
}

type eventPayload struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	JobName     *string `json:"jobName"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	Description string  `json:"description"`
	IsAllDay    bool    `json:"isAllDay"`
}

type eventsResponse struct {
	Events []eventPayload `json:"events"`
	Count  int            `json:"count"`
	Error  string         `json:"error"`
}
