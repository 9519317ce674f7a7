// Package clock resolves the current wall-clock time in a fixed civil
// timezone. The agent grounds relative expressions like 「明天」 or
// 「下週一」 against this value, so a named zone (with DST rules) is used
// rather than a raw UTC offset.
package clock

import (
	"log/slog"
	"time"
)

const defaultTimezone = "Asia/Taipei"

// Clock reports the current time in one fixed timezone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New creates a Clock pinned to the named timezone. An unknown name falls
// back to a fixed +08:00 zone so the bridge stays usable on systems without
// tzdata.
func New(timezone string, logger *slog.Logger) *Clock {
	if timezone == "" {
		timezone = defaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("unknown timezone, using fixed +08:00", "timezone", timezone, "err", err)
		loc = time.FixedZone("UTC+8", 8*60*60)
	}
	return &Clock{loc: loc, now: time.Now}
}

// Now returns the current time as an ISO-8601 string, e.g.
// "2025-06-15T20:00:00+08:00".
func (c *Clock) Now() string {
	return c.now().In(c.loc).Format(time.RFC3339)
}

// NowTime returns the current time in the clock's timezone.
func (c *Clock) NowTime() time.Time {
	return c.now().In(c.loc)
}
