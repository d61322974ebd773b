package schedule

import (
	"fmt"
	"strings"
	"time"
)

var monthsGenitive = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// formatLongDate renders t as "5 октября 2026 г."; zero renders as "—".
func formatLongDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return fmt.Sprintf("%d %s %d г.", t.Day(), monthsGenitive[t.Month()-1], t.Year())
}

var (
	earliestMeeting = 8 * time.Hour
	latestMeeting   = 22*time.Hour + 59*time.Minute
)

// parseMeetingTime parses "HH:MM" and returns the offset from midnight. Times
// outside 08:00-22:59 are rejected.
func parseMeetingTime(raw string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse meeting time %q: %w", raw, err)
	}
	d := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
	if d < earliestMeeting {
		return 0, fmt.Errorf("meeting time %s is too early", raw)
	}
	if d > latestMeeting {
		return 0, fmt.Errorf("meeting time %s is too late", raw)
	}
	return d, nil
}

// weeklySpec returns the cron spec of the weekly instant that is offset away
// from weekday+clock in zone, expressed in loc. ref selects the week used to
// resolve daylight saving rules of loc.
func weeklySpec(weekday time.Weekday, clock, offset time.Duration, zone, loc *time.Location, ref time.Time) string {
	day := ref.In(zone)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, zone)
	day = day.AddDate(0, 0, (int(weekday)-int(day.Weekday())+7)%7)
	at := day.Add(clock + offset).In(loc)
	return fmt.Sprintf("%d %d * * %d", at.Minute(), at.Hour(), int(at.Weekday()))
}
