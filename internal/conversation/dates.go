package conversation

import (
	"errors"
	"strings"
	"time"

	"github.com/hgbot/hgbot/internal/storage"
)

const (
	today              = "Сегодня"
	yesterday          = "Вчера"
	dayBeforeYesterday = "Позавчера"

	displayDate = "02.01.2006"
)

var (
	errDateFormat = errors.New("unrecognised date")
	errDateFuture = errors.New("date is in the future")
)

// Layouts accepted for literal dates. Layouts without a year mean the current one.
var dateLayouts = []string{
	"2/1/06", "2.1.06",
	"2/1/2006", "2.1.2006",
}

var shortDateLayouts = []string{"2/1", "2.1"}

// ParseDate resolves a relative day token or a literal DD/MM/YY date against
// now. The result is midnight in now's location. Dates after now's calendar
// day are rejected.
func ParseDate(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	loc := now.Location()
	base := storage.DateOnly(now)

	var date time.Time
	switch strings.ToLower(text) {
	case strings.ToLower(today):
		date = base
	case strings.ToLower(yesterday):
		date = base.AddDate(0, 0, -1)
	case strings.ToLower(dayBeforeYesterday):
		date = base.AddDate(0, 0, -2)
	default:
		parsed, err := parseLiteral(text, now.Year(), loc)
		if err != nil {
			return time.Time{}, err
		}
		date = parsed
	}

	if storage.CivilDay(date) > storage.CivilDay(now) {
		return time.Time{}, errDateFuture
	}
	return date, nil
}

func parseLiteral(text string, year int, loc *time.Location) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t, nil
		}
	}
	for _, layout := range shortDateLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			// Rebuild in the current year; Feb 29 of a common year is rejected.
			d := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, loc)
			if d.Day() != t.Day() {
				return time.Time{}, errDateFormat
			}
			return d, nil
		}
	}
	return time.Time{}, errDateFormat
}

// FormatDate renders a meeting date the way it is shown to leaders.
func FormatDate(t time.Time) string {
	return t.Format(displayDate)
}
