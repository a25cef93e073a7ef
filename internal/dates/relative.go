package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	offsetRegex  = regexp.MustCompile(`^([+-]?)(\d+)(MINUTE|HOUR|DAY|WEEK|MONTH|YEAR)$`)
	lastDayRegex = regexp.MustCompile(`^LAST(MONDAY|TUESDAY|WEDNESDAY|THURSDAY|FRIDAY|SATURDAY|SUNDAY)$`)
)

var weekdays = map[string]time.Weekday{
	"SUNDAY":    time.Sunday,
	"MONDAY":    time.Monday,
	"TUESDAY":   time.Tuesday,
	"WEDNESDAY": time.Wednesday,
	"THURSDAY":  time.Thursday,
	"FRIDAY":    time.Friday,
	"SATURDAY":  time.Saturday,
}

// IsRelative reports whether value is a supported relative token.
func IsRelative(value string) bool {
	_, ok := ResolveRelative(value, time.Now())
	return ok
}

// ResolveRelative resolves a relative token against now:
//
//	NOW            current datetime
//	TODAY          start of today
//	BEGINMONTH     first day of the current month
//	BEGINYEAR      first day of the current year
//	LASTMONDAY...  most recent such weekday strictly before today
//	-3DAY, 2WEEK   offset from now; MINUTE and HOUR keep the time of day
func ResolveRelative(value string, now time.Time) (Value, bool) {
	token := strings.ToUpper(strings.TrimSpace(value))
	switch token {
	case "":
		return Value{}, false
	case "NOW":
		return Value{Time: now, HasTime: true}, true
	case "TODAY":
		return Value{Time: startOfDay(now)}, true
	case "BEGINMONTH":
		return Value{Time: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())}, true
	case "BEGINYEAR":
		return Value{Time: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())}, true
	}

	if m := lastDayRegex.FindStringSubmatch(token); m != nil {
		target := weekdays[m[1]]
		back := (int(now.Weekday()) - int(target) + 7) % 7
		if back == 0 {
			back = 7
		}
		return Value{Time: startOfDay(now).AddDate(0, 0, -back)}, true
	}

	if m := offsetRegex.FindStringSubmatch(token); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return Value{}, false
		}
		if m[1] == "-" {
			n = -n
		}
		switch m[3] {
		case "MINUTE":
			return Value{Time: now.Add(time.Duration(n) * time.Minute), HasTime: true}, true
		case "HOUR":
			return Value{Time: now.Add(time.Duration(n) * time.Hour), HasTime: true}, true
		case "DAY":
			return Value{Time: now.AddDate(0, 0, n), HasTime: true}, true
		case "WEEK":
			return Value{Time: now.AddDate(0, 0, 7*n), HasTime: true}, true
		case "MONTH":
			return Value{Time: now.AddDate(0, n, 0), HasTime: true}, true
		case "YEAR":
			return Value{Time: now.AddDate(n, 0, 0), HasTime: true}, true
		}
	}
	return Value{}, false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
