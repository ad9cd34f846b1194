package utils

import (
	"log"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// SessionClock answers whether a timestamp falls within the regular trading
// session, using scmhub/calendar exchange calendars.
type SessionClock struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// NewSessionClock builds a clock for the market the symbol trades on.
// Suffix mapping to MIC code (ISO 10383); US listings default to NYSE.
func NewSessionClock(symbol string) *SessionClock {
	mic := "xnys"
	switch {
	case strings.HasSuffix(symbol, ".L"):
		mic = "xlon"
	case strings.HasSuffix(symbol, ".TO"):
		mic = "xtse"
	case strings.HasSuffix(symbol, ".T"):
		mic = "xtks"
	case strings.HasSuffix(symbol, ".HK"):
		mic = "xhkg"
	case strings.HasSuffix(symbol, ".AX"):
		mic = "xasx"
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar("xnys")
	}

	if cal == nil {
		log.Printf("WARNING: Failed to load calendar for MIC '%s' and fallback 'xnys'. Using simple fallback (Mon-Fri 09:30-16:00 NY).", mic)
		nyLoc, _ := time.LoadLocation("America/New_York")
		if nyLoc == nil {
			nyLoc = time.UTC
		}
		return &SessionClock{Fallback: true, Timezone: nyLoc}
	}

	return &SessionClock{Calendar: cal, Fallback: false, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (sc *SessionClock) IsTradingDay(date time.Time) bool {
	if sc.Timezone != nil {
		date = date.In(sc.Timezone)
	}

	if sc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return sc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsRegularHours checks if the market is in its regular session at t.
func (sc *SessionClock) IsRegularHours(t time.Time) bool {
	if sc.Timezone != nil {
		t = t.In(sc.Timezone)
	}

	if sc.Fallback {
		if !sc.IsTradingDay(t) {
			return false
		}

		hour := t.Hour()
		minute := t.Minute()

		// 9:30 - 16:00 NY Time
		if (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16 {
			return true
		}
		return false
	}

	return sc.Calendar.IsOpen(t)
}
