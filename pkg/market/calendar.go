// Package market holds the exchange trading calendar (IST session hours and holidays).
package market

import (
	"time"

	"github.com/wonny/aegis-picker/pkg/config"
)

const dateKeyLayout = "2006-01-02"

// DefaultHolidays is used when MARKET_HOLIDAYS is not configured.
// 거래소 공지 기준으로 매년 갱신
var DefaultHolidays = []string{
	"2025-02-26", "2025-03-14", "2025-03-31", "2025-04-10", "2025-04-14",
	"2025-04-18", "2025-05-01", "2025-08-15", "2025-08-27", "2025-10-02",
	"2025-10-21", "2025-10-22", "2025-11-05", "2025-12-25",
}

// Calendar answers trading-day and session questions in exchange local time
// ⭐ SSOT: 날짜 키(YYYY-MM-DD, IST)와 장 운영시간은 여기서만 계산
type Calendar struct {
	loc      *time.Location
	holidays map[string]struct{}
	openHM   [2]int
	closeHM  [2]int
}

// NewCalendar builds a calendar from config, falling back to a fixed +05:30 zone
func NewCalendar(cfg config.MarketConfig) *Calendar {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		loc = time.FixedZone("IST", 5*3600+30*60)
	}

	holidays := cfg.Holidays
	if len(holidays) == 0 {
		holidays = DefaultHolidays
	}

	c := &Calendar{
		loc:      loc,
		holidays: make(map[string]struct{}, len(holidays)),
		openHM:   [2]int{9, 15},
		closeHM:  [2]int{15, 30},
	}
	for _, h := range holidays {
		c.holidays[h] = struct{}{}
	}
	return c
}

// Location returns the exchange time zone
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// DateKey formats t as the exchange-local YYYY-MM-DD
func (c *Calendar) DateKey(t time.Time) string {
	return t.In(c.loc).Format(dateKeyLayout)
}

// ParseDateKey returns local midnight of a date key
func (c *Calendar) ParseDateKey(key string) (time.Time, error) {
	return time.ParseInLocation(dateKeyLayout, key, c.loc)
}

// IsHoliday reports whether t falls on a configured exchange holiday
func (c *Calendar) IsHoliday(t time.Time) bool {
	_, ok := c.holidays[c.DateKey(t)]
	return ok
}

// IsTradingDay reports whether t is a weekday and not a holiday
func (c *Calendar) IsTradingDay(t time.Time) bool {
	local := t.In(c.loc)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !c.IsHoliday(local)
}

// SessionOpen returns 09:15 local on t's date
func (c *Calendar) SessionOpen(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), c.openHM[0], c.openHM[1], 0, 0, c.loc)
}

// SessionClose returns 15:30 local on t's date
func (c *Calendar) SessionClose(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), c.closeHM[0], c.closeHM[1], 0, 0, c.loc)
}

// IsOpen reports whether the cash session is live at t
func (c *Calendar) IsOpen(t time.Time) bool {
	if !c.IsTradingDay(t) {
		return false
	}
	return !t.Before(c.SessionOpen(t)) && t.Before(c.SessionClose(t))
}
