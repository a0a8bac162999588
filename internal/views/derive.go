package views

import "time"

// Season labels in display order
const (
	Spring = "Spring"
	Summer = "Summer"
	Fall   = "Fall"
	Winter = "Winter"
)

// Seasons is the display order used by every seasonal view
var Seasons = []string{Spring, Summer, Fall, Winter}

// Season maps a calendar month to its meteorological season
func Season(m time.Month) string {
	switch m {
	case time.March, time.April, time.May:
		return Spring
	case time.June, time.July, time.August:
		return Summer
	case time.September, time.October, time.November:
		return Fall
	}
	return Winter
}

// Time-of-day labels
const (
	DayLabel   = "Day (6AM-6PM)"
	NightLabel = "Night (6PM-6AM)"
)

// TimeOfDay splits the clock into Day for hours 6 through 17 and Night otherwise
func TimeOfDay(hour int) string {
	if hour >= 6 && hour < 18 {
		return DayLabel
	}
	return NightLabel
}

// DayOfWeek numbers Monday as 0 and Sunday as 6
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// MonthAbbrev returns Jan through Dec
func MonthAbbrev(m time.Month) string {
	return m.String()[:3]
}
