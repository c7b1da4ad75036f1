package calendar

import "regexp"

// Meeting is one committed booking. Exactly one meeting may exist per
// (Date, Time) pair.
type Meeting struct {
	ID           string `json:"id,omitempty"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	DayOfWeek    string `json:"day_of_week"`
	Time         string `json:"time" validate:"required"`
	AttendeeName string `json:"attendee_name"`
}

var timePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// SlotKey identifies the calendar slot a meeting occupies.
func (m Meeting) SlotKey() string {
	return m.Date + " " + m.Time
}
