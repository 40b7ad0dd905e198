package tickets

import (
	"time"

	"github.com/Joseda-hg/lazyticket/internal/model"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Expired reports whether the ticket's validity ended at or before now, read
// in now's location. Tickets with an unparseable date or time never expire.
func Expired(ticket model.Ticket, now time.Time) bool {
	day, err := time.ParseInLocation(DateLayout, ticket.Date, now.Location())
	if err != nil {
		return false
	}
	clock, err := time.Parse(TimeLayout, ticket.Time)
	if err != nil {
		return false
	}
	deadline := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location())
	return !deadline.After(now)
}
