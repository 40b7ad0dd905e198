// Package tickets holds the client-side ticket list: the authoritative list
// fetched from the backend, the filtered list shown to the user, and the
// plumbing that applies background fetch and delete results to both.
package tickets

import (
	"strings"

	"github.com/Joseda-hg/lazyticket/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Filter returns the tickets whose four fields each contain the matching
// criteria pattern, ignoring case. Input order is kept.
func Filter(records []model.Ticket, criteria model.Criteria) []model.Ticket {
	result := make([]model.Ticket, 0, len(records))
	if criteria.IsZero() {
		return append(result, records...)
	}

	m := newMatcher(criteria)
	for _, record := range records {
		if m.match(record) {
			result = append(result, record)
		}
	}
	return result
}

type matcher struct {
	caser    cases.Caser
	date     string
	time     string
	license  string
	location string
}

func newMatcher(criteria model.Criteria) *matcher {
	m := &matcher{caser: cases.Lower(language.Und)}
	m.date = m.fold(criteria.Date)
	m.time = m.fold(criteria.Time)
	m.license = m.fold(criteria.License)
	m.location = m.fold(criteria.Location)
	return m
}

func (m *matcher) match(record model.Ticket) bool {
	return m.contains(record.Date, m.date) &&
		m.contains(record.Time, m.time) &&
		m.contains(record.LicensePlate, m.license) &&
		m.contains(record.Location, m.location)
}

func (m *matcher) contains(value, pattern string) bool {
	if pattern == "" {
		return true
	}
	return strings.Contains(m.fold(value), pattern)
}

func (m *matcher) fold(value string) string {
	if value == "" {
		return ""
	}
	return m.caser.String(value)
}
