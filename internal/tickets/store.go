package tickets

import "github.com/Joseda-hg/lazyticket/internal/model"

// Store owns the authoritative ticket list and the displayed list derived
// from it. Displayed always equals Filter(authoritative, criteria) once a
// method returns. A Store belongs to a single goroutine, normally the UI loop.
type Store struct {
	all       []model.Ticket
	displayed []model.Ticket
	criteria  model.Criteria
}

func NewStore() *Store {
	return &Store{}
}

// ReplaceAll installs records as the new authoritative list.
func (s *Store) ReplaceAll(records []model.Ticket) {
	all := append(make([]model.Ticket, 0, len(records)), records...)
	displayed := Filter(all, s.criteria)
	s.all, s.displayed = all, displayed
}

// RemoveByID drops the ticket with the given id from both lists and reports
// whether one was found.
func (s *Store) RemoveByID(id int64) bool {
	index := indexOf(s.all, id)
	if index < 0 {
		return false
	}

	all := make([]model.Ticket, 0, len(s.all)-1)
	all = append(all, s.all[:index]...)
	all = append(all, s.all[index+1:]...)

	displayed := s.displayed
	if shown := indexOf(s.displayed, id); shown >= 0 {
		displayed = make([]model.Ticket, 0, len(s.displayed)-1)
		displayed = append(displayed, s.displayed[:shown]...)
		displayed = append(displayed, s.displayed[shown+1:]...)
	}

	s.all, s.displayed = all, displayed
	return true
}

// SetCriteria replaces the filter criteria and recomputes the displayed list.
func (s *Store) SetCriteria(criteria model.Criteria) {
	displayed := Filter(s.all, criteria)
	s.criteria, s.displayed = criteria, displayed
}

func (s *Store) Criteria() model.Criteria {
	return s.criteria
}

// Displayed returns a copy of the displayed list.
func (s *Store) Displayed() []model.Ticket {
	return append(make([]model.Ticket, 0, len(s.displayed)), s.displayed...)
}

// Get returns the authoritative record with the given id.
func (s *Store) Get(id int64) (model.Ticket, bool) {
	index := indexOf(s.all, id)
	if index < 0 {
		return model.Ticket{}, false
	}
	return s.all[index], true
}

// IDs lists the authoritative ids in server order.
func (s *Store) IDs() []int64 {
	ids := make([]int64, 0, len(s.all))
	for _, record := range s.all {
		ids = append(ids, record.ID)
	}
	return ids
}

func (s *Store) Len() int {
	return len(s.displayed)
}

func (s *Store) Total() int {
	return len(s.all)
}

func indexOf(records []model.Ticket, id int64) int {
	for i, record := range records {
		if record.ID == id {
			return i
		}
	}
	return -1
}
