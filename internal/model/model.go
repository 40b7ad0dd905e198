package model

// Ticket is one server-known ticket. Date and Time keep the backend's
// canonical text (YYYY-MM-DD and HH:MM). Image stays nil until it is fetched
// for a single ticket.
type Ticket struct {
	ID           int64
	Date         string
	Time         string
	LicensePlate string
	Location     string
	Image        []byte
}

// Criteria holds the four filter patterns typed by the user. An empty pattern
// matches every value.
type Criteria struct {
	Date     string
	Time     string
	License  string
	Location string
}

func (c Criteria) IsZero() bool {
	return c.Date == "" && c.Time == "" && c.License == "" && c.Location == ""
}
