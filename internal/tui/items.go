package tui

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/Joseda-hg/lazyticket/internal/model"
	"github.com/Joseda-hg/lazyticket/internal/tickets"
	"github.com/dustin/go-humanize"
)

type imageState struct {
	loading bool
	missing bool
	data    []byte
	err     string
}

type detailState struct {
	ticketID int64
	image    imageState
	deleting bool
}

func formatTicketSummary(ticket model.Ticket, now time.Time) string {
	marker := " "
	if tickets.Expired(ticket, now) {
		marker = "!"
	}
	return fmt.Sprintf("%s %s %s | %s | %s", marker, ticket.Date, ticket.Time, ticket.LicensePlate, ticket.Location)
}

// formatTicketWhen renders "02 Jan 2006, 15:04", or the raw text when the
// stored values do not parse.
func formatTicketWhen(ticket model.Ticket) string {
	when, err := time.ParseInLocation(tickets.DateLayout+" "+tickets.TimeLayout, ticket.Date+" "+ticket.Time, time.Local)
	if err != nil {
		return fmt.Sprintf("%s, %s", ticket.Date, ticket.Time)
	}
	return when.Format("02 Jan 2006, 15:04")
}

func describeImage(state imageState) string {
	switch {
	case state.loading:
		return "loading..."
	case state.err != "":
		return "error: " + state.err
	case state.missing || len(state.data) == 0:
		return "none"
	}
	size := humanize.Bytes(uint64(len(state.data)))
	cfg, format, err := image.DecodeConfig(bytes.NewReader(state.data))
	if err != nil {
		return fmt.Sprintf("%s (unrecognised format)", size)
	}
	return fmt.Sprintf("%s %s %dx%d", size, format, cfg.Width, cfg.Height)
}

func formatExpiry(expiresAt time.Time, now time.Time) string {
	if !expiresAt.After(now) {
		return "session expired"
	}
	return "session ends " + humanize.RelTime(expiresAt, now, "ago", "from now")
}
