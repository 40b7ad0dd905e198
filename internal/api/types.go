package api

import (
	"strings"
	"time"

	"github.com/Joseda-hg/lazyticket/internal/model"
)

// Credentials are sent to /auth/login.
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	Name        string `json:"name"`
	Surname     string `json:"surname"`
}

// RegisterInput is the account creation form. Confirm never leaves the client.
type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Surname  string `json:"surname" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Confirm  string `json:"-" validate:"required,eqfield=Password"`
}

// NewTicket is the add-ticket form. Image holds raw photo bytes, if any.
type NewTicket struct {
	Date         string `validate:"required,datetime=2006-01-02"`
	Time         string `validate:"required,datetime=15:04"`
	LicensePlate string `validate:"required"`
	Location     string `validate:"required"`
	Image        []byte
}

// CreateResult is the body of a successful ticket upload.
type CreateResult struct {
	Message string `json:"msg"`
	ID      int64  `json:"id"`
}

func (c *Credentials) normalize() {
	c.Email = strings.TrimSpace(c.Email)
}

func (r *RegisterInput) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Surname = strings.TrimSpace(r.Surname)
	r.Email = strings.TrimSpace(r.Email)
	r.Password = strings.TrimSpace(r.Password)
	r.Confirm = strings.TrimSpace(r.Confirm)
}

func (n *NewTicket) normalize() {
	n.Date = strings.TrimSpace(n.Date)
	n.Time = strings.TrimSpace(n.Time)
	n.LicensePlate = strings.TrimSpace(n.LicensePlate)
	n.Location = strings.TrimSpace(n.Location)
}

type ticketPayload struct {
	ID            int64   `json:"id,omitempty"`
	Date          string  `json:"date"`
	Time          string  `json:"time"`
	VehicleNumber string  `json:"vehicle_number"`
	Location      string  `json:"location"`
	ImageBase64   *string `json:"image_base64,omitempty"`
}

type uploadPayload struct {
	ticketPayload
	Notified   bool   `json:"notified"`
	UploadedAt string `json:"uploaded_at"`
}

type imagePayload struct {
	ImageBase64 string `json:"image_base64"`
}

type messagePayload struct {
	Message string `json:"msg"`
}

type pushTokenPayload struct {
	Token string `json:"fcm_token"`
}

func (p ticketPayload) toModel() model.Ticket {
	return model.Ticket{
		ID:           p.ID,
		Date:         p.Date,
		Time:         trimSeconds(p.Time),
		LicensePlate: p.VehicleNumber,
		Location:     p.Location,
	}
}

// trimSeconds turns the backend's "HH:MM:SS" into "HH:MM".
func trimSeconds(value string) string {
	parsed, err := time.Parse("15:04:05", value)
	if err != nil {
		return value
	}
	return parsed.Format("15:04")
}
