package tui

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyticket/internal/api"
	"github.com/Joseda-hg/lazyticket/internal/tickets"
	"github.com/jesseduffield/gocui"
)

type formKind int

const (
	formLogin formKind = iota
	formRegister
	formTicket
)

type formField struct {
	Label  string
	Value  string
	Secret bool
}

type formState struct {
	kind   formKind
	fields []formField
	index  int
	busy   bool
}

const (
	fieldLoginEmail = iota
	fieldLoginPassword
)

const (
	fieldRegisterName = iota
	fieldRegisterSurname
	fieldRegisterEmail
	fieldRegisterPassword
	fieldRegisterConfirm
)

const (
	fieldTicketDate = iota
	fieldTicketTime
	fieldTicketLicense
	fieldTicketLocation
	fieldTicketPhoto
)

// maxPhotoBytes caps what the add form will read from disk.
const maxPhotoBytes = 10 << 20

func newLoginForm(email string) *formState {
	return &formState{kind: formLogin, fields: []formField{
		{Label: "Email", Value: email},
		{Label: "Password", Secret: true},
	}}
}

func newRegisterForm() *formState {
	return &formState{kind: formRegister, fields: []formField{
		{Label: "Name"},
		{Label: "Surname"},
		{Label: "Email"},
		{Label: "Password", Secret: true},
		{Label: "Repeat password", Secret: true},
	}}
}

func newTicketForm(now time.Time) *formState {
	return &formState{kind: formTicket, fields: []formField{
		{Label: "Date (YYYY-MM-DD)", Value: now.Format(tickets.DateLayout)},
		{Label: "Time (HH:MM)", Value: now.Format(tickets.TimeLayout)},
		{Label: "Licence plate"},
		{Label: "Location"},
		{Label: "Photo (optional path)"},
	}}
}

func (f *formState) title() string {
	switch f.kind {
	case formRegister:
		return "Create account"
	case formTicket:
		return "New ticket"
	default:
		return "Log in"
	}
}

func (f *formState) value(index int) string {
	return f.fields[index].Value
}

func parseLoginForm(form *formState) api.Credentials {
	return api.Credentials{
		Email:    form.value(fieldLoginEmail),
		Password: form.value(fieldLoginPassword),
	}
}

func parseRegisterForm(form *formState) api.RegisterInput {
	return api.RegisterInput{
		Name:     form.value(fieldRegisterName),
		Surname:  form.value(fieldRegisterSurname),
		Email:    form.value(fieldRegisterEmail),
		Password: form.value(fieldRegisterPassword),
		Confirm:  form.value(fieldRegisterConfirm),
	}
}

func parseTicketForm(form *formState) (api.NewTicket, error) {
	photo, err := readPhoto(form.value(fieldTicketPhoto))
	if err != nil {
		return api.NewTicket{}, err
	}
	return api.NewTicket{
		Date:         form.value(fieldTicketDate),
		Time:         form.value(fieldTicketTime),
		LicensePlate: form.value(fieldTicketLicense),
		Location:     form.value(fieldTicketLocation),
		Image:        photo,
	}, nil
}

// readPhoto loads a JPEG or PNG from disk. An empty path means no photo.
func readPhoto(path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("photo: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("photo: %s is a directory", path)
	}
	if info.Size() > maxPhotoBytes {
		return nil, fmt.Errorf("photo: file is larger than 10 MB")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("photo: %w", err)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || (format != "jpeg" && format != "png") {
		return nil, fmt.Errorf("photo: only JPEG and PNG images are supported")
	}
	return data, nil
}

type formEditor struct {
	ui *UI
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil || ui.form.busy {
		return false
	}
	editText(&ui.form.fields[ui.form.index].Value, key, ch, mod)
	if view != nil {
		ui.renderForm(view)
	}
	return true
}

// filterEditor edits the focused filter field and re-filters on every key.
type filterEditor struct {
	ui *UI
}

func (e *filterEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil {
		return false
	}
	value := ui.filterValue(ui.filterIndex)
	if !editText(&value, key, ch, mod) {
		return false
	}
	ui.setFilterValue(ui.filterIndex, value)
	if view != nil {
		ui.renderFilter(view)
	}
	return true
}

func editText(value *string, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(*value)
		if len(runes) > 0 {
			*value = string(runes[:len(runes)-1])
		}
		return true
	case gocui.KeySpace:
		*value += " "
		return true
	case gocui.KeyCtrlU:
		*value = ""
		return true
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		*value += string(ch)
		return true
	}
	return false
}
