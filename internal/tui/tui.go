package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyticket/internal/api"
	"github.com/Joseda-hg/lazyticket/internal/db"
	"github.com/Joseda-hg/lazyticket/internal/logging"
	"github.com/Joseda-hg/lazyticket/internal/model"
	"github.com/Joseda-hg/lazyticket/internal/tickets"
	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
)

const (
	viewHeader  = "header"
	viewFooter  = "footer"
	viewFilter  = "filter"
	viewTickets = "tickets"
	viewDetails = "details"
	viewForm    = "form"
)

const (
	filterDate = iota
	filterTime
	filterLicense
	filterLocation
)

var filterLabels = []string{"Date", "Time", "Licence", "Location"}

// Backend is the part of the API client the screens use.
type Backend interface {
	tickets.Source
	SetToken(token string)
	Login(ctx context.Context, creds api.Credentials) (*api.LoginResult, error)
	Register(ctx context.Context, input api.RegisterInput) error
	RegisterPushToken(ctx context.Context, token string) error
	GetTicketImage(ctx context.Context, id int64) ([]byte, error)
	CreateTicket(ctx context.Context, input api.NewTicket) (int64, error)
}

type Options struct {
	Backend  Backend
	Sessions *db.Store
	Logger   *slog.Logger
}

type UI struct {
	backend  Backend
	sessions *db.Store
	store    *tickets.Store
	loader   *tickets.Loader
	logger   *slog.Logger
	dispatch tickets.Dispatcher
	now      func() time.Time

	ctx           context.Context
	cancel        context.CancelFunc
	sessionCtx    context.Context
	cancelSession context.CancelFunc

	session     *db.Session
	form        *formState
	detail      *detailState
	focus       string
	selected    int
	filterIndex int
	pending     int
	status      string

	formEditor   *formEditor
	filterEditor *filterEditor
}

func Run(opts Options) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := newUI(opts, func(fn func()) {
		gui.Update(func(*gocui.Gui) error {
			fn()
			return nil
		})
	})
	defer ui.close()

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	if err := ui.start(); err != nil {
		return err
	}

	if err := gui.MainLoop(); err != nil && !goerrors.Is(err, gocui.ErrQuit) {
		return err
	}

	return nil
}

func newUI(opts Options, dispatch tickets.Dispatcher) *UI {
	logger := logging.WithComponent(opts.Logger, "tui")
	store := tickets.NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	ui := &UI{
		backend:  opts.Backend,
		sessions: opts.Sessions,
		store:    store,
		loader:   tickets.NewLoader(opts.Backend, store, dispatch, logging.WithComponent(opts.Logger, "tickets")),
		logger:   logger,
		dispatch: dispatch,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		focus:    viewTickets,
	}
	ui.formEditor = &formEditor{ui: ui}
	ui.filterEditor = &filterEditor{ui: ui}
	return ui
}

func (u *UI) close() {
	if u.cancelSession != nil {
		u.cancelSession()
	}
	u.cancel()
}

// start restores the saved session, or shows the login form.
func (u *UI) start() error {
	session, err := u.sessions.LoadSession(u.ctx)
	if errors.Is(err, db.ErrNoSession) {
		u.form = newLoginForm(session.Email)
		return nil
	}
	if err != nil {
		return err
	}

	if session.Expired(u.now()) {
		u.logger.Info("saved session expired", "email", session.Email)
		if err := u.sessions.ClearSession(u.ctx); err != nil {
			return err
		}
		u.form = newLoginForm(session.Email)
		u.status = "session expired, log in again"
		return nil
	}

	u.beginSession(session)
	return nil
}

func (u *UI) beginSession(session db.Session) {
	if u.cancelSession != nil {
		u.cancelSession()
	}
	u.sessionCtx, u.cancelSession = context.WithCancel(u.ctx)
	u.session = &session
	u.backend.SetToken(session.Token)
	u.form = nil
	u.detail = nil
	u.focus = viewTickets
	u.selected = 0

	u.registerPushToken()
	u.fetch()
}

func (u *UI) endSession(status string) error {
	email := ""
	if u.session != nil {
		email = u.session.Email
	}
	if u.cancelSession != nil {
		u.cancelSession()
		u.cancelSession = nil
	}
	if err := u.sessions.ClearSession(u.ctx); err != nil {
		u.logger.Error("clear session failed", "error", err)
	}

	u.backend.SetToken("")
	u.store.ReplaceAll(nil)
	u.store.SetCriteria(model.Criteria{})
	u.session = nil
	u.detail = nil
	u.selected = 0
	u.focus = viewTickets
	u.form = newLoginForm(email)
	u.status = status
	return nil
}

// async runs work off the UI goroutine; the func it returns is applied on
// the UI goroutine.
func (u *UI) async(ctx context.Context, work func(ctx context.Context) func()) {
	u.pending++
	go func() {
		apply := work(ctx)
		u.dispatch(func() {
			u.pending--
			apply()
		})
	}()
}

func (u *UI) fetch() {
	if u.session == nil {
		return
	}
	u.pending++
	u.loader.Fetch(u.sessionCtx, func(err error) {
		u.pending--
		if err != nil {
			u.handleError("fetch tickets", err)
			return
		}
		u.clampSelection()
		if err := u.sessions.PruneImages(u.ctx, u.store.IDs()); err != nil {
			u.logger.Warn("prune image cache failed", "error", err)
		}
	})
}

func (u *UI) registerPushToken() {
	if u.session == nil || u.session.PushRegistered {
		return
	}
	deviceID := u.session.DeviceID
	if deviceID == "" {
		id, err := u.sessions.DeviceID(u.ctx)
		if err != nil {
			u.logger.Warn("device id unavailable", "error", err)
			return
		}
		deviceID = id
		u.session.DeviceID = id
	}

	session := u.session
	u.async(u.sessionCtx, func(ctx context.Context) func() {
		err := u.backend.RegisterPushToken(ctx, deviceID)
		return func() {
			if err != nil {
				u.logger.Warn("register push token failed", "error", err)
				return
			}
			if u.session != session {
				return
			}
			session.PushRegistered = true
			if err := u.sessions.MarkPushRegistered(u.ctx); err != nil {
				u.logger.Warn("remember push registration failed", "error", err)
			}
		}
	})
}

// handleError reports a failed backend call. A 401 ends the session.
func (u *UI) handleError(op string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, tickets.ErrStale) {
		return
	}
	u.logger.Warn(op+" failed", "error", err)
	if errors.Is(err, api.ErrUnauthorized) && u.session != nil {
		_ = u.endSession("session expired, log in again")
		return
	}
	u.status = err.Error()
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	if err := gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, u.quit); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'q', gocui.ModNone, u.quitIfIdle); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'r', gocui.ModNone, u.reload); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'a', gocui.ModNone, u.addTicket); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'd', gocui.ModNone, u.deleteTicket); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'g', gocui.ModNone, u.clearFilters); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'L', gocui.ModNone, u.logout); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '/', gocui.ModNone, u.focusFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTickets, gocui.KeyArrowDown, gocui.ModNone, u.moveDown); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTickets, 'j', gocui.ModNone, u.moveDown); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTickets, gocui.KeyArrowUp, gocui.ModNone, u.moveUp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTickets, 'k', gocui.ModNone, u.moveUp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTickets, gocui.KeyEnter, gocui.ModNone, u.openDetails); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewDetails, gocui.KeyEsc, gocui.ModNone, u.closeDetails); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewFilter, gocui.KeyTab, gocui.ModNone, u.nextFilterField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewFilter, gocui.KeyBacktab, gocui.ModNone, u.prevFilterField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewFilter, gocui.KeyEnter, gocui.ModNone, u.leaveFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewFilter, gocui.KeyEsc, gocui.ModNone, u.leaveFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewFilter, gocui.KeyArrowDown, gocui.ModNone, u.leaveFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEnter, gocui.ModNone, u.submitForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyCtrlJ, gocui.ModNone, u.submitForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyTab, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyBacktab, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowDown, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowUp, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEsc, gocui.ModNone, u.cancelForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyCtrlR, gocui.ModNone, u.toggleRegister); err != nil {
		return err
	}
	return nil
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}
	u.clampSelection()

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = false
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := max(maxY-2, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	u.renderFooter(footerView)

	if u.session == nil {
		_ = gui.DeleteView(viewFilter)
		_ = gui.DeleteView(viewTickets)
		_ = gui.DeleteView(viewDetails)
	} else if err := u.layoutList(gui, maxX, footerY0-1); err != nil {
		return err
	}

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	target := u.currentViewName()
	if current := gui.CurrentView(); current == nil || current.Name() != target {
		_, _ = gui.SetCurrentView(target)
	}
	gui.Cursor = u.form != nil || u.focus == viewFilter

	return nil
}

func (u *UI) layoutList(gui *gocui.Gui, maxX, bodyBottom int) error {
	filterView, err := gui.SetView(viewFilter, 0, 1, maxX-1, 3, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		filterView.Title = "Filters (/)"
	}
	filterView.Editable = true
	filterView.KeybindOnEdit = true
	filterView.Editor = u.filterEditor
	applyViewStyle(filterView, u.focus == viewFilter, false)
	u.renderFilter(filterView)

	listTop := 4
	if bodyBottom <= listTop {
		return nil
	}
	leftX1 := max(maxX*3/5, 30)
	if leftX1 >= maxX-10 {
		leftX1 = maxX - 1
	}

	listView, err := gui.SetView(viewTickets, 0, listTop, leftX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		listView.TitleColor = gocui.ColorYellow
	}
	listView.Title = fmt.Sprintf("Tickets %d/%d", u.store.Len(), u.store.Total())
	applyViewStyle(listView, u.focus == viewTickets, true)
	u.renderTickets(listView)

	if leftX1 >= maxX-1 {
		_ = gui.DeleteView(viewDetails)
		return nil
	}
	detailsView, err := gui.SetView(viewDetails, leftX1+1, listTop, maxX-1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		detailsView.Title = "Details"
		detailsView.Wrap = true
	}
	applyViewStyle(detailsView, u.focus == viewDetails, false)
	u.renderDetails(detailsView)
	return nil
}

func (u *UI) currentViewName() string {
	if u.form != nil {
		return viewForm
	}
	return u.focus
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	parts := []string{"lazyticket"}
	if u.session != nil {
		parts = append(parts, u.session.DisplayName())
		if expiresAt, ok := u.session.ExpiresAt(); ok {
			parts = append(parts, formatExpiry(expiresAt, u.now()))
		}
	}
	if u.pending > 0 {
		parts = append(parts, "working...")
	}
	fmt.Fprint(view, strings.Join(parts, " | "))
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)

	switch {
	case u.form != nil && u.form.kind == formLogin:
		fmt.Fprintln(view, "enter log in | tab next field | ctrl+r create account | ctrl+c quit")
	case u.form != nil && u.form.kind == formRegister:
		fmt.Fprintln(view, "enter create account | tab next field | esc back to login | ctrl+c quit")
	case u.form != nil:
		fmt.Fprintln(view, "enter save | tab next field | ctrl+u clear field | esc cancel")
	case u.focus == viewFilter:
		fmt.Fprintln(view, "type to filter | tab next filter | enter/esc back to list")
	default:
		fmt.Fprintln(view, "enter details | a add | d delete | r refresh | / filter | g clear filters | L logout | q quit")
	}
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderFilter(view *gocui.View) {
	view.Clear()
	var line strings.Builder
	cursorX := 0
	for index, label := range filterLabels {
		if index > 0 {
			line.WriteString("  ")
		}
		prefix := " "
		if u.focus == viewFilter && index == u.filterIndex {
			prefix = ">"
		}
		line.WriteString(prefix + label + ": ")
		line.WriteString(u.filterValue(index))
		if index == u.filterIndex {
			cursorX = len([]rune(line.String()))
		}
	}
	fmt.Fprint(view, line.String())
	if u.focus == viewFilter {
		view.SetCursor(cursorX, 0)
	}
}

func (u *UI) renderTickets(view *gocui.View) {
	view.Clear()
	displayed := u.store.Displayed()
	if len(displayed) == 0 {
		if u.store.Total() > 0 {
			fmt.Fprintln(view, "  no tickets match the filters")
		} else {
			fmt.Fprintln(view, "  no tickets")
		}
		return
	}

	now := u.now()
	focused := u.focus == viewTickets
	for i, ticket := range displayed {
		prefix := " "
		if i == u.selected {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(view, "%s%s\n", prefix, formatTicketSummary(ticket, now))
	}
	if focused {
		view.SetCursor(0, min(u.selected, len(displayed)-1))
	}
}

func (u *UI) renderDetails(view *gocui.View) {
	view.Clear()
	var (
		ticket model.Ticket
		ok     bool
	)
	if u.detail != nil {
		ticket, ok = u.store.Get(u.detail.ticketID)
		if !ok {
			fmt.Fprintln(view, "This ticket is no longer available.")
			return
		}
	} else if ticket, ok = u.selectedTicket(); !ok {
		return
	}

	fmt.Fprintf(view, "Ticket #%d\n\n", ticket.ID)
	fmt.Fprintf(view, "When:     %s\n", formatTicketWhen(ticket))
	fmt.Fprintf(view, "Licence:  %s\n", ticket.LicensePlate)
	fmt.Fprintf(view, "Location: %s\n", ticket.Location)
	if tickets.Expired(ticket, u.now()) {
		fmt.Fprintln(view, "Status:   expired")
	} else {
		fmt.Fprintln(view, "Status:   active")
	}

	if u.detail == nil {
		fmt.Fprintln(view, "\nenter to open and load the photo")
		return
	}
	fmt.Fprintf(view, "Photo:    %s\n", describeImage(u.detail.image))
	if u.detail.deleting {
		fmt.Fprintln(view, "\ndeleting...")
		return
	}
	fmt.Fprintln(view, "\nd delete | esc back")
}

func (u *UI) showForm(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := min(max(50, maxX/2), maxX-2)
	height := len(u.form.fields) + 1
	x0 := max((maxX-width)/2, 0)
	y0 := max((maxY-height)/2, 1)
	x1 := x0 + width
	y1 := y0 + height

	view, err := gui.SetView(viewForm, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = false
	}
	view.Title = u.form.title()
	if u.form.busy {
		view.Title += " (sending...)"
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetViewOnTop(viewForm)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		value := field.Value
		if field.Secret {
			value = strings.Repeat("*", len([]rune(value)))
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, value)
	}
	current := u.form.fields[u.form.index]
	cursorX := len([]rune(current.Label)) + len([]rune(current.Value)) + 4
	view.SetCursor(cursorX, u.form.index)
}

func (u *UI) submitForm(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil || u.form.busy {
		return nil
	}
	switch u.form.kind {
	case formLogin:
		u.submitLogin(u.form)
	case formRegister:
		u.submitRegister(u.form)
	case formTicket:
		u.submitTicket(u.form)
	}
	return nil
}

func (u *UI) submitLogin(form *formState) {
	creds := parseLoginForm(form)
	form.busy = true
	u.status = ""
	u.async(u.ctx, func(ctx context.Context) func() {
		result, err := u.backend.Login(ctx, creds)
		return func() {
			form.busy = false
			if err != nil {
				u.logger.Info("login failed", "error", err)
				u.status = err.Error()
				return
			}
			session := db.Session{
				Token:     result.AccessToken,
				FirstName: result.Name,
				LastName:  result.Surname,
				Email:     strings.TrimSpace(creds.Email),
			}
			if deviceID, err := u.sessions.DeviceID(u.ctx); err == nil {
				session.DeviceID = deviceID
			}
			if err := u.sessions.SaveSession(u.ctx, session); err != nil {
				u.logger.Error("save session failed", "error", err)
				u.status = err.Error()
				return
			}
			u.logger.Info("logged in", "email", session.Email)
			u.status = "welcome, " + session.DisplayName()
			u.beginSession(session)
		}
	})
}

func (u *UI) submitRegister(form *formState) {
	input := parseRegisterForm(form)
	form.busy = true
	u.status = ""
	u.async(u.ctx, func(ctx context.Context) func() {
		err := u.backend.Register(ctx, input)
		return func() {
			form.busy = false
			if err != nil {
				u.status = err.Error()
				return
			}
			if u.form == form {
				u.form = newLoginForm(strings.TrimSpace(input.Email))
				u.form.index = fieldLoginPassword
			}
			u.status = "account created, log in to continue"
		}
	})
}

func (u *UI) submitTicket(form *formState) {
	input, err := parseTicketForm(form)
	if err != nil {
		u.status = err.Error()
		return
	}
	form.busy = true
	u.status = ""
	u.async(u.sessionCtx, func(ctx context.Context) func() {
		id, err := u.backend.CreateTicket(ctx, input)
		return func() {
			form.busy = false
			if err != nil {
				u.handleError("create ticket", err)
				return
			}
			if u.form == form {
				u.form = nil
			}
			u.status = fmt.Sprintf("ticket #%d saved", id)
			u.fetch()
		}
	})
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}
	switch u.form.kind {
	case formTicket:
		u.form = nil
	case formRegister:
		u.form = newLoginForm(u.form.value(fieldRegisterEmail))
	}
	return nil
}

func (u *UI) toggleRegister(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil || u.form.busy {
		return nil
	}
	switch u.form.kind {
	case formLogin:
		u.form = newRegisterForm()
	case formRegister:
		u.form = newLoginForm(u.form.value(fieldRegisterEmail))
	}
	return nil
}

func (u *UI) nextFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

func (u *UI) filterValue(index int) string {
	criteria := u.store.Criteria()
	switch index {
	case filterDate:
		return criteria.Date
	case filterTime:
		return criteria.Time
	case filterLicense:
		return criteria.License
	default:
		return criteria.Location
	}
}

// setFilterValue updates one filter input and recomputes the displayed list.
func (u *UI) setFilterValue(index int, value string) {
	criteria := u.store.Criteria()
	switch index {
	case filterDate:
		criteria.Date = value
	case filterTime:
		criteria.Time = value
	case filterLicense:
		criteria.License = value
	default:
		criteria.Location = value
	}
	u.store.SetCriteria(criteria)
	u.clampSelection()
}

func (u *UI) focusFilter(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.session == nil {
		return nil
	}
	u.focus = viewFilter
	return nil
}

func (u *UI) leaveFilter(gui *gocui.Gui, _ *gocui.View) error {
	u.focus = viewTickets
	return nil
}

func (u *UI) nextFilterField(gui *gocui.Gui, view *gocui.View) error {
	u.filterIndex = (u.filterIndex + 1) % len(filterLabels)
	if view != nil {
		u.renderFilter(view)
	}
	return nil
}

func (u *UI) prevFilterField(gui *gocui.Gui, view *gocui.View) error {
	u.filterIndex = (u.filterIndex + len(filterLabels) - 1) % len(filterLabels)
	if view != nil {
		u.renderFilter(view)
	}
	return nil
}

func (u *UI) clearFilters(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.session == nil {
		return nil
	}
	u.store.SetCriteria(model.Criteria{})
	u.clampSelection()
	return nil
}

func (u *UI) moveDown(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selected < u.store.Len()-1 {
		u.selected++
	}
	return nil
}

func (u *UI) moveUp(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selected > 0 {
		u.selected--
	}
	return nil
}

func (u *UI) clampSelection() {
	if u.selected >= u.store.Len() {
		u.selected = max(u.store.Len()-1, 0)
	}
}

func (u *UI) selectedTicket() (model.Ticket, bool) {
	displayed := u.store.Displayed()
	if u.selected < 0 || u.selected >= len(displayed) {
		return model.Ticket{}, false
	}
	return displayed[u.selected], true
}

func (u *UI) reload(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.session == nil {
		return nil
	}
	u.status = ""
	u.fetch()
	return nil
}

func (u *UI) addTicket(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.session == nil {
		return nil
	}
	u.form = newTicketForm(u.now())
	return nil
}

func (u *UI) openDetails(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	ticket, ok := u.selectedTicket()
	if !ok {
		return nil
	}
	u.detail = &detailState{ticketID: ticket.ID}
	u.focus = viewDetails
	u.loadImage(ticket.ID)
	return nil
}

func (u *UI) closeDetails(gui *gocui.Gui, _ *gocui.View) error {
	u.detail = nil
	u.focus = viewTickets
	return nil
}

// loadImage fills the open detail's photo from the cache or the backend.
func (u *UI) loadImage(id int64) {
	data, ok, err := u.sessions.CachedImage(u.ctx, id)
	if err != nil {
		u.logger.Warn("read image cache failed", "id", id, "error", err)
	}
	if ok {
		u.detail.image = imageState{data: data}
		return
	}

	u.detail.image = imageState{loading: true}
	u.async(u.sessionCtx, func(ctx context.Context) func() {
		data, err := u.backend.GetTicketImage(ctx, id)
		return func() {
			if u.detail == nil || u.detail.ticketID != id {
				return
			}
			switch {
			case errors.Is(err, api.ErrNoImage):
				u.detail.image = imageState{missing: true}
			case errors.Is(err, api.ErrUnauthorized):
				u.handleError("fetch image", err)
			case err != nil:
				u.logger.Warn("fetch image failed", "id", id, "error", err)
				u.detail.image = imageState{err: err.Error()}
			default:
				u.detail.image = imageState{data: data}
				if err := u.sessions.CacheImage(u.ctx, id, data); err != nil {
					u.logger.Warn("cache image failed", "id", id, "error", err)
				}
			}
		}
	})
}

func (u *UI) deleteTicket(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.session == nil {
		return nil
	}
	if u.focus == viewDetails && u.detail != nil {
		u.deleteFromDetails(u.detail)
		return nil
	}

	ticket, ok := u.selectedTicket()
	if !ok {
		return nil
	}
	u.pending++
	u.loader.Delete(u.sessionCtx, ticket.ID, func(err error) {
		u.pending--
		if err != nil {
			u.handleError("delete ticket", err)
			return
		}
		u.forgetTicket(ticket.ID)
		u.status = fmt.Sprintf("ticket #%d deleted", ticket.ID)
	})
	return nil
}

// deleteFromDetails deletes the open ticket directly and then reports the
// deletion back to the list.
func (u *UI) deleteFromDetails(detail *detailState) {
	if detail.deleting {
		return
	}
	id := detail.ticketID
	detail.deleting = true
	u.async(u.sessionCtx, func(ctx context.Context) func() {
		err := u.backend.DeleteTicket(ctx, id)
		return func() {
			detail.deleting = false
			if err != nil {
				u.handleError("delete ticket", err)
				return
			}
			u.loader.ReportDeleted(id)
			u.forgetTicket(id)
			u.status = fmt.Sprintf("ticket #%d deleted", id)
		}
	})
}

func (u *UI) forgetTicket(id int64) {
	if u.detail != nil && u.detail.ticketID == id {
		u.detail = nil
		u.focus = viewTickets
	}
	if err := u.sessions.DropImage(u.ctx, id); err != nil {
		u.logger.Warn("drop cached image failed", "id", id, "error", err)
	}
	u.clampSelection()
}

func (u *UI) logout(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.session == nil {
		return nil
	}
	u.logger.Info("logged out", "email", u.session.Email)
	return u.endSession("logged out")
}

func (u *UI) inputActive() bool {
	return u.form != nil || u.focus == viewFilter
}

func (u *UI) quitIfIdle(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	return u.quit(gui, view)
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func applyViewStyle(view *gocui.View, focused bool, highlight bool) {
	view.Frame = true
	view.Highlight = focused && highlight
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}
