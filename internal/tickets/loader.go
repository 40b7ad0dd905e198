package tickets

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Joseda-hg/lazyticket/internal/model"
)

// Source is the remote side of the ticket list.
type Source interface {
	ListTickets(ctx context.Context) ([]model.Ticket, error)
	DeleteTicket(ctx context.Context, id int64) error
}

// Dispatcher runs fn on the goroutine that owns the Store.
type Dispatcher func(fn func())

// Inline runs fn on the calling goroutine.
func Inline(fn func()) {
	fn()
}

// ErrStale is reported to a Fetch completion when a newer Fetch was started
// before it finished. The older result is dropped.
var ErrStale = errors.New("fetch superseded by a newer fetch")

// Loader runs fetches and deletes in the background and applies each result
// to the Store exactly once, through the Dispatcher. A failed or cancelled
// call leaves the Store untouched and only reports the error to the
// completion callback. Fetch and Delete must be called on the goroutine that
// owns the Store.
type Loader struct {
	source   Source
	store    *Store
	dispatch Dispatcher
	logger   *slog.Logger

	fetchGen uint64
}

func NewLoader(source Source, store *Store, dispatch Dispatcher, logger *slog.Logger) *Loader {
	if dispatch == nil {
		dispatch = Inline
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{source: source, store: store, dispatch: dispatch, logger: logger}
}

// Fetch replaces the authoritative list with the server's current list. Only
// the most recently started fetch is applied.
func (l *Loader) Fetch(ctx context.Context, done func(error)) {
	l.fetchGen++
	gen := l.fetchGen
	go func() {
		records, err := l.source.ListTickets(ctx)
		l.dispatch(func() {
			if err == nil {
				err = ctx.Err()
			}
			if err == nil && gen != l.fetchGen {
				err = ErrStale
			}
			if err == nil {
				l.store.ReplaceAll(records)
				l.logger.Debug("fetched tickets", "count", len(records))
			}
			if done != nil {
				done(err)
			}
		})
	}()
}

// Delete removes a ticket on the server and, once that succeeds, locally.
func (l *Loader) Delete(ctx context.Context, id int64, done func(error)) {
	go func() {
		err := l.source.DeleteTicket(ctx, id)
		l.dispatch(func() {
			if err == nil {
				err = ctx.Err()
			}
			if err == nil {
				l.store.RemoveByID(id)
			}
			if done != nil {
				done(err)
			}
		})
	}()
}

// ReportDeleted applies a deletion that another screen already performed.
func (l *Loader) ReportDeleted(id int64) {
	l.dispatch(func() {
		if !l.store.RemoveByID(id) {
			l.logger.Debug("deleted ticket not in list", "id", id)
		}
	})
}
