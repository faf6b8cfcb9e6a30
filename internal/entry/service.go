package entry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/robocupjunioraustralia/registration-billing/internal/events"
)

// BillingHooks is implemented by the invoice engine. Both methods run inside
// the same transaction as the entry mutation so cached invoice totals can
// never observe a half-applied change.
type BillingHooks interface {
	// EntrySaved recomputes every invoice affected by a create or update.
	// old is nil on create; on update it carries the pre-save row so the
	// old-scope invoice is recomputed as well as the new one.
	EntrySaved(ctx context.Context, old *Entry, cur Entry) error
	// EntryDeleted recomputes the invoices the deleted entry contributed to.
	EntryDeleted(ctx context.Context, e Entry) error
}

// TxRunner executes fn inside a storage transaction. A nil runner executes fn
// directly, which the in-memory test stores rely on.
type TxRunner func(ctx context.Context, fn func(context.Context) error) error

// Service owns billable-entry mutations and fans the billing consequences
// out synchronously.
type Service struct {
	Repo  Repository
	Hooks BillingHooks
	Tx    TxRunner
	Bus   *events.Bus
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) inTx(ctx context.Context, fn func(context.Context) error) error {
	if s.Tx != nil {
		return s.Tx(ctx, fn)
	}
	return fn(ctx)
}

// Create persists a new entry and recomputes its invoice.
func (s *Service) Create(ctx context.Context, e Entry) (Entry, error) {
	if s == nil || s.Repo == nil || s.Hooks == nil {
		return Entry{}, errors.New("entry: service not configured")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.UpdatedAt = e.CreatedAt
	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.Repo.Insert(ctx, e); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		return s.Hooks.EntrySaved(ctx, nil, e)
	})
	if err != nil {
		return Entry{}, err
	}
	s.emit(ctx, events.TopicEntryCreated, e)
	return e, nil
}

// Update persists changes to an entry. When the change moves the entry
// between invoice scopes (school, campus, mentor, division or override), the
// hooks recompute both the old-scope and new-scope invoices.
func (s *Service) Update(ctx context.Context, e Entry) (Entry, error) {
	if s == nil || s.Repo == nil || s.Hooks == nil {
		return Entry{}, errors.New("entry: service not configured")
	}
	var old Entry
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		old, err = s.Repo.Get(ctx, e.ID)
		if err != nil {
			return err
		}
		e.Kind = old.Kind
		e.EventID = old.EventID
		e.CreatedAt = old.CreatedAt
		e.UpdatedAt = s.now()
		if err := s.Repo.Update(ctx, e); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		return s.Hooks.EntrySaved(ctx, &old, e)
	})
	if err != nil {
		return Entry{}, err
	}
	s.emit(ctx, events.TopicEntryUpdated, e)
	return e, nil
}

// Delete removes an entry and recomputes the invoices it contributed to.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.Repo == nil || s.Hooks == nil {
		return errors.New("entry: service not configured")
	}
	var e Entry
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		e, err = s.Repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.Repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		return s.Hooks.EntryDeleted(ctx, e)
	})
	if err != nil {
		return err
	}
	s.emit(ctx, events.TopicEntryDeleted, e)
	return nil
}

func (s *Service) emit(ctx context.Context, topic string, e Entry) {
	if s.Bus == nil {
		return
	}
	_ = s.Bus.Emit(ctx, topic, e.ID, map[string]any{
		"kind":     string(e.Kind),
		"event_id": e.EventID.String(),
	})
}
