package program

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/robocupjunioraustralia/registration-billing/internal/events"
)

// BillingHooks is implemented by the invoice engine; pricing changes
// recompute every invoice of the affected event inside the same transaction.
type BillingHooks interface {
	PricingChanged(ctx context.Context, eventID uuid.UUID) error
}

// TxRunner executes fn inside a storage transaction; nil runs fn directly.
type TxRunner func(ctx context.Context, fn func(context.Context) error) error

// Service owns pricing-configuration mutations. Validation happens here, at
// config-save time, so invoice computation never has to.
type Service struct {
	Repo  Repository
	Hooks BillingHooks
	Tx    TxRunner
	Bus   *events.Bus
}

func (s *Service) inTx(ctx context.Context, fn func(context.Context) error) error {
	if s.Tx != nil {
		return s.Tx(ctx, fn)
	}
	return fn(ctx)
}

// UpdateEventPricing validates and saves an event's pricing fields, then
// recomputes the event's invoices. The frozen surcharge amount and workshop
// fee snapshots are not touched by updates.
func (s *Service) UpdateEventPricing(ctx context.Context, e Event) error {
	if s == nil || s.Repo == nil || s.Hooks == nil {
		return errors.New("program: service not configured")
	}
	return s.inTx(ctx, func(ctx context.Context) error {
		current, err := s.Repo.GetEvent(ctx, e.ID)
		if err != nil {
			return err
		}
		e.EventType = current.EventType
		e.SurchargeAmount = current.SurchargeAmount
		e.WorkshopTeacherFee = current.WorkshopTeacherFee
		e.WorkshopStudentFee = current.WorkshopStudentFee
		overrides, err := s.Repo.ListAvailableDivisions(ctx, e.ID)
		if err != nil {
			return err
		}
		if err := ValidateEvent(e, overrides); err != nil {
			return err
		}
		if err := s.Repo.UpdateEventPricing(ctx, e); err != nil {
			return err
		}
		return s.Hooks.PricingChanged(ctx, e.ID)
	})
}

// SaveAvailableDivision validates and upserts a division override, then
// recomputes the event's invoices.
func (s *Service) SaveAvailableDivision(ctx context.Context, ad AvailableDivision) error {
	if s == nil || s.Repo == nil || s.Hooks == nil {
		return errors.New("program: service not configured")
	}
	return s.inTx(ctx, func(ctx context.Context) error {
		ev, err := s.Repo.GetEvent(ctx, ad.EventID)
		if err != nil {
			return err
		}
		if err := ValidateAvailableDivision(ad, ev); err != nil {
			return err
		}
		if ad.ID == uuid.Nil {
			ad.ID = uuid.New()
		}
		if err := s.Repo.UpsertAvailableDivision(ctx, ad); err != nil {
			return err
		}
		return s.Hooks.PricingChanged(ctx, ad.EventID)
	})
}

// DeleteAvailableDivision removes a division override; affected invoices
// fall back to the event default pricing.
func (s *Service) DeleteAvailableDivision(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.Repo == nil || s.Hooks == nil {
		return errors.New("program: service not configured")
	}
	return s.inTx(ctx, func(ctx context.Context) error {
		ad, err := s.Repo.GetAvailableDivision(ctx, id)
		if err != nil {
			return err
		}
		if err := s.Repo.DeleteAvailableDivision(ctx, id); err != nil {
			return err
		}
		return s.Hooks.PricingChanged(ctx, ad.EventID)
	})
}
