package program

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrSpecialRatePair is returned when only one of the special rate
	// number/fee pair is set.
	ErrSpecialRatePair = errors.New("program: special rate number and fee must be set together")
	// ErrSpecialRateWithOverride is returned when an event with a special
	// rate also carries a division-level billing override.
	ErrSpecialRateWithOverride = errors.New("program: special rate billing is incompatible with division billing overrides")
	// ErrStudentBillingForWorkshop rejects per-student division billing on
	// workshop events.
	ErrStudentBillingForWorkshop = errors.New("program: student billing is not valid for workshop divisions")
	// ErrOverrideFeeRequired is returned when a division override selects a
	// billing type but omits the fee.
	ErrOverrideFeeRequired = errors.New("program: entry fee is required when billing type is overridden")
	// ErrOverrideFeeForbidden is returned when a fee is supplied alongside
	// billing type "event".
	ErrOverrideFeeForbidden = errors.New("program: entry fee must be blank when billing type is event")
)

// ValidateEvent enforces the configuration rules that must hold before an
// event's pricing fields are saved. overrides are the event's existing
// division rows.
func ValidateEvent(e Event, overrides []AvailableDivision) error {
	if (e.SpecialRateNumber == nil) != (e.SpecialRateFee == nil) {
		return ErrSpecialRatePair
	}
	if e.HasSpecialRate() {
		for _, ad := range overrides {
			if ad.BillingType != BillingTypeEvent {
				return ErrSpecialRateWithOverride
			}
		}
	}
	return nil
}

// ValidateAvailableDivision enforces the rules for saving a division override
// against its owning event.
func ValidateAvailableDivision(ad AvailableDivision, e Event) error {
	if ad.BillingType == BillingTypeEvent {
		if ad.EntryFee != nil {
			return ErrOverrideFeeForbidden
		}
		return nil
	}
	if ad.EntryFee == nil {
		return ErrOverrideFeeRequired
	}
	if e.EventType == EventTypeWorkshop && ad.BillingType == BillingTypeStudent {
		return ErrStudentBillingForWorkshop
	}
	if e.HasSpecialRate() {
		return ErrSpecialRateWithOverride
	}
	return nil
}

// ApplyCreationDefaults freezes point-in-time values onto a new event: the
// surcharge amount and, for workshops, the per-attendee fees when unset.
// Later edits to the settings row or the event default fee do not flow back
// into these fields.
func ApplyCreationDefaults(e *Event, settings GlobalSettings) {
	e.SurchargeAmount = settings.SurchargeAmount
	if e.WorkshopTeacherFee.IsZero() {
		e.WorkshopTeacherFee = e.DefaultEntryFee
	}
	if e.WorkshopStudentFee.IsZero() {
		e.WorkshopStudentFee = e.DefaultEntryFee
	}
}

// SpecialRate returns the configured tier as concrete values. It must only be
// called when HasSpecialRate reports true.
func (e Event) SpecialRate() (int32, decimal.Decimal) {
	return *e.SpecialRateNumber, *e.SpecialRateFee
}
