package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/robocupjunioraustralia/registration-billing/internal/program"
)

// Resolve returns the effective per-unit price and billing unit for a
// competition division: the division override when it carries a real fee,
// otherwise the event default. A missing override row always falls through to
// the event default.
func Resolve(ev program.Event, override *program.AvailableDivision) (decimal.Decimal, Unit) {
	if override != nil && override.HasFeeOverride() {
		return *override.EntryFee, unitFor(override.BillingType)
	}
	return ev.DefaultEntryFee, unitFor(ev.BillingType)
}

func unitFor(bt program.BillingType) Unit {
	if bt == program.BillingTypeStudent {
		return UnitStudent
	}
	return UnitTeam
}
