package program

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType distinguishes competition events from workshop events.
type EventType string

const (
	EventTypeCompetition EventType = "competition"
	EventTypeWorkshop    EventType = "workshop"
)

// BillingType selects the unit an entry fee is charged per.
type BillingType string

const (
	// BillingTypeTeam charges per team.
	BillingTypeTeam BillingType = "team"
	// BillingTypeStudent charges per student across a team's roster.
	BillingTypeStudent BillingType = "student"
	// BillingTypeEvent on a division override means "defer to the event default".
	BillingTypeEvent BillingType = "event"
)

// Event carries the pricing-relevant attributes of a registration event.
type Event struct {
	ID              uuid.UUID
	Name            string
	EventType       EventType
	DefaultEntryFee decimal.Decimal
	BillingType     BillingType

	// Special rate: the first SpecialRateNumber teams of a school (or
	// independent mentor) are billed at SpecialRateFee each. Both fields are
	// set together or not at all.
	SpecialRateNumber *int32
	SpecialRateFee    *decimal.Decimal

	EntryFeeIncludesGST bool

	// SurchargeAmount is copied from global settings when the event is
	// created and never tracks later edits to the settings row.
	SurchargeAmount decimal.Decimal

	// Workshop per-attendee fees. Defaulted from DefaultEntryFee at first
	// save and frozen thereafter.
	WorkshopTeacherFee decimal.Decimal
	WorkshopStudentFee decimal.Decimal

	PaymentDueDate time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasSpecialRate reports whether the tiered "first N teams" rate applies.
func (e Event) HasSpecialRate() bool {
	return e.EventType == EventTypeCompetition && e.SpecialRateNumber != nil && e.SpecialRateFee != nil
}

// Division is a competition or workshop category entries register under.
type Division struct {
	ID   uuid.UUID
	Name string
}

// AvailableDivision opens one division for one event and optionally overrides
// the event's billing type and fee for entries in that division.
type AvailableDivision struct {
	ID         uuid.UUID
	EventID    uuid.UUID
	DivisionID uuid.UUID

	// BillingType "event" defers to the event default; any other value must
	// be paired with a non-nil EntryFee.
	BillingType BillingType
	EntryFee    *decimal.Decimal
}

// HasFeeOverride reports whether this row replaces the event default pricing.
func (ad AvailableDivision) HasFeeOverride() bool {
	return ad.BillingType != BillingTypeEvent && ad.EntryFee != nil
}

// GlobalSettings is the platform-wide settings singleton. The surcharge
// amount is snapshotted onto events at creation; name and description are
// read live at invoice render time.
type GlobalSettings struct {
	SurchargeAmount      decimal.Decimal
	SurchargeName        string
	SurchargeDescription string
	FirstInvoiceNumber   int64
}
