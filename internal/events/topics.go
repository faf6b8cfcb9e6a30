package events

// Topic constants for domain events emitted by the billing engine.
const (
	TopicEntryCreated = "entry.created"
	TopicEntryUpdated = "entry.updated"
	TopicEntryDeleted = "entry.deleted"

	TopicPricingChanged = "pricing.changed"

	TopicInvoiceCreated     = "invoice.created"
	TopicInvoiceRecomputed  = "invoice.recomputed"
	TopicInvoiceCampusSplit = "invoice.campus_split"
	TopicPaymentRecorded    = "invoice.payment_recorded"
)

// DefaultTopics returns the canonical list of emitted topics.
func DefaultTopics() []string {
	return []string{
		TopicEntryCreated,
		TopicEntryUpdated,
		TopicEntryDeleted,
		TopicPricingChanged,
		TopicInvoiceCreated,
		TopicInvoiceRecomputed,
		TopicInvoiceCampusSplit,
		TopicPaymentRecorded,
	}
}
