package invoice

import (
	"github.com/shopspring/decimal"
)

var (
	gatewayRate    = decimal.RequireFromString("1.0275")
	gatewayFlatFee = decimal.RequireFromString("0.30")
	payableFloor   = decimal.RequireFromString("0.05")
)

// AmountPaid sums the recorded payments.
func AmountPaid(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.AmountPaid)
	}
	return total
}

// AmountDue returns the GST-inclusive amount outstanding, floored at zero so
// an overpaid invoice never displays a negative balance.
func AmountDue(totalInclGST, amountPaid decimal.Decimal) decimal.Decimal {
	due := totalInclGST.Sub(amountPaid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// GatewayAmountDue returns the card-surcharge-adjusted payable amount. It is
// only defined for balances of at least five cents, so a $0.00 invoice never
// shows a payable amount from floating-point noise.
func GatewayAmountDue(due decimal.Decimal) (decimal.Decimal, bool) {
	if due.LessThan(payableFloor) {
		return decimal.Zero, false
	}
	return due.Mul(gatewayRate).Add(gatewayFlatFee), true
}
