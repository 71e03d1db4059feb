package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Pure fold functions over ordered transaction sequences. The ledger is the
// sole source of truth: every derived figure here is recomputable from
// scratch, and cached copies are invalidated, never authoritative.

// NetApplied folds direction-tagged amounts into a signed running total:
// credits add, debits subtract.
func NetApplied(txs []Transaction) decimal.Decimal {
	net := decimal.Zero
	for i := range txs {
		net = net.Add(txs[i].Signed())
	}
	return net
}

// InvoiceBalance computes total minus net(credits minus debits) over the transactions.
func InvoiceBalance(total decimal.Decimal, txs []Transaction) decimal.Decimal {
	return total.Sub(NetApplied(txs))
}

// NetAppliedForPair computes the net amount a specific payment has applied
// to a specific invoice: credits minus debits over entries referencing both.
func NetAppliedForPair(txs []Transaction, invoiceID, paymentID uuid.UUID) decimal.Decimal {
	net := decimal.Zero
	for i := range txs {
		if txs[i].InvoiceID == invoiceID && txs[i].PaymentID == paymentID {
			net = net.Add(txs[i].Signed())
		}
	}
	return net
}

// FindTransaction returns the entry with the given ID, or nil
func FindTransaction(txs []Transaction, id uuid.UUID) *Transaction {
	for i := range txs {
		if txs[i].ID == id {
			return &txs[i]
		}
	}
	return nil
}

// IsOffset returns true if the given transaction ID has already been
// reversed by a later entry.
func IsOffset(txs []Transaction, id uuid.UUID) bool {
	for i := range txs {
		if txs[i].IsReversalOf(id) {
			return true
		}
	}
	return false
}

// HasReversals returns true if the sequence contains any refund or void entry
func HasReversals(txs []Transaction) bool {
	for i := range txs {
		if txs[i].Kind.IsReversal() {
			return true
		}
	}
	return false
}

// DeriveInvoiceStatus derives the invoice state purely from the ledger.
// There is no stored state field; transitions occur only as a side effect
// of ledger appends.
func DeriveInvoiceStatus(total decimal.Decimal, txs []Transaction) InvoiceStatus {
	net := NetApplied(txs)
	balance := total.Sub(net)

	switch {
	case balance.IsNegative():
		return InvoiceStatusOverpaid
	case balance.IsZero() && net.GreaterThan(decimal.Zero):
		return InvoiceStatusPaid
	case net.IsZero() && HasReversals(txs):
		return InvoiceStatusRefunded
	case net.GreaterThan(decimal.Zero) && HasReversals(txs):
		return InvoiceStatusRefunded
	case net.GreaterThan(decimal.Zero):
		return InvoiceStatusPartiallyPaid
	default:
		return InvoiceStatusOpen
	}
}
