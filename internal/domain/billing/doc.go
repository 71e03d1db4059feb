// Package billing provides domain models for invoice payment processing and
// the transaction ledger.
//
// The ledger is the sole source of truth. Every apply, refund, and void is an
// immutable Transaction row; invoice balances, payment capacity, and invoice
// status are derived by folding over the transactions, never stored.
//
// Key Aggregates:
//   - Invoice: A bill issued to a customer, composed of line items
//   - Payment: A pool of authorized funds that can be applied across invoices
//
// Entities and Value Objects:
//   - Transaction: Immutable ledger entry linking an invoice and a payment
//   - Money: Currency-tagged decimal amount (internal/domain/shared/valueobject)
//
// Concurrency is handled optimistically: both aggregates carry a version that
// the ledger checks and bumps on every append.
package billing
