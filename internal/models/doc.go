// Package models defines the core domain models for medpay.
//
// # Models
//
//   - PaymentRequest: an amount a clinic asks a patient to pay, settled on-chain
//   - Party: a clinic or a patient holding a settlement wallet
//   - SettlementAttempt: one signed transfer submitted for a payment request
//   - User: a credential record owned by the identity adapter
//   - RiskAssessment: advisory output of the risk gate
//
// # Design Principles
//
//  1. Relationships use ID strings instead of pointers.
//  2. Amounts are decimal.Decimal, denominated in ether. Never float64.
//  3. Timestamps are Unix seconds; zero means "not set".
//  4. A PaymentRequest only moves UNPAID -> PAID, and only through the ledger's
//     compare-and-set. PaidAt and TransactionHash are set in the same write.
package models
