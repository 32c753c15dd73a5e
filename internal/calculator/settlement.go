// Package calculator holds the pure settlement arithmetic. No I/O, no
// side effects; callers feed it whatever transaction list they fetched.
package calculator

import "github.com/khata-app/khata-backend/internal/models"

// ComputeSettlement reduces a transaction list to the net position between
// the account owner and the contact:
//
//	settlement = total received - total given
//
// Positive means the contact owes the owner. Transactions with an
// unrecognized type contribute to neither accumulator. Summation is
// commutative, so any permutation of the same list yields the same result.
func ComputeSettlement(txns []models.Transaction) models.Settlement {
	var s models.Settlement
	for _, t := range txns {
		switch t.Type {
		case models.TxnSend:
			s.TotalGave += t.Amount
		case models.TxnReceive:
			s.TotalGot += t.Amount
		}
	}
	s.Net = s.TotalGot - s.TotalGave
	return s
}
