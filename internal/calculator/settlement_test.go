package calculator

import (
	"math/rand"
	"testing"

	"github.com/khata-app/khata-backend/internal/models"
)

func TestComputeSettlement(t *testing.T) {
	tests := []struct {
		name string
		txns []models.Transaction
		want models.Settlement
	}{
		{
			name: "empty list yields zeroes",
			txns: nil,
			want: models.Settlement{},
		},
		{
			name: "single send",
			txns: []models.Transaction{
				{Type: models.TxnSend, Amount: 100},
			},
			want: models.Settlement{TotalGave: 100, TotalGot: 0, Net: -100},
		},
		{
			name: "receive and send",
			txns: []models.Transaction{
				{Type: models.TxnReceive, Amount: 250},
				{Type: models.TxnSend, Amount: 100},
			},
			want: models.Settlement{TotalGave: 100, TotalGot: 250, Net: 150},
		},
		{
			name: "unrecognized type contributes to neither side",
			txns: []models.Transaction{
				{Type: "unknown", Amount: 50},
			},
			want: models.Settlement{},
		},
		{
			name: "unrecognized type mixed with valid entries",
			txns: []models.Transaction{
				{Type: models.TxnReceive, Amount: 300},
				{Type: "transfer", Amount: 999},
				{Type: models.TxnSend, Amount: 120},
			},
			want: models.Settlement{TotalGave: 120, TotalGot: 300, Net: 180},
		},
		{
			name: "owner owes contact",
			txns: []models.Transaction{
				{Type: models.TxnSend, Amount: 500},
				{Type: models.TxnReceive, Amount: 200},
			},
			want: models.Settlement{TotalGave: 500, TotalGot: 200, Net: -300},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSettlement(tt.txns)
			if got != tt.want {
				t.Errorf("ComputeSettlement() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeSettlementOrderIndependent(t *testing.T) {
	txns := []models.Transaction{
		{ID: "a", Type: models.TxnSend, Amount: 100},
		{ID: "b", Type: models.TxnReceive, Amount: 250},
		{ID: "c", Type: models.TxnSend, Amount: 40},
		{ID: "d", Type: "unknown", Amount: 77},
		{ID: "e", Type: models.TxnReceive, Amount: 5},
	}
	want := ComputeSettlement(txns)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]models.Transaction, len(txns))
		copy(shuffled, txns)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		if got := ComputeSettlement(shuffled); got != want {
			t.Fatalf("permutation %d: ComputeSettlement() = %+v, want %+v", i, got, want)
		}
	}
}

func TestComputeSettlementIdempotent(t *testing.T) {
	txns := []models.Transaction{
		{Type: models.TxnReceive, Amount: 90},
		{Type: models.TxnSend, Amount: 30},
	}
	first := ComputeSettlement(txns)
	second := ComputeSettlement(txns)
	if first != second {
		t.Errorf("recompute on unchanged list: %+v != %+v", first, second)
	}
}
