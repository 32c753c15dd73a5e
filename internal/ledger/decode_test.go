package ledger

import (
	"reflect"
	"testing"

	"github.com/khata-app/khata-backend/internal/models"
)

func TestDecodeContactTolerant(t *testing.T) {
	tests := []struct {
		name string
		doc  any
		want models.Contact
	}{
		{
			name: "complete record",
			doc: map[string]any{
				"name":        "Ravi",
				"phoneNumber": "9876543210",
				"email":       "ravi@example.com",
				"address":     "MG Road",
				"userType":    "supplier",
				"createdAt":   int64(1700000000000),
				"updatedAt":   int64(1700000001000),
			},
			want: models.Contact{
				ID:          "c1",
				Name:        "Ravi",
				PhoneNumber: "9876543210",
				Email:       "ravi@example.com",
				Address:     "MG Road",
				UserType:    models.UserTypeSupplier,
				CreatedAt:   1700000000000,
				UpdatedAt:   1700000001000,
			},
		},
		{
			name: "missing fields default to empty and customer",
			doc:  map[string]any{"name": "Meena"},
			want: models.Contact{ID: "c1", Name: "Meena", UserType: models.UserTypeCustomer},
		},
		{
			name: "unrecognized userType defaults to customer",
			doc:  map[string]any{"userType": "vendor"},
			want: models.Contact{ID: "c1", UserType: models.UserTypeCustomer},
		},
		{
			name: "malformed node decodes to defaults rather than failing",
			doc:  "not-a-map",
			want: models.Contact{ID: "c1", UserType: models.UserTypeCustomer},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeContact("c1", tt.doc)
			got.Transactions = nil
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("decodeContact() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeTransactionTolerant(t *testing.T) {
	tests := []struct {
		name string
		doc  any
		want models.Transaction
	}{
		{
			name: "missing amount defaults to zero",
			doc:  map[string]any{"type": "send"},
			want: models.Transaction{ID: "t1", Type: models.TxnSend},
		},
		{
			name: "unrecognized type defaults to receive",
			doc:  map[string]any{"type": "transfer", "amount": int64(75)},
			want: models.Transaction{ID: "t1", Type: models.TxnReceive, Amount: 75},
		},
		{
			name: "float amount from JSON decoding",
			doc:  map[string]any{"type": "receive", "amount": float64(120)},
			want: models.Transaction{ID: "t1", Type: models.TxnReceive, Amount: 120},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeTransaction("t1", tt.doc)
			tt.want.ContactUserType = models.UserTypeCustomer
			if got != tt.want {
				t.Errorf("decodeTransaction() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestContactRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		c := models.Contact{
			ID:          "c9",
			Name:        "Asha",
			PhoneNumber: "9000000001",
			Email:       "asha@example.com",
			Address:     "Park Street",
			UserType:    models.UserTypeCustomer,
			CreatedAt:   1700000000000,
			UpdatedAt:   1700000000000,
		}
		for i := 0; i < n; i++ {
			typ := models.TxnReceive
			if i%2 == 1 {
				typ = models.TxnSend
			}
			c.Transactions = append(c.Transactions, models.Transaction{
				ID:              string(rune('a' + i)),
				Type:            typ,
				Amount:          int64(100 * (i + 1)),
				Timestamp:       int64(1700000000000 + i),
				ContactName:     c.Name,
				ContactPhone:    c.PhoneNumber,
				ContactEmail:    c.Email,
				ContactUserType: c.UserType,
			})
		}

		got := decodeContact(c.ID, encodeContact(c))
		if len(got.Transactions) != n {
			t.Fatalf("n=%d: round-trip lost transactions: got %d", n, len(got.Transactions))
		}
		for i := range got.Transactions {
			if got.Transactions[i] != c.Transactions[i] {
				t.Errorf("n=%d: transaction %d = %+v, want %+v", n, i, got.Transactions[i], c.Transactions[i])
			}
		}
		got.Transactions, c.Transactions = nil, nil
		if !reflect.DeepEqual(got, c) {
			t.Errorf("n=%d: contact = %+v, want %+v", n, got, c)
		}
	}
}
