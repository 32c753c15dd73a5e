package models

type TransactionType string

const (
	// TxnSend is money given by the account owner to the contact.
	TxnSend TransactionType = "send"
	// TxnReceive is money received by the account owner from the contact.
	TxnReceive TransactionType = "receive"
)

// Transaction is a single ledger entry owned by exactly one contact.
// Amounts are integer minor units (paise). The contact_* fields are
// denormalized copies of the parent written by legacy clients; reads
// prefer the parent contact.
type Transaction struct {
	ID        string          `json:"id"`
	Type      TransactionType `json:"type"`
	Amount    int64           `json:"amount"`
	Timestamp int64           `json:"timestamp"` // epoch millis

	ContactName     string   `json:"contact_name,omitempty"`
	ContactPhone    string   `json:"contact_phone,omitempty"`
	ContactEmail    string   `json:"contact_email,omitempty"`
	ContactUserType UserType `json:"contact_user_type,omitempty"`
}
