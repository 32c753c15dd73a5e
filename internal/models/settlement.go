package models

// Settlement is the net position between the account owner and one contact.
// Positive Net means the contact owes the owner.
type Settlement struct {
	TotalGave int64 `json:"total_gave"`
	TotalGot  int64 `json:"total_got"`
	Net       int64 `json:"settlement"`
}
