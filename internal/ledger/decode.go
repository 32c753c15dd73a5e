package ledger

import (
	"sort"

	"github.com/khata-app/khata-backend/internal/models"
)

// Store documents use the legacy mobile-client field names (camelCase).
// Decoding is tolerant: a missing or malformed field gets its documented
// default instead of failing the whole record, so partially-written and
// legacy nodes stay readable.

func decodeContact(id string, raw any) models.Contact {
	doc, _ := raw.(map[string]any)
	c := models.Contact{
		ID:          id,
		Name:        str(doc, "name"),
		PhoneNumber: str(doc, "phoneNumber"),
		Email:       str(doc, "email"),
		Address:     str(doc, "address"),
		UserType:    decodeUserType(doc["userType"]),
		CreatedAt:   num(doc, "createdAt"),
		UpdatedAt:   num(doc, "updatedAt"),
	}
	if txns, ok := doc["transactions"].(map[string]any); ok {
		c.Transactions = decodeTransactions(txns)
	}
	return c
}

func decodeTransactions(txns map[string]any) []models.Transaction {
	out := make([]models.Transaction, 0, len(txns))
	for id, raw := range txns {
		out = append(out, decodeTransaction(id, raw))
	}
	// Store maps carry no order; sort by creation time, id as tiebreak.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func decodeTransaction(id string, raw any) models.Transaction {
	doc, _ := raw.(map[string]any)
	return models.Transaction{
		ID:              id,
		Type:            decodeTxnType(doc["type"]),
		Amount:          num(doc, "amount"),
		Timestamp:       num(doc, "timestamp"),
		ContactName:     str(doc, "name"),
		ContactPhone:    str(doc, "phoneNumber"),
		ContactEmail:    str(doc, "email"),
		ContactUserType: decodeUserType(doc["userType"]),
	}
}

func decodeTxnType(v any) models.TransactionType {
	if s, ok := v.(string); ok && models.TransactionType(s) == models.TxnSend {
		return models.TxnSend
	}
	return models.TxnReceive
}

func decodeUserType(v any) models.UserType {
	if s, ok := v.(string); ok && models.UserType(s) == models.UserTypeSupplier {
		return models.UserTypeSupplier
	}
	return models.UserTypeCustomer
}

func encodeContact(c models.Contact) map[string]any {
	doc := map[string]any{
		"name":        c.Name,
		"phoneNumber": c.PhoneNumber,
		"email":       c.Email,
		"address":     c.Address,
		"userType":    string(c.UserType),
		"createdAt":   c.CreatedAt,
		"updatedAt":   c.UpdatedAt,
	}
	if len(c.Transactions) > 0 {
		txns := make(map[string]any, len(c.Transactions))
		for _, t := range c.Transactions {
			txns[t.ID] = encodeTransaction(t)
		}
		doc["transactions"] = txns
	}
	return doc
}

func encodeTransaction(t models.Transaction) map[string]any {
	return map[string]any{
		"type":        string(t.Type),
		"amount":      t.Amount,
		"timestamp":   t.Timestamp,
		"name":        t.ContactName,
		"phoneNumber": t.ContactPhone,
		"email":       t.ContactEmail,
		"userType":    string(t.ContactUserType),
	}
}

func str(doc map[string]any, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}

// num accepts the numeric shapes a raw document can carry: int64 from the
// memory tree, float64 from JSON decoding.
func num(doc map[string]any, key string) int64 {
	switch v := doc[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
