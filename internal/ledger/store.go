// Package ledger adapts between the in-memory data model and the
// hierarchical ledger store holding each user's contacts and transactions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/khata-app/khata-backend/internal/kv"
	"github.com/khata-app/khata-backend/internal/models"
)

var ErrNotFound = errors.New("ledger: not found")

type Store struct{ tree kv.Tree }

func NewStore(tree kv.Tree) *Store { return &Store{tree: tree} }

// FetchContacts reads the whole subtree for userID and decodes every child
// into a Contact. Contacts come back sorted by creation time so phone-number
// matching is stable across reads.
func (s *Store) FetchContacts(ctx context.Context, userID string) ([]models.Contact, error) {
	nodes, err := s.tree.Subtree(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch contacts: %w", err)
	}
	out := make([]models.Contact, 0, len(nodes))
	for id, raw := range nodes {
		out = append(out, decodeContact(id, raw))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// FindContactByPhone returns the first contact whose phone number exactly
// equals phone. The store does not enforce phone uniqueness, so first match
// is authoritative.
func FindContactByPhone(contacts []models.Contact, phone string) (models.Contact, bool) {
	for _, c := range contacts {
		if c.PhoneNumber == phone {
			return c, true
		}
	}
	return models.Contact{}, false
}

// FindContactByID returns the contact with the given store id.
func FindContactByID(contacts []models.Contact, id string) (models.Contact, bool) {
	if id == "" {
		return models.Contact{}, false
	}
	for _, c := range contacts {
		if c.ID == id {
			return c, true
		}
	}
	return models.Contact{}, false
}

// CreateContact appends a new contact node under the user's subtree and
// returns the store-generated id.
func (s *Store) CreateContact(ctx context.Context, userID string, c models.Contact) (string, error) {
	now := time.Now().UnixMilli()
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	if c.UpdatedAt == 0 {
		c.UpdatedAt = now
	}
	id, err := s.tree.Push(ctx, userID, encodeContact(c))
	if err != nil {
		return "", fmt.Errorf("create contact: %w", err)
	}
	return id, nil
}

// AppendTransaction appends txn to the contact matching ref's phone number,
// creating the contact first when no match exists (upsert semantics).
// The two steps are sequential, not atomic.
func (s *Store) AppendTransaction(ctx context.Context, userID string, ref models.Contact, txn models.Transaction) (string, error) {
	contacts, err := s.FetchContacts(ctx, userID)
	if err != nil {
		return "", err
	}
	target, ok := FindContactByPhone(contacts, ref.PhoneNumber)
	if !ok {
		id, err := s.CreateContact(ctx, userID, ref)
		if err != nil {
			return "", err
		}
		target = ref
		target.ID = id
	}

	if txn.Timestamp == 0 {
		txn.Timestamp = time.Now().UnixMilli()
	}
	txn.ContactName = target.Name
	txn.ContactPhone = target.PhoneNumber
	txn.ContactEmail = target.Email
	txn.ContactUserType = target.UserType

	id, err := s.tree.Push(ctx, kv.Join(userID, target.ID, "transactions"), encodeTransaction(txn))
	if err != nil {
		return "", fmt.Errorf("append transaction: %w", err)
	}
	return id, nil
}

// UpdateContact merges the scalar fields of c into the stored contact node.
// Transactions are never touched by this path.
func (s *Store) UpdateContact(ctx context.Context, userID, contactID string, c models.Contact) error {
	fields := map[string]any{
		"name":        c.Name,
		"phoneNumber": c.PhoneNumber,
		"email":       c.Email,
		"address":     c.Address,
		"updatedAt":   time.Now().UnixMilli(),
	}
	if err := s.tree.Update(ctx, kv.Join(userID, contactID), fields); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return fmt.Errorf("update contact %s: %w", contactID, ErrNotFound)
		}
		return fmt.Errorf("update contact: %w", err)
	}
	return nil
}

// UpdateTransactionAmount rewrites one transaction's amount by reading the
// full transaction list, replacing the matching entry and writing the whole
// list back. Concurrent writers race here: last write wins.
func (s *Store) UpdateTransactionAmount(ctx context.Context, userID, contactID, txnID string, newAmount int64) error {
	path := kv.Join(userID, contactID, "transactions")
	nodes, err := s.tree.Subtree(ctx, path)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	raw, ok := nodes[txnID].(map[string]any)
	if !ok {
		return fmt.Errorf("update transaction %s: %w", txnID, ErrNotFound)
	}
	raw["amount"] = newAmount
	nodes[txnID] = raw

	if err := s.tree.Set(ctx, path, nodes); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}
