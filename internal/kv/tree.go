// Package kv abstracts the hierarchical key-value store the ledger lives in.
// Nodes are addressed by slash-joined paths rooted at the owning user:
//
//	{userId}/{contactId}/transactions/{transactionId}
//
// This abstraction allows swapping store backends (Postgres, in-memory)
// without changing the ledger adapter.
package kv

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when a path addresses a node that does not exist.
var ErrNotFound = errors.New("kv: node not found")

// Tree is a path-addressed document store with push-style id generation.
type Tree interface {
	// Subtree reads the immediate children of path as raw documents,
	// keyed by child id. A missing path yields an empty map, not an error.
	Subtree(ctx context.Context, path string) (map[string]any, error)

	// Push creates a child of path with a store-generated id and returns it.
	Push(ctx context.Context, path string, value map[string]any) (string, error)

	// Update merges fields into the document at path; untouched fields keep
	// their values. Returns ErrNotFound if the node does not exist.
	Update(ctx context.Context, path string, fields map[string]any) error

	// Set replaces the value at path wholesale, creating the node if needed.
	Set(ctx context.Context, path string, value any) error
}

// Join builds a path from segments, skipping empty ones.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// Split breaks a path into its segments.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(strings.Trim(path, "/"), "/")
}
