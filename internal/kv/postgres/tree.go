// Package postgres backs the kv.Tree with one jsonb document per contact.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khata-app/khata-backend/internal/kv"
)

type TreeStore struct{ pool *pgxpool.Pool }

func NewTreeStore(pool *pgxpool.Pool) *TreeStore { return &TreeStore{pool: pool} }

func (s *TreeStore) Subtree(ctx context.Context, path string) (map[string]any, error) {
	segs := kv.Split(path)
	switch {
	case len(segs) == 1:
		rows, err := s.pool.Query(ctx,
			`SELECT id, doc FROM ledger_contacts WHERE owner_id=$1 ORDER BY created_at`, segs[0])
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		out := map[string]any{}
		for rows.Next() {
			var id string
			var raw []byte
			if err := rows.Scan(&id, &raw); err != nil {
				return nil, err
			}
			var doc map[string]any
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, fmt.Errorf("decode contact %s: %w", id, err)
			}
			out[id] = doc
		}
		return out, rows.Err()

	case len(segs) == 3 && segs[2] == "transactions":
		var raw []byte
		err := s.pool.QueryRow(ctx,
			`SELECT COALESCE(doc->'transactions', '{}'::jsonb) FROM ledger_contacts WHERE owner_id=$1 AND id=$2`,
			segs[0], segs[1],
		).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			// missing contact is an empty subtree, not a failure
			return map[string]any{}, nil
		}
		if err != nil {
			return nil, err
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		return doc, nil

	default:
		return nil, fmt.Errorf("kv/postgres: unsupported subtree path %q", path)
	}
}

func (s *TreeStore) Push(ctx context.Context, path string, value map[string]any) (string, error) {
	segs := kv.Split(path)
	id := uuid.NewString()
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}

	switch {
	case len(segs) == 1:
		_, err := s.pool.Exec(ctx,
			`INSERT INTO ledger_contacts(owner_id, id, doc) VALUES($1, $2, $3::jsonb)`,
			segs[0], id, string(raw))
		return id, err

	case len(segs) == 3 && segs[2] == "transactions":
		tag, err := s.pool.Exec(ctx,
			`UPDATE ledger_contacts
			    SET doc = jsonb_set(doc, '{transactions}',
			              COALESCE(doc->'transactions', '{}'::jsonb) || jsonb_build_object($3::text, $4::jsonb))
			  WHERE owner_id=$1 AND id=$2`,
			segs[0], segs[1], id, string(raw))
		if err != nil {
			return "", err
		}
		if tag.RowsAffected() == 0 {
			return "", kv.ErrNotFound
		}
		return id, nil

	default:
		return "", fmt.Errorf("kv/postgres: unsupported push path %q", path)
	}
}

func (s *TreeStore) Update(ctx context.Context, path string, fields map[string]any) error {
	segs := kv.Split(path)
	if len(segs) != 2 {
		return fmt.Errorf("kv/postgres: unsupported update path %q", path)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE ledger_contacts SET doc = doc || $3::jsonb WHERE owner_id=$1 AND id=$2`,
		segs[0], segs[1], string(raw))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return kv.ErrNotFound
	}
	return nil
}

func (s *TreeStore) Set(ctx context.Context, path string, value any) error {
	segs := kv.Split(path)
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	switch {
	case len(segs) == 2:
		_, err := s.pool.Exec(ctx,
			`INSERT INTO ledger_contacts(owner_id, id, doc) VALUES($1, $2, $3::jsonb)
			 ON CONFLICT (owner_id, id) DO UPDATE SET doc = EXCLUDED.doc`,
			segs[0], segs[1], string(raw))
		return err

	case len(segs) == 3 && segs[2] == "transactions":
		tag, err := s.pool.Exec(ctx,
			`UPDATE ledger_contacts SET doc = jsonb_set(doc, '{transactions}', $3::jsonb)
			  WHERE owner_id=$1 AND id=$2`,
			segs[0], segs[1], string(raw))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return kv.ErrNotFound
		}
		return nil

	default:
		return fmt.Errorf("kv/postgres: unsupported set path %q", path)
	}
}
