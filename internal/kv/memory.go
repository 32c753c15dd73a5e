package kv

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryTree is an in-process Tree used by tests and local runs.
type MemoryTree struct {
	mu   sync.RWMutex
	root map[string]any
}

func NewMemoryTree() *MemoryTree {
	return &MemoryTree{root: map[string]any{}}
}

func (t *MemoryTree) Subtree(ctx context.Context, path string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	node, ok := t.lookup(Split(path))
	if !ok {
		return map[string]any{}, nil
	}
	m, ok := node.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out, nil
}

func (t *MemoryTree) Push(ctx context.Context, path string, value map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	id := uuid.NewString()
	parent := t.ensure(Split(path))
	parent[id] = deepCopy(value)
	return id, nil
}

func (t *MemoryTree) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.lookup(Split(path))
	if !ok {
		return ErrNotFound
	}
	m, ok := node.(map[string]any)
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		m[k] = deepCopy(v)
	}
	return nil
}

func (t *MemoryTree) Set(ctx context.Context, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	segs := Split(path)
	if len(segs) == 0 {
		m, ok := value.(map[string]any)
		if !ok {
			return ErrNotFound
		}
		t.root = deepCopy(m).(map[string]any)
		return nil
	}
	parent := t.ensure(segs[:len(segs)-1])
	parent[segs[len(segs)-1]] = deepCopy(value)
	return nil
}

// lookup walks segments from the root without creating nodes.
func (t *MemoryTree) lookup(segs []string) (any, bool) {
	var node any = t.root
	for _, s := range segs {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[s]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// ensure walks segments from the root, creating intermediate maps.
func (t *MemoryTree) ensure(segs []string) map[string]any {
	node := t.root
	for _, s := range segs {
		child, ok := node[s].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[s] = child
		}
		node = child
	}
	return node
}

func deepCopy(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, e := range vv {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}
