package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"homelink/internal/domain/service"
	"homelink/pkg/errors"
)

// MemoryStore is an in-process realtime tree. Values are normalized through
// JSON so readers see the same shapes a remote store would return.
type MemoryStore struct {
	mu   sync.RWMutex
	root map[string]interface{}
	hub  *Hub
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		root: make(map[string]interface{}),
		hub:  NewHub(),
	}
}

func (s *MemoryStore) Set(ctx context.Context, path string, value interface{}) error {
	parts := split(path)
	if len(parts) == 0 {
		return errors.InvalidInput("realtime path is required", nil)
	}
	normalized, err := normalizeValue(value)
	if err != nil {
		return errors.InvalidInput("realtime value must be JSON encodable", err)
	}

	s.mu.Lock()
	setNode(s.root, parts, normalized)
	s.mu.Unlock()

	s.hub.Notify(path)
	return nil
}

// Update writes every field relative to path in one step. Field keys may
// themselves contain slashes.
func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	base := split(path)
	normalized := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		if len(split(key)) == 0 {
			return errors.InvalidInput("realtime update key is required", nil)
		}
		v, err := normalizeValue(value)
		if err != nil {
			return errors.InvalidInput("realtime value must be JSON encodable", err)
		}
		normalized[key] = v
	}

	s.mu.Lock()
	for key, value := range normalized {
		setNode(s.root, append(append([]string(nil), base...), split(key)...), value)
	}
	s.mu.Unlock()

	for key := range normalized {
		s.hub.Notify(Join(path, key))
	}
	return nil
}

func (s *MemoryStore) Push(ctx context.Context, path string, value interface{}) (string, error) {
	key, err := uuid.NewV7()
	if err != nil {
		return "", errors.Internal("Failed to generate realtime key", err)
	}
	if err := s.Set(ctx, Join(path, key.String()), value); err != nil {
		return "", err
	}
	return key.String(), nil
}

func (s *MemoryStore) Get(ctx context.Context, path string) (service.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path = Normalize(path)
	node := getNode(s.root, split(path))
	return service.Snapshot{
		Path:   path,
		Value:  deepCopy(node),
		Exists: node != nil,
	}, nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, path string, onChange func(service.Snapshot)) (service.Unsubscribe, error) {
	return s.hub.Subscribe(ctx, path, s.Get, onChange)
}

func (s *MemoryStore) Close() error {
	s.hub.Close()
	return nil
}

func normalizeValue(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// setNode stores value at parts below root, creating intermediate nodes. A
// nil value deletes the node.
func setNode(root map[string]interface{}, parts []string, value interface{}) {
	node := root
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]interface{})
		if !ok {
			if value == nil {
				return
			}
			child = make(map[string]interface{})
			node[part] = child
		}
		node = child
	}

	last := parts[len(parts)-1]
	if value == nil {
		delete(node, last)
		return
	}
	node[last] = value
}

func getNode(root map[string]interface{}, parts []string) interface{} {
	var node interface{} = root
	for _, part := range parts {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil
		}
		node, ok = m[part]
		if !ok {
			return nil
		}
	}
	if m, ok := node.(map[string]interface{}); ok && len(m) == 0 {
		return nil
	}
	return node
}

func deepCopy(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, child := range v {
			out[key] = deepCopy(child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, child := range v {
			out[i] = deepCopy(child)
		}
		return out
	default:
		return v
	}
}
