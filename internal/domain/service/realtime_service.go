package service

import "context"

// Snapshot is the state of one realtime path at notification time. Consumers
// should treat it as a wake-up signal and re-read the document store.
type Snapshot struct {
	Path   string
	Value  interface{}
	Exists bool
}

// Unsubscribe detaches a subscription. It is safe to call more than once.
type Unsubscribe func()

// RealtimeStore is a key-value tree addressed by slash-separated paths. It
// only ever holds copies of authoritative data.
type RealtimeStore interface {
	Set(ctx context.Context, path string, value interface{}) error
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	Push(ctx context.Context, path string, value interface{}) (string, error)
	Get(ctx context.Context, path string) (Snapshot, error)

	// Subscribe calls onChange once with the current state of path and then
	// after every write to path, one of its descendants or one of its
	// ancestors. Calls for one subscription never overlap.
	Subscribe(ctx context.Context, path string, onChange func(Snapshot)) (Unsubscribe, error)

	Close() error
}
