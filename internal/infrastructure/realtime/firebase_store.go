package realtime

import (
	"context"

	"firebase.google.com/go/v4/db"

	"homelink/internal/domain/service"
	"homelink/pkg/errors"
	"homelink/pkg/logger"
)

// FirebaseStore mirrors data into the Firebase Realtime Database. The Admin
// SDK has no listener API, so subscriptions are driven by this process's own
// writes through the local hub. Browsers listen on the database directly.
type FirebaseStore struct {
	client *db.Client
	hub    *Hub
}

func NewFirebaseStore(client *db.Client) *FirebaseStore {
	return &FirebaseStore{
		client: client,
		hub:    NewHub(),
	}
}

func (s *FirebaseStore) Set(ctx context.Context, path string, value interface{}) error {
	if err := s.client.NewRef(Normalize(path)).Set(ctx, value); err != nil {
		return errors.StoreUnavailable("Failed to write realtime path", err)
	}
	s.hub.Notify(path)
	return nil
}

func (s *FirebaseStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	if err := s.client.NewRef(Normalize(path)).Update(ctx, fields); err != nil {
		return errors.StoreUnavailable("Failed to update realtime path", err)
	}
	for key := range fields {
		s.hub.Notify(Join(path, key))
	}
	return nil
}

func (s *FirebaseStore) Push(ctx context.Context, path string, value interface{}) (string, error) {
	ref, err := s.client.NewRef(Normalize(path)).Push(ctx, value)
	if err != nil {
		return "", errors.StoreUnavailable("Failed to push realtime value", err)
	}
	s.hub.Notify(Join(path, ref.Key))
	return ref.Key, nil
}

func (s *FirebaseStore) Get(ctx context.Context, path string) (service.Snapshot, error) {
	path = Normalize(path)
	var value interface{}
	if err := s.client.NewRef(path).Get(ctx, &value); err != nil {
		return service.Snapshot{}, errors.StoreUnavailable("Failed to read realtime path", err)
	}
	return service.Snapshot{Path: path, Value: value, Exists: value != nil}, nil
}

func (s *FirebaseStore) Subscribe(ctx context.Context, path string, onChange func(service.Snapshot)) (service.Unsubscribe, error) {
	return s.hub.Subscribe(ctx, path, s.Get, onChange)
}

func (s *FirebaseStore) Close() error {
	logger.Debug("realtime: closing firebase store with %d subscriptions", s.hub.Len())
	s.hub.Close()
	return nil
}
