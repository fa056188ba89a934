package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"homelink/internal/domain/service"
	"homelink/pkg/errors"
	"homelink/pkg/logger"
)

const (
	redisKeyPrefix     = "rt:"
	redisEventsChannel = "rt:events"
	redisScanBatch     = 200
)

// RedisStore keeps every written path under its own key and announces writes
// on a pub/sub channel, so subscribers in any process sharing the Redis
// instance are woken. Reads assemble the subtree below a path from its keys.
type RedisStore struct {
	client *redis.Client
	hub    *Hub
	pubsub *redis.PubSub

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRedisStore(client *redis.Client) *RedisStore {
	ctx, cancel := context.WithCancel(context.Background())
	s := &RedisStore{
		client: client,
		hub:    NewHub(),
		pubsub: client.Subscribe(ctx, redisEventsChannel),
		cancel: cancel,
	}

	s.wg.Add(1)
	go s.listen(ctx)
	return s
}

func (s *RedisStore) listen(ctx context.Context) {
	defer s.wg.Done()

	for msg := range s.pubsub.Channel() {
		if ctx.Err() != nil {
			return
		}
		s.hub.Notify(msg.Payload)
	}
}

func redisKey(path string) string {
	return redisKeyPrefix + Normalize(path)
}

func (s *RedisStore) Set(ctx context.Context, path string, value interface{}) error {
	path = Normalize(path)
	if path == "" {
		return errors.InvalidInput("realtime path is required", nil)
	}

	descendants, err := s.scanKeys(ctx, redisKey(path)+"/*")
	if err != nil {
		return err
	}

	var payload []byte
	if value != nil {
		if payload, err = json.Marshal(value); err != nil {
			return errors.InvalidInput("realtime value must be JSON encodable", err)
		}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(descendants) > 0 {
			pipe.Del(ctx, descendants...)
		}
		if payload == nil {
			pipe.Del(ctx, redisKey(path))
		} else {
			pipe.Set(ctx, redisKey(path), payload, 0)
		}
		pipe.Publish(ctx, redisEventsChannel, path)
		return nil
	})
	if err != nil {
		return errors.StoreUnavailable("Failed to write realtime path", err)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	payloads := make(map[string][]byte, len(fields))
	for key, value := range fields {
		full := Join(path, key)
		if full == "" {
			return errors.InvalidInput("realtime update key is required", nil)
		}
		data, err := json.Marshal(value)
		if err != nil {
			return errors.InvalidInput("realtime value must be JSON encodable", err)
		}
		payloads[full] = data
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for full, data := range payloads {
			pipe.Set(ctx, redisKey(full), data, 0)
		}
		for full := range payloads {
			pipe.Publish(ctx, redisEventsChannel, full)
		}
		return nil
	})
	if err != nil {
		return errors.StoreUnavailable("Failed to update realtime path", err)
	}
	return nil
}

func (s *RedisStore) Push(ctx context.Context, path string, value interface{}) (string, error) {
	key, err := uuid.NewV7()
	if err != nil {
		return "", errors.Internal("Failed to generate realtime key", err)
	}
	if err := s.Set(ctx, Join(path, key.String()), value); err != nil {
		return "", err
	}
	return key.String(), nil
}

// Get returns the value stored at path merged with every descendant key.
func (s *RedisStore) Get(ctx context.Context, path string) (service.Snapshot, error) {
	path = Normalize(path)
	snapshot := service.Snapshot{Path: path}

	var tree interface{}
	raw, err := s.client.Get(ctx, redisKey(path)).Bytes()
	switch {
	case err == redis.Nil:
	case err != nil:
		return snapshot, errors.StoreUnavailable("Failed to read realtime path", err)
	default:
		if err := json.Unmarshal(raw, &tree); err != nil {
			return snapshot, errors.Internal("Corrupt realtime value", err)
		}
	}

	keys, err := s.scanKeys(ctx, redisKey(path)+"/*")
	if err != nil {
		return snapshot, err
	}
	if len(keys) > 0 {
		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return snapshot, errors.StoreUnavailable("Failed to read realtime subtree", err)
		}

		root, ok := tree.(map[string]interface{})
		if !ok {
			root = make(map[string]interface{})
		}
		prefix := redisKey(path) + "/"
		for i, key := range keys {
			str, ok := values[i].(string)
			if !ok {
				continue
			}
			var value interface{}
			if err := json.Unmarshal([]byte(str), &value); err != nil {
				logger.Warn("realtime: skipping corrupt key %s: %v", key, err)
				continue
			}
			setNode(root, split(strings.TrimPrefix(key, prefix)), value)
		}
		tree = root
	}

	snapshot.Value = tree
	snapshot.Exists = tree != nil
	return snapshot, nil
}

func (s *RedisStore) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, redisScanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.StoreUnavailable("Failed to scan realtime keys", err)
	}
	return keys, nil
}

func (s *RedisStore) Subscribe(ctx context.Context, path string, onChange func(service.Snapshot)) (service.Unsubscribe, error) {
	return s.hub.Subscribe(ctx, path, s.Get, onChange)
}

func (s *RedisStore) Close() error {
	s.hub.Close()
	s.cancel()
	err := s.pubsub.Close()
	s.wg.Wait()
	return err
}
