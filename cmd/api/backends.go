package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"google.golang.org/api/iterator"

	"homelink/internal/adapter/api/handler"
	"homelink/internal/adapter/repository"
	domainrepo "homelink/internal/domain/repository"
	"homelink/internal/domain/service"
	"homelink/internal/infrastructure/events"
	"homelink/internal/infrastructure/firebase"
	"homelink/internal/infrastructure/realtime"
	"homelink/internal/infrastructure/session"
	"homelink/internal/infrastructure/storage"
	"homelink/internal/usecase"
	"homelink/pkg/config"
	"homelink/pkg/logger"
)

// backends holds every client opened at startup so shutdown can close them
// in reverse order.
type backends struct {
	stores  usecase.Stores
	checks  map[string]handler.HealthCheck
	closers []func() error

	verifier service.TokenVerifier
	sessions *session.Manager
	tokens   handler.CustomTokenIssuer
	files    service.FileUploadService

	fileMetadata domainrepo.FileMetadataRepository
}

func (b *backends) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logger.Warn("shutdown: close failed: %v", err)
		}
	}
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{checks: make(map[string]handler.HealthCheck)}

	var app *firebase.App
	if cfg.NeedsFirebase() {
		var err error
		if app, err = firebase.NewApp(ctx, cfg); err != nil {
			return b, err
		}
		logger.Info("Firebase app initialized for project %s", cfg.FirebaseProject)
	}

	if err := b.openDocuments(ctx, cfg, app); err != nil {
		return b, err
	}
	if err := b.openRealtime(ctx, cfg, app); err != nil {
		return b, err
	}
	if err := b.openAuth(ctx, cfg, app); err != nil {
		return b, err
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return b, err
		}
		b.stores.Events = publisher
		logger.Info("Publishing message events to Kafka topic %s", cfg.KafkaTopic)
	} else {
		b.stores.Events = events.NewLogPublisher()
	}
	b.onClose(b.stores.Events.Close)

	if cfg.StorageBucket != "" {
		files, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, app.ClientOptions()...)
		if err != nil {
			return b, err
		}
		b.files = files
		b.onClose(files.Close)
	}

	return b, nil
}

func (b *backends) openDocuments(ctx context.Context, cfg *config.Config, app *firebase.App) error {
	switch cfg.DocumentBackend {
	case config.BackendFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("failed to create firestore client: %w", err)
		}
		b.onClose(client.Close)

		b.stores.Conversations = repository.NewFirestoreConversationRepository(client)
		b.stores.Messages = repository.NewFirestoreMessageRepository(client)
		b.stores.Users = repository.NewFirestoreUserRepository(client)
		b.fileMetadata = repository.NewFirestoreFileMetadataRepository(client)
		b.checks["documents"] = func(ctx context.Context) error {
			_, err := client.Collection("conversations").Limit(1).Documents(ctx).Next()
			if err == iterator.Done {
				return nil
			}
			return err
		}

	case config.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("failed to connect to mongo: %w", err)
		}
		b.onClose(func() error { return client.Disconnect(context.Background()) })

		db := client.Database(cfg.MongoDB)
		if err := repository.EnsureMessageIndexes(ctx, db); err != nil {
			return fmt.Errorf("failed to create mongo indexes: %w", err)
		}
		b.stores.Conversations = repository.NewMongoConversationRepository(db)
		b.stores.Messages = repository.NewMongoMessageRepository(db)
		b.stores.Users = repository.NewMongoUserRepository(db)
		b.fileMetadata = repository.NewMongoFileMetadataRepository(db)
		b.checks["documents"] = func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		}

	default:
		logger.Warn("Using in-memory document store; data is lost on restart")
		b.stores.Conversations = repository.NewMemoryConversationRepository()
		b.stores.Messages = repository.NewMemoryMessageRepository()
		b.stores.Users = repository.NewMemoryUserRepository()
		b.fileMetadata = repository.NewMemoryFileMetadataRepository()
	}
	return nil
}

func (b *backends) openRealtime(ctx context.Context, cfg *config.Config, app *firebase.App) error {
	switch cfg.RealtimeBackend {
	case config.BackendFirebase:
		client, err := app.Database(ctx)
		if err != nil {
			return fmt.Errorf("failed to create realtime database client: %w", err)
		}
		b.stores.Realtime = realtime.NewFirebaseStore(client)

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		b.onClose(client.Close)
		b.stores.Realtime = realtime.NewRedisStore(client)

	default:
		logger.Warn("Using in-memory realtime store; subscribers only see this process")
		b.stores.Realtime = realtime.NewMemoryStore()
	}
	b.onClose(b.stores.Realtime.Close)

	store := b.stores.Realtime
	b.checks["realtime"] = func(ctx context.Context) error {
		_, err := store.Get(ctx, "health")
		return err
	}
	return nil
}

func (b *backends) openAuth(ctx context.Context, cfg *config.Config, app *firebase.App) error {
	switch cfg.AuthMode {
	case config.AuthModeFirebase:
		client, err := app.Auth(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize firebase auth: %w", err)
		}
		authClient := firebase.NewFirebaseAuthClient(client)
		b.verifier = authClient
		b.tokens = authClient

	case config.AuthModeSession:
		b.sessions = session.NewManager(cfg.SessionSecret, cfg.SessionTTL, cfg.SessionCookie, !cfg.IsDevelopment())
		b.verifier = b.sessions
	}
	return nil
}
