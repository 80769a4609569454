package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civicsync-api/repository"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Store bundles the repositories of the selected database driver.
type Store struct {
	Issues        repository.IssueRepository
	Users         repository.UserRepository
	Notifications repository.NotificationRepository
	Ping          func(ctx context.Context) error
	Close         func(ctx context.Context) error
}

// ConnectDB opens a MongoDB connection and verifies it with a ping.
func ConnectDB(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	if uri == "" {
		return nil, nil, errors.New("please define the MONGODB_URI environment variable")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	return client, client.Database(dbName), nil
}

// OpenStore builds the repositories for cfg.DBDriver and, for MongoDB,
// makes sure the indexes exist.
func OpenStore(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	switch cfg.DBDriver {
	case "memory":
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return &Store{
			Issues:        repository.NewMemoryIssueRepo(),
			Users:         repository.NewMemoryUserRepo(),
			Notifications: repository.NewMemoryNotificationRepo(),
			Ping:          func(context.Context) error { return nil },
			Close:         func(context.Context) error { return nil },
		}, nil
	case "mongo", "":
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}

	client, db, err := ConnectDB(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, err
	}
	log.Info().Str("db", cfg.MongoDB).Msg("connected to MongoDB")

	issues := repository.NewMongoIssueRepo(db)
	users := repository.NewMongoUserRepo(db)
	notifications := repository.NewMongoNotificationRepo(db)

	idxCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	for name, ensure := range map[string]func(context.Context) error{
		"issues":        issues.EnsureIndexes,
		"users":         users.EnsureIndexes,
		"notifications": notifications.EnsureIndexes,
	} {
		if err := ensure(idxCtx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}

	return &Store{
		Issues:        issues,
		Users:         users,
		Notifications: notifications,
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		Close: client.Disconnect,
	}, nil
}
