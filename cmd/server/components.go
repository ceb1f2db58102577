package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/pkg/utils"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

func loadConfig() (*config.Config, error) {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// backend is an open database connection and the repositories built on it.
type backend struct {
	store *repository.Store
	sqlDB *sql.DB
	mongo *mongo.Client
	db    *mongo.Database
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.DatabaseDriver {
	case config.DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo is unreachable: %w", err)
		}
		db := client.Database(cfg.DatabaseName)
		return &backend{store: repository.NewMongoStore(db), mongo: client, db: db}, nil
	default:
		db, err := sql.Open("postgres", cfg.PostgresURI)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("database is unreachable: %w", err)
		}
		return &backend{store: repository.NewPostgresStore(db), sqlDB: db}, nil
	}
}

func (b *backend) migrate(ctx context.Context, cfg *config.Config) error {
	if b.db != nil {
		return repository.EnsureMongoIndexes(ctx, b.db, cfg.LogRetention)
	}
	return repository.Migrate(ctx, b.sqlDB)
}

// expiresLogs reports whether the backend drops old audit entries by itself.
func (b *backend) expiresLogs() bool {
	return b.db != nil
}

func (b *backend) close() {
	slog.Info("closing database connection")
	if b.sqlDB != nil {
		if err := b.sqlDB.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}
	if b.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := b.mongo.Disconnect(ctx); err != nil {
			slog.Error("failed to disconnect mongo", "error", err)
		}
	}
}

// core holds the pieces both the server and one-shot passes need.
type core struct {
	cfg        *config.Config
	backend    *backend
	cipher     *utils.TokenCipher
	audit      service.AuditLogger
	resolver   service.AccountResolver
	dispatcher service.Dispatcher
	selector   service.DueSelector
}

func newCore(cfg *config.Config, b *backend) (*core, error) {
	cipher, err := utils.NewTokenCipher(cfg.SecretKey)
	if err != nil {
		return nil, err
	}
	if cipher == nil {
		slog.Warn("SECRET_KEY is not set, account tokens are stored unencrypted")
	}

	twitter := platform.NewTwitterPublisher(cfg.TwitterAPIURL, cfg.PublishTimeout)
	registry := platform.DefaultRegistry(twitter)

	audit := service.NewAuditLogger(b.store.Logs)
	resolver := service.NewAccountResolver(b.store.Accounts, cipher)
	dispatcher := service.NewDispatcher(b.store.Posts, resolver, registry, audit,
		service.WithPublishTimeout(cfg.PublishTimeout),
	)

	return &core{
		cfg:        cfg,
		backend:    b,
		cipher:     cipher,
		audit:      audit,
		resolver:   resolver,
		dispatcher: dispatcher,
		selector:   service.NewDueSelector(b.store.Posts),
	}, nil
}
