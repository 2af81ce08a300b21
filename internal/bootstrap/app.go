package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"portfolio-api/internal/ai"
	"portfolio-api/internal/app"
	"portfolio-api/internal/cache"
	"portfolio-api/internal/config"
	"portfolio-api/internal/pkg/jwtutil"
	"portfolio-api/internal/pkg/pdfextract"
	mongoClient "portfolio-api/internal/platform/mongo"
	mysqlClient "portfolio-api/internal/platform/mysql"
	rabbitmqClient "portfolio-api/internal/platform/rabbitmq"
	redisClient "portfolio-api/internal/platform/redis"
	sqliteClient "portfolio-api/internal/platform/sqlite"
	"portfolio-api/internal/repository"
	"portfolio-api/internal/worker"
)

type App struct {
	Config        *config.Config
	Logger        *zap.Logger
	Store         *repository.Store
	Redis         *redis.Client
	MQConn        *amqp.Connection
	Publisher     *rabbitmqClient.MessagePublisher
	MessageWorker *worker.MessagePersistWorker

	AuthService *app.AuthService
	ChatService *app.ChatService

	StartedAt time.Time
}

// New connects every configured dependency and wires the services. A missing
// storage connection string is not fatal: the API starts and reports the
// misconfiguration per request.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		StartedAt: time.Now(),
	}

	if cfg.StorageConfigured() {
		store, err := OpenStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.Store = store
		if err := store.Migrate(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	} else {
		logger.Warn("storage is not configured, persistence routes will fail",
			zap.String("driver", cfg.Storage.Driver))
	}

	var listCache *cache.MessageCache
	if cfg.Redis.Enabled {
		client, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Redis = client
		listCache = cache.NewMessageCache(client, cfg.ListTTL())
	}

	var (
		userRepo    repository.UserRepository
		messageRepo repository.MessageRepository
		persister   app.Persister
	)
	if a.Store != nil {
		userRepo = a.Store.Users
		messageRepo = a.Store.Messages
		persister = app.RepositoryPersister(messageRepo)
	}

	if cfg.RabbitMQ.Enabled && a.Store != nil {
		conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MessagePersistQueue)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.MQConn = conn

		var invalidator worker.Invalidator
		if listCache != nil {
			invalidator = listCache
		}
		a.MessageWorker = worker.NewMessagePersistWorker(conn, messageRepo, invalidator, cfg.RabbitMQ.MessagePersistQueue, logger)
		if err := a.MessageWorker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start message worker failed: %w", err)
		}
		a.Publisher = rabbitmqClient.NewMessagePublisher(conn, cfg.RabbitMQ.MessagePersistQueue)
		persister = app.QueuePersister(a.Publisher)
	}

	profile, err := loadProfile(cfg.Chat.ProfileFile)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	tokens := jwtutil.NewManager(cfg.Auth.JWTSecret, cfg.TokenTTL())
	a.AuthService = app.NewAuthService(userRepo, tokens, logger)

	var chatCache app.ListCache
	if listCache != nil {
		chatCache = listCache
	}
	a.ChatService = app.NewChatService(
		messageRepo,
		persister,
		chatCache,
		ai.NewOpenAICompatibleClient(),
		app.ChatServiceConfig{
			LLM: ai.ChatConfig{
				BaseURL: cfg.LLM.BaseURL,
				APIKey:  cfg.LLM.APIKey,
				Model:   cfg.LLM.Model,
			},
			Prompt:    app.Prompt{Profile: profile, Language: cfg.Chat.ReplyLanguage},
			Timeout:   cfg.LLMTimeout(),
			ListLimit: cfg.Chat.ListLimit,
		},
		logger,
	)

	return a, nil
}

// OpenStore connects the storage backend selected by cfg.Storage.Driver.
func OpenStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageMongo:
		client, err := mongoClient.New(ctx, mongoClient.Options{
			URI:            cfg.Mongo.URI,
			MaxPoolSize:    cfg.Mongo.MaxPoolSize,
			ConnectTimeout: time.Duration(cfg.Mongo.ConnectTimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return repository.NewMongoStore(client, cfg.MongoDatabase()), nil
	case config.StorageMySQL:
		db, err := mysqlClient.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, err
		}
		return repository.NewGormStore(db), nil
	case config.StorageSQLite:
		db, err := sqliteClient.New(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return repository.NewGormStore(db), nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
}

// loadProfile reads the background the assistant answers from. PDF resumes
// are reduced to their plain text; any other file is used as is.
func loadProfile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err := pdfextract.ExtractFile(path)
		if err != nil {
			return "", fmt.Errorf("extract profile pdf failed: %w", err)
		}
		return text, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read profile file failed: %w", err)
	}
	return string(raw), nil
}

func (a *App) Close() error {
	var errs []error
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Store != nil && a.Store.Close != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Store.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
