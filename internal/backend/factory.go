package backend

import (
	"context"
	"fmt"

	"bilancio/internal/adapters"
	"bilancio/internal/amqp"
	applog "bilancio/internal/log"
	"bilancio/internal/records"
	"bilancio/internal/records/google"
	"bilancio/internal/records/memory"
	"bilancio/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend builds the store for config.Type and, when AMQP is
// configured, wraps it so mutations publish events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		result, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachEvents(result, config)
	return result, nil
}

// attachEvents is best effort: a broker that cannot be reached leaves the
// store working without events.
func (f *DefaultFactory) attachEvents(result *BackendResult, config Config) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err.Error())
		return
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.Store = adapters.NewPublishingStore(result.Store, client, f.logger)
	result.Events = true
	storeCleanup := result.Cleanup
	result.Cleanup = func() error {
		amqpErr := client.Close()
		if err := storeCleanup(); err != nil {
			return err
		}
		return amqpErr
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// Categories added to the seed file after the first run still reach the database.
	if names := memory.SeedCategories(dataDirectory(config)); len(names) > 0 {
		if _, err := repo.SyncCategories(ctx, names); err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to sync seed categories: %w", err)
		}
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Ready:   repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, config.SheetsConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)

	return &BackendResult{
		Store: records.Paged(cli),
		Ready: func(ctx context.Context) error {
			_, err := cli.ListCategories(ctx)
			return err
		},
		Cleanup: noCleanup,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := dataDirectory(config)

	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Store:   records.Paged(store),
		Ready:   func(context.Context) error { return nil },
		Cleanup: noCleanup,
	}, nil
}

func dataDirectory(config Config) string {
	if config.DataDirectory == "" {
		return "data"
	}
	return config.DataDirectory
}

func noCleanup() error { return nil }
