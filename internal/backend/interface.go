package backend

import (
	"context"

	"bilancio/internal/records"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// ReadyFunc reports whether the backend can serve requests.
type ReadyFunc func(ctx context.Context) error

// BackendResult contains the store and its lifecycle hooks. Ready and
// Cleanup are never nil.
type BackendResult struct {
	Store   records.Store
	Ready   ReadyFunc
	Cleanup CleanupFunc
	// Events reports whether mutations are published to AMQP.
	Events bool
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Event publishing, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleCategoriesSheetName string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string
	GoogleOAuthClientJSON     string
	GoogleOAuthClientFile     string
	GoogleOAuthTokenFile      string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
