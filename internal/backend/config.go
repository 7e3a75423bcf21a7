package backend

import (
	"errors"
	"fmt"

	"bilancio/internal/config"
	"bilancio/internal/records/google"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:       appConfig.GoogleSpreadsheetID,
		GoogleSheetName:           appConfig.GoogleSheetName,
		GoogleCategoriesSheetName: appConfig.GoogleCategoriesSheetName,
		GoogleServiceAccountJSON:  appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile:  appConfig.GoogleServiceAccountFile,
		GoogleOAuthClientJSON:     appConfig.GoogleOAuthClientJSON,
		GoogleOAuthClientFile:     appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenFile:      appConfig.GoogleOAuthTokenFile,

		DataDirectory: appConfig.DataDirectory,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}
		if !c.hasSheetsCredentials() {
			return errors.New("service account or OAuth credentials are required for sheets backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data"
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return errors.New("AMQP exchange and queue are required when AMQP is enabled")
	}
	return nil
}

func (c Config) hasSheetsCredentials() bool {
	if c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != "" {
		return true
	}
	return c.GoogleOAuthTokenFile != "" && (c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != "")
}

// SheetsConfig returns the Google Sheets client settings.
func (c Config) SheetsConfig() google.Config {
	return google.Config{
		SpreadsheetID:     c.GoogleSpreadsheetID,
		TransactionsSheet: c.GoogleSheetName,
		CategoriesSheet:   c.GoogleCategoriesSheetName,
		CredentialsJSON:   c.GoogleServiceAccountJSON,
		CredentialsFile:   c.GoogleServiceAccountFile,
		OAuthClientJSON:   c.GoogleOAuthClientJSON,
		OAuthClientFile:   c.GoogleOAuthClientFile,
		OAuthTokenFile:    c.GoogleOAuthTokenFile,
	}
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, SheetsBackend, MemoryBackend}
}
