package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	appNameVar     = "APP_NAME"
	baseURLVar     = "MOTOHUB_API_BASE_URL"
	httpTimeoutVar = "MOTOHUB_HTTP_TIMEOUT"
	storagePathVar = "MOTOHUB_STORAGE_PATH"
	storagePassVar = "MOTOHUB_STORAGE_PASSPHRASE"
	logLevelVar    = "LOG_LEVEL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}
var _ StorageConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "MotoHub")
}

// GetBaseURL returns the API root all endpoint paths are resolved against
// (e.g. "http://localhost:8000/api").
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8000/api")
}

func (EnvVars) GetHTTPTimeout() time.Duration {
	raw := GetEnv(httpTimeoutVar, "30s")
	timeout, err := time.ParseDuration(raw)
	if err != nil {
		return 30 * time.Second
	}
	return timeout
}

// GetStoragePath returns the session file location. Defaults to a per-user
// path under the OS config directory.
func (EnvVars) GetStoragePath() string {
	if path := os.Getenv(storagePathVar); path != "" {
		return path
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".motohub/session.json"
	}
	return filepath.Join(configDir, "motohub", "session.json")
}

// GetStoragePassphrase returns the optional passphrase used to encrypt the
// session file at rest. Empty means plaintext storage.
func (EnvVars) GetStoragePassphrase() string {
	return GetEnv(storagePassVar, "")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
