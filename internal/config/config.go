package config

import "time"

type Config interface {
	EnvConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetBaseURL() string
	GetHTTPTimeout() time.Duration
	GetLogLevel() string
	GetEnv() string
}

type StorageConfig interface {
	GetStoragePath() string
	GetStoragePassphrase() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
