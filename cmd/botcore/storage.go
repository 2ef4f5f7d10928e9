package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/RedUtils/botcore/internal/config"
	"github.com/RedUtils/botcore/internal/storage"
	"github.com/RedUtils/botcore/internal/storage/memory"
	pgstorage "github.com/RedUtils/botcore/internal/storage/postgres"
	sqlitestorage "github.com/RedUtils/botcore/internal/storage/sqlite"
	wsstorage "github.com/RedUtils/botcore/internal/storage/websocket"
	"github.com/spf13/viper"
)

// initStorage creates and initializes the configured backend. On failure the
// agent keeps playing without recording and nil is returned.
func (a *app) initStorage() storage.Backend {
	storageCfg := config.GetStorageConfig()
	if storageCfg.Type == "none" {
		a.logger.Info("Recording disabled")
		return nil
	}

	backend, err := a.createStorageBackend(storageCfg)
	if err != nil {
		a.logger.Error("Failed to create storage backend", "type", storageCfg.Type, "error", err)
		return nil
	}
	if err := backend.Init(); err != nil {
		a.logger.Error("Failed to initialize storage backend", "type", storageCfg.Type, "error", err)
		return nil
	}
	return backend
}

func (a *app) createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		a.logger.Info("Postgres storage backend initialized")
		return pgstorage.New(a.logManager), nil

	case "sqlite":
		dumpPath := filepath.Join(storageCfg.SQLite.OutputDir,
			fmt.Sprintf("%s_%s.db", ProcessName, a.sessionStart.Format("20060102_150405")))
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     dumpPath,
		}, a.logManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		a.logger.Info("SQLite storage backend initialized", "dumpPath", dumpPath)
		return backend, nil

	case "websocket":
		url := storageCfg.WebSocket.URL
		if url == "" {
			url = httpToWS(viper.GetString("api.serverUrl")) + "/api"
		}
		secret := storageCfg.WebSocket.Secret
		if secret == "" {
			secret = viper.GetString("api.apiKey")
		}
		a.logger.Info("WebSocket storage backend initialized", "url", url)
		return wsstorage.New(wsstorage.Config{
			URL:        url,
			Secret:     secret,
			AckTimeout: storageCfg.WebSocket.AckTimeout,
		}, a.logger), nil

	default:
		a.logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
