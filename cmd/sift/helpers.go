package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/siftd/sift/internal/common"
	"github.com/siftd/sift/internal/rules"
	"github.com/siftd/sift/internal/storage"
)

// expandPath expands a leading ~ and $VAR environment references in a path.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return os.ExpandEnv(path)
}

// loadRuleStore decodes the rule configuration out of viper and builds the
// in-memory store. Configuration problems are fatal here; there is no
// partial load.
func loadRuleStore() (*rules.Store, error) {
	var cfg rules.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode rule configuration: %w", err)
	}
	store, err := rules.Load(cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// openDatabase opens the learned-mapping database and runs migrations.
func openDatabase(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "~/.local/share/sift/sift.db"
	}
	dbPath = expandPath(dbPath)

	db, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		closeDatabase(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// openStore builds the rule store and seeds it with persisted learned
// mappings so they take effect for this run.
func openStore(ctx context.Context) (*rules.Store, *storage.SQLiteStorage, error) {
	store, err := loadRuleStore()
	if err != nil {
		return nil, nil, err
	}

	db, err := openDatabase(ctx)
	if err != nil {
		return nil, nil, err
	}

	mappings, err := db.ListMappings(ctx)
	if err != nil {
		closeDatabase(db)
		return nil, nil, fmt.Errorf("failed to load learned mappings: %w", err)
	}
	if applied := store.SeedMappings(mappings); applied > 0 {
		common.LogInfo("Loaded learned mappings", common.Fields{"count": applied})
	}

	return store, db, nil
}

func closeDatabase(db *storage.SQLiteStorage) {
	if err := db.Close(); err != nil {
		common.LogError(err, "Failed to close database", nil)
	}
}
