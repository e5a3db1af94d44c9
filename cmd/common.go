/*
Copyright © 2025 The parastream authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"parastream/internal/config"
	"parastream/internal/hostmon"
	"parastream/internal/logging"
	"parastream/internal/store"
)

func loadConfig() (*config.Manager, error) {
	return config.Load(cfgFile)
}

// openStore opens the result memory database, creating the parent directory
// when needed. Returns nil (no cache) when caching is disabled.
func openStore(cfg config.Settings, log *logging.Logger) *store.Store {
	if cfg.NoCache {
		return nil
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Error("failed to create database directory: %v", err)
			return nil
		}
	}
	db, err := store.New(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database, continuing without cache: %v", err)
		return nil
	}
	return db
}

// ensureHost brings up the model host for one-shot commands, honouring the
// autostart setting.
func ensureHost(ctx context.Context, mon *hostmon.Monitor, cfg config.Settings) error {
	st := mon.EnsureRunning(ctx, cfg.Model, false)
	if !st.Reachable {
		return fmt.Errorf("model host at %s is not reachable (set model.autostart or start it manually)", cfg.Model.Addr())
	}
	return nil
}

func writeOutput(outputFile, text string) error {
	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
