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
	"fmt"

	"github.com/spf13/cobra"

	"parastream/internal/config"
	"parastream/internal/detector"
	"parastream/internal/hostmon"
	"parastream/internal/logging"
	"parastream/internal/server"
	"parastream/internal/service"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP streaming API",
	Long: `Start the workbench HTTP server.

Endpoints:
  POST /fix-stream        grammar correction, NDJSON stream
  POST /translate-stream  translation, NDJSON stream
  GET  /health            probe (and optionally start) the model host
  GET  /config            read the operating configuration
  POST /config            update the operating configuration`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort > 0 {
			mgr.Update(func(s *config.Settings) { s.ListenPort = servePort })
		}
		cfg := mgr.Snapshot()

		log := logging.New(cfg.LogLevel)
		log.Info("starting parastream %s", version)
		log.Info("model host: %s (autostart=%v, concurrency=%d)",
			cfg.Model.Addr(), cfg.Model.Autostart, cfg.Model.Concurrency)

		db := openStore(cfg, log)
		if db != nil {
			defer db.Close()
		}

		mon := hostmon.New(log)
		det := detector.Shared()

		// A typed nil *store.Store must not end up inside the interface.
		var mem service.Memory
		if db != nil {
			mem = db
		}
		h := server.NewHandler(mgr, mon, mem, det, log)

		if err := server.ListenAndServe(cfg.ListenPort, h, log); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides config)")
}
