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

	"github.com/spf13/cobra"

	"parastream/internal/config"
	"parastream/internal/dispatch"
	"parastream/internal/gateway"
	"parastream/internal/hostmon"
	"parastream/internal/logging"
	"parastream/internal/segment"
	"parastream/internal/service"
)

var (
	fixInput    string
	fixOutput   string
	fixModel    string
	fixLanguage string
	fixNoCache  bool
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Correct grammar in a text file",
	Long: `Correct grammar, spelling, and punctuation in a text file.

The file is split into paragraphs on blank lines; each paragraph is corrected
independently with bounded concurrency and the results are recombined in
original order. Paragraphs whose model invocation fails are kept unchanged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if fixInput == fixOutput {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		raw, err := os.ReadFile(fixInput)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}

		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		if fixNoCache {
			mgr.Update(func(s *config.Settings) { s.NoCache = true })
		}
		cfg := mgr.Snapshot()
		log := logging.New(cfg.LogLevel)

		ctx := context.Background()
		mon := hostmon.New(log)
		if err := ensureHost(ctx, mon, cfg); err != nil {
			return err
		}

		units := segment.Split(string(raw))
		if len(units) == 0 {
			return writeOutput(fixOutput, "")
		}

		db := openStore(cfg, log)
		var mem service.Memory
		if db != nil {
			mem = db
			defer db.Close()
		}

		pipe := service.New(cfg, gateway.NewRunner(cfg.Model), mem, nil, log)

		failed := 0
		texts := make([]string, len(units))
		sink := dispatch.SinkFunc(func(res dispatch.Result) error {
			if res.Err != nil {
				fmt.Fprintf(os.Stderr, "paragraph %d failed, keeping original: %v\n", res.Index, res.Err)
				texts[res.Index] = units[res.Index].Text
				failed++
				return nil
			}
			texts[res.Index] = res.Text
			return nil
		})

		opts := service.GrammarOptions{Language: fixLanguage}
		if err := pipe.Fix(ctx, units, fixModel, opts, sink); err != nil {
			return fmt.Errorf("correction failed: %w", err)
		}

		if err := writeOutput(fixOutput, segment.Join(texts)); err != nil {
			return err
		}

		fmt.Printf("Corrected %d/%d paragraph(s)\n", len(units)-failed, len(units))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fixCmd)

	fixCmd.Flags().StringVarP(&fixInput, "input", "i", "", "Input file (required)")
	fixCmd.Flags().StringVarP(&fixOutput, "output", "o", "", "Output file (required)")
	fixCmd.Flags().StringVarP(&fixModel, "model", "m", "", "Model name (default from config)")
	fixCmd.Flags().StringVarP(&fixLanguage, "language", "l", "", "Language of the text (optional hint)")
	fixCmd.Flags().BoolVar(&fixNoCache, "no-cache", false, "Disable the result memory")

	fixCmd.MarkFlagRequired("input")
	fixCmd.MarkFlagRequired("output")
}
