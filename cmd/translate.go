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
	"parastream/internal/detector"
	"parastream/internal/dispatch"
	"parastream/internal/gateway"
	"parastream/internal/hostmon"
	"parastream/internal/logging"
	"parastream/internal/segment"
	"parastream/internal/service"
)

var (
	trInput       string
	trOutput      string
	trSource      string
	trTarget      string
	trPunctuation string
	trModel       string
	trMaxPars     int
	trMaxChars    int
	trNoCache     bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a text file",
	Long: `Translate a text file using the local model host.

Paragraphs are batched into chunks (bounded by --max-paragraphs and
--max-chars) so each model call shares context, processed with bounded
concurrency, and recombined in original order. With --source auto the source
language is detected from the text. Glossary entries for the language pair
are injected into every prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if trInput == trOutput {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		raw, err := os.ReadFile(trInput)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}

		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		if trNoCache {
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
			return writeOutput(trOutput, "")
		}

		db := openStore(cfg, log)
		var mem service.Memory
		if db != nil {
			mem = db
			defer db.Close()
		}

		pipe := service.New(cfg, gateway.NewRunner(cfg.Model), mem, detector.Shared(), log)

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

		opts := service.TranslateOptions{
			SourceLang:       trSource,
			TargetLang:       trTarget,
			PunctuationStyle: trPunctuation,
			MaxParagraphs:    trMaxPars,
			MaxChars:         trMaxChars,
		}
		if err := pipe.Translate(ctx, units, trModel, opts, sink); err != nil {
			return fmt.Errorf("translation failed: %w", err)
		}

		if err := writeOutput(trOutput, segment.Join(texts)); err != nil {
			return err
		}

		fmt.Printf("Translated %d/%d paragraph(s) to %s\n", len(units)-failed, len(units), trTarget)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&trInput, "input", "i", "", "Input file (required)")
	translateCmd.Flags().StringVarP(&trOutput, "output", "o", "", "Output file (required)")
	translateCmd.Flags().StringVarP(&trSource, "source", "s", "auto", "Source language code")
	translateCmd.Flags().StringVarP(&trTarget, "target", "t", "", "Target language code (required)")
	translateCmd.Flags().StringVar(&trPunctuation, "punctuation", "", "Punctuation style for the output (e.g. typographic)")
	translateCmd.Flags().StringVarP(&trModel, "model", "m", "", "Model name (default from config)")
	translateCmd.Flags().IntVar(&trMaxPars, "max-paragraphs", 0, "Max paragraphs per model call (default from config)")
	translateCmd.Flags().IntVar(&trMaxChars, "max-chars", 0, "Max characters per model call (default from config)")
	translateCmd.Flags().BoolVar(&trNoCache, "no-cache", false, "Disable the result memory")

	translateCmd.MarkFlagRequired("input")
	translateCmd.MarkFlagRequired("output")
	translateCmd.MarkFlagRequired("target")
}
