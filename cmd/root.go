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
	"os"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "parastream",
	Short: "Local text-processing workbench",
	Long: `A local text-processing workbench backed by a locally running model host.

It corrects grammar and translates text paragraph by paragraph, running a
bounded number of model invocations concurrently and returning results in
original order.

Run "parastream serve" for the HTTP streaming API, or use "fix"/"translate"
for one-shot file processing.`,
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./parastream.yaml)")
}
