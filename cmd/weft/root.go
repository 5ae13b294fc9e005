// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "weft",
	Short: "Weft - natural-language questions over tabular data via guarded SQL",
	Long: `Weft answers natural-language questions by generating SQL against a
read-only database, repairing failed queries within a bounded retry budget,
and remembering user-taught corrections across sessions. An evaluation
harness scores generated SQL against golden cases and gates CI on the
aggregate pass rate.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./weft.yaml)")

	rootCmd.PersistentFlags().String("db", "payroll.db", "SQLite database path")
	rootCmd.PersistentFlags().String("docs", "docs", "documentation directory for search_docs")
	rootCmd.PersistentFlags().String("memory", "memory.json", "correction memory file path")
	rootCmd.PersistentFlags().String("anthropic-model", "", "Anthropic model (default from ANTHROPIC_DEFAULT_MODEL)")
	rootCmd.PersistentFlags().Int("max-retries", 3, "repair attempts per session")

	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("docs.dir", rootCmd.PersistentFlags().Lookup("docs"))
	_ = viper.BindPFlag("memory.path", rootCmd.PersistentFlags().Lookup("memory"))
	_ = viper.BindPFlag("llm.model", rootCmd.PersistentFlags().Lookup("anthropic-model"))
	_ = viper.BindPFlag("agent.max_retries", rootCmd.PersistentFlags().Lookup("max-retries"))

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(memoryCmd)
}

// initConfig loads weft.yaml and WEFT_* environment variables.
// Priority: CLI flags > config file > env vars > defaults.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.weft")
		viper.SetConfigName("weft")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("WEFT")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "error reading config file %s: %v\n", viper.ConfigFileUsed(), err)
			os.Exit(1)
		}
	}
}

func setDefaults() {
	viper.SetDefault("database.path", "payroll.db")
	viper.SetDefault("database.notes_path", "")
	viper.SetDefault("database.max_rows", 500)

	viper.SetDefault("docs.dir", "docs")
	viper.SetDefault("memory.path", "memory.json")

	viper.SetDefault("llm.provider", "anthropic")
	viper.SetDefault("llm.model", "")
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.temperature", 1.0)
	viper.SetDefault("llm.timeout_seconds", 60)

	viper.SetDefault("agent.max_retries", 3)
	viper.SetDefault("agent.max_steps", 20)
	viper.SetDefault("agent.query_timeout_seconds", 30)

	viper.SetDefault("evals.suite_dir", "evals/golden")
	viper.SetDefault("evals.report_db", "evals.db")
	viper.SetDefault("evals.workers", 4)

	viper.SetDefault("logging.level", "info")
}
