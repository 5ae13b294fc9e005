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

	"github.com/spf13/cobra"

	"github.com/teradata-labs/weft/pkg/memory"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and edit the correction memory",
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded corrections",
	RunE:  runMemoryList,
}

var memoryAddCmd = &cobra.Command{
	Use:   "add [pattern] [effect]",
	Short: "Record a correction by hand",
	Long: `Add records a correction without going through the agent. The pattern is
matched against future questions; the effect is injected into the system
prompt when the pattern matches.`,
	Args: cobra.ExactArgs(2),
	RunE: runMemoryAdd,
}

var memoryRecallCmd = &cobra.Command{
	Use:   "recall [question]",
	Short: "Show which corrections a question would recall",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMemoryRecall,
}

func openMemory() (memory.Store, error) {
	return newMemoryStore(newLogger())
}

func runMemoryList(cmd *cobra.Command, args []string) error {
	store, err := openMemory()
	if err != nil {
		return err
	}

	corrections := store.All()
	if len(corrections) == 0 {
		fmt.Println("No corrections recorded.")
		return nil
	}
	for _, c := range corrections {
		fmt.Printf("%s  %q -> %s\n", c.UpdatedAt.Format("2006-01-02"), c.Pattern, c.Effect)
	}
	return nil
}

func runMemoryAdd(cmd *cobra.Command, args []string) error {
	store, err := openMemory()
	if err != nil {
		return err
	}
	if err := store.Record(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to record correction: %w", err)
	}
	fmt.Printf("Recorded correction for %q.\n", args[0])
	return nil
}

func runMemoryRecall(cmd *cobra.Command, args []string) error {
	store, err := openMemory()
	if err != nil {
		return err
	}

	question := args[0]
	for _, a := range args[1:] {
		question += " " + a
	}
	matched := store.Recall(question)
	if len(matched) == 0 {
		fmt.Println("No corrections match.")
		return nil
	}
	for _, c := range matched {
		fmt.Printf("%q -> %s\n", c.Pattern, c.Effect)
	}
	return nil
}

func init() {
	memoryCmd.AddCommand(memoryListCmd)
	memoryCmd.AddCommand(memoryAddCmd)
	memoryCmd.AddCommand(memoryRecallCmd)
}
