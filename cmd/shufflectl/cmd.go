// Copyright 2025 The Shuffler Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/qweeze/shuffler/shuffle"
	"github.com/qweeze/shuffler/strategy"
)

// verbosity is a pflag.Value so --verbosity can be validated against a
// closed set of names rather than accepting any string, the way cue's
// addGlobalFlags in cmd/cue/cmd/flags.go defines its own Value types
// instead of relying on the stdlib flag package's bare string/bool/int
// kinds.
type verbosity string

const (
	verbositySilent verbosity = "silent"
	verbosityDebug  verbosity = "debug"
)

func (v *verbosity) String() string { return string(*v) }
func (v *verbosity) Type() string   { return "verbosity" }
func (v *verbosity) Set(s string) error {
	switch verbosity(s) {
	case verbositySilent, verbosityDebug:
		*v = verbosity(s)
		return nil
	default:
		return fmt.Errorf("must be one of %q or %q", verbositySilent, verbosityDebug)
	}
}

func newRootCmd() *cobra.Command {
	verbose := verbositySilent

	cmd := &cobra.Command{
		Use:           "shufflectl",
		Short:         "Explore deterministic interleavings of a toy multi-task scenario.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	var vFlag pflag.Value = &verbose
	cmd.PersistentFlags().VarP(vFlag, "verbosity", "v", `log level, "silent" or "debug"`)

	cmd.AddCommand(newExploreCmd(&verbose), newRandomCmd(&verbose))
	return cmd
}

func newExploreCmd(verbose *verbosity) *cobra.Command {
	var (
		numTasks int
		opsEach  int
		useUUIDs bool
	)

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Exhaustively enumerate every interleaving of numTasks tasks with opsEach operations each.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if numTasks < 2 {
				return fmt.Errorf("explore: --tasks must be at least 2, got %d", numTasks)
			}
			if opsEach < 1 {
				return fmt.Errorf("explore: --ops must be at least 1, got %d", opsEach)
			}

			taskIDs := makeTaskIDs(numTasks, useUUIDs)

			opts := []shuffle.Option[string]{shuffle.WithMaxWaitFor[string](50 * time.Millisecond)}
			if *verbose == verbosityDebug {
				opts = append(opts, shuffle.WithLogger[string](log.New(cmd.OutOrStderr(), "", log.LstdFlags)))
			}

			s := shuffle.New[string](numTasks, strategy.NewExhaustive[string](), opts...)
			passes := runExploration(cmd, s, taskIDs, opsEach)
			fmt.Fprintf(cmd.OutOrStdout(), "explored %d distinct interleavings\n", passes)
			return nil
		},
	}

	cmd.Flags().IntVar(&numTasks, "tasks", 2, "number of concurrent tasks")
	cmd.Flags().IntVar(&opsEach, "ops", 1, "number of operations per task")
	cmd.Flags().BoolVar(&useUUIDs, "uuid-ids", false, "identify tasks by a generated UUID instead of an index")
	return cmd
}

func newRandomCmd(verbose *verbosity) *cobra.Command {
	var (
		numTasks int
		opsEach  int
		passes   int
		seed     int64
	)

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Sample a bounded number of random interleavings of numTasks tasks.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if numTasks < 2 {
				return fmt.Errorf("random: --tasks must be at least 2, got %d", numTasks)
			}

			taskIDs := makeTaskIDs(numTasks, false)

			rnd := strategy.NewRandom[string](passes)
			rnd.Seed(seed)

			opts := []shuffle.Option[string]{shuffle.WithMaxWaitFor[string](50 * time.Millisecond)}
			if *verbose == verbosityDebug {
				opts = append(opts, shuffle.WithLogger[string](log.New(cmd.OutOrStderr(), "", log.LstdFlags)))
			}

			s := shuffle.New[string](numTasks, rnd, opts...)
			n := runExploration(cmd, s, taskIDs, opsEach)
			fmt.Fprintf(cmd.OutOrStdout(), "sampled %d interleavings\n", n)
			return nil
		},
	}

	cmd.Flags().IntVar(&numTasks, "tasks", 2, "number of concurrent tasks")
	cmd.Flags().IntVar(&opsEach, "ops", 1, "number of operations per task")
	cmd.Flags().IntVar(&passes, "passes", 20, "number of random passes to sample")
	cmd.Flags().Int64Var(&seed, "seed", 1, "PRNG seed, for reproducible sampling")
	return cmd
}

func makeTaskIDs(n int, useUUIDs bool) []string {
	ids := make([]string, n)
	for i := range ids {
		if useUUIDs {
			ids[i] = uuid.New().String()
		} else {
			ids[i] = fmt.Sprintf("task-%d", i)
		}
	}
	return ids
}

// runExploration drives s to completion over taskIDs, printing each pass's
// released sequence, and returns the number of passes run.
func runExploration(cmd *cobra.Command, s *shuffle.Shuffler[string], taskIDs []string, opsEach int) int {
	passes := 0
	for !s.StrategyCompleted() {
		var wg sync.WaitGroup
		for _, taskID := range taskIDs {
			wg.Add(1)
			go func(taskID string) {
				defer wg.Done()
				for i := 0; i < opsEach; i++ {
					s.Shuffle(taskID)
				}
				s.DecrementPoolSize()
			}(taskID)
		}
		wg.Wait()

		seq := s.FinishSequence()
		fmt.Fprintf(cmd.OutOrStdout(), "pass %d: %v\n", passes+1, seq)
		passes++
	}
	return passes
}
