// Copyright (c) 2017 Intel Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package campaign sequences benchmark runs which mutate live cluster configuration between runs.
//
// Steps of a campaign are strictly sequential. Every wait goes through clock.Clock so it can be
// interrupted by context cancellation.
package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/YiqinXiong/ottertune-test/pkg/benchmark"
	"github.com/YiqinXiong/ottertune-test/pkg/registry"
	"github.com/YiqinXiong/ottertune-test/pkg/tidb"
	"github.com/YiqinXiong/ottertune-test/pkg/utils/clock"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Targeter resolves workload to cluster.
type Targeter interface {
	Target(workload, cluster string) (registry.Assignment, error)
}

// Benchmark runs single benchmark.
type Benchmark interface {
	Run(ctx context.Context, request benchmark.Request) (*benchmark.Run, error)
}

// DefaultSweepValues are applied from the largest to the smallest.
var DefaultSweepValues = []int{30, 15, 8, 4, 2, 1}

// SweepConfig of Sweeper.
type SweepConfig struct {
	// Variable is global system variable changed before each run.
	Variable string
	// Settle is wait between configuration change and run.
	Settle time.Duration
	// Cooldown is wait between consecutive runs.
	Cooldown time.Duration
	// ShowProgress enables progress bar.
	ShowProgress bool
}

// DefaultSweepConfig returns SweepConfig sweeping scan concurrency of TiDB.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Variable: "tidb_distsql_scan_concurrency",
		Settle:   20 * time.Second,
		Cooldown: 40 * time.Second,
	}
}

// StepResult is outcome of single sweep value.
type StepResult struct {
	Value int
	Run   *benchmark.Run
}

// SweepResult holds completed steps in order of execution.
type SweepResult struct {
	Workload string
	Cluster  string
	Variable string
	Steps    []StepResult
}

// Sweeper runs concurrency sweeps.
type Sweeper struct {
	targets Targeter
	dial    tidb.Dialer
	bench   Benchmark
	clock   clock.Clock
	config  SweepConfig
}

// NewSweeper returns Sweeper.
func NewSweeper(targets Targeter, dial tidb.Dialer, bench Benchmark, clk clock.Clock, config SweepConfig) *Sweeper {
	return &Sweeper{
		targets: targets,
		dial:    dial,
		bench:   bench,
		clock:   clk,
		config:  config,
	}
}

// Sweep runs benchmark once per value. Before each run the value is set as global variable on coordinator
// of target cluster. Detached runs are awaited before the next value is applied.
// Completed steps are returned together with error which stopped the sweep.
func (s *Sweeper) Sweep(ctx context.Context, request benchmark.Request, values []int) (SweepResult, error) {
	if len(values) == 0 {
		values = DefaultSweepValues
	}

	// Precondition errors are raised before configuration is touched.
	if _, err := benchmark.ParseTool(request.Tool); err != nil {
		return SweepResult{}, err
	}
	if benchmark.Tool(request.Tool) == benchmark.Sysbench {
		if _, err := benchmark.SysbenchTest(request.RunType); err != nil {
			return SweepResult{}, err
		}
	}
	assignment, err := s.targets.Target(request.Workload, request.Cluster)
	if err != nil {
		return SweepResult{}, err
	}
	request.Cluster = assignment.Cluster

	result := SweepResult{Workload: assignment.Workload, Cluster: assignment.Cluster, Variable: s.config.Variable}

	admin, err := s.dial(assignment.Host)
	if err != nil {
		return result, errors.Wrapf(err, "cannot connect to coordinator of %s", assignment.Cluster)
	}
	defer admin.Close()

	bar := newProgress(s.config.ShowProgress, len(values))
	defer bar.finish()

	for i, value := range values {
		bar.step(fmt.Sprintf("%s=%d", s.config.Variable, value))
		log.Infof("sweep step %d/%d: setting %s to %d on %s", i+1, len(values), s.config.Variable, value, assignment.Cluster)

		if err := admin.SetGlobal(ctx, s.config.Variable, value); err != nil {
			return result, err
		}
		if err := s.clock.Sleep(ctx, s.config.Settle); err != nil {
			return result, err
		}

		run, err := s.bench.Run(ctx, request)
		if err != nil {
			return result, errors.Wrapf(err, "benchmark with %s=%d failed", s.config.Variable, value)
		}
		if err := benchmark.Await(ctx, run); err != nil {
			return result, errors.Wrapf(err, "benchmark with %s=%d failed", s.config.Variable, value)
		}
		result.Steps = append(result.Steps, StepResult{Value: value, Run: run})
		bar.increment()

		if i == len(values)-1 {
			break
		}
		if err := s.clock.Sleep(ctx, s.config.Cooldown); err != nil {
			return result, err
		}
	}
	return result, nil
}
