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

package campaign

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/YiqinXiong/ottertune-test/pkg/benchmark"
	"github.com/YiqinXiong/ottertune-test/pkg/failures"
	"github.com/YiqinXiong/ottertune-test/pkg/scripts"
	"github.com/YiqinXiong/ottertune-test/pkg/utils/clock"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// PatchScript replaces server binaries of cluster: patch_tikv.sh <cluster> <archive>.
const PatchScript = "patch_tikv.sh"

// PatchConfig of Patcher.
type PatchConfig struct {
	// Patches are server build archives applied in order.
	Patches []string
	Cluster string
	// Benchmark is run against Cluster after each patch.
	Benchmark benchmark.Request
	// Wait is applied after patching and after benchmark.
	Wait time.Duration
	// Policy decides whether failed patch or benchmark stops the cycle.
	Policy       failures.Policy
	ShowProgress bool
}

// DefaultPatchConfig returns A/B comparison of two TiKV builds on tidb-1.
func DefaultPatchConfig() PatchConfig {
	return PatchConfig{
		Patches: []string{
			"/data1/workspace/tikv-server-master-old.tar.gz",
			"/data1/workspace/tikv-server-optimizer-2.tar.gz",
		},
		Cluster: "tidb-1",
		Benchmark: benchmark.Request{
			Tool:     string(benchmark.BenchBase),
			Workload: "tpcc",
			Cluster:  "tidb-1",
		},
		Wait:   30 * time.Second,
		Policy: failures.FailFast,
	}
}

// PatchRun is outcome of benchmark on single patch.
type PatchRun struct {
	Iteration int
	Patch     string
	Run       *benchmark.Run
	Err       error
}

// PatchResult holds benchmark runs in order of execution.
type PatchResult struct {
	Cluster string
	Runs    []PatchRun
}

// Failed returns number of runs which failed.
func (r PatchResult) Failed() int {
	failed := 0
	for _, run := range r.Runs {
		if run.Err != nil {
			failed++
		}
	}
	return failed
}

// Patcher rotates server builds of cluster and benchmarks each of them.
type Patcher struct {
	scripts scripts.Runner
	bench   Benchmark
	clock   clock.Clock
	config  PatchConfig
}

// NewPatcher returns Patcher.
func NewPatcher(runner scripts.Runner, bench Benchmark, clk clock.Clock, config PatchConfig) *Patcher {
	return &Patcher{
		scripts: runner,
		bench:   bench,
		clock:   clk,
		config:  config,
	}
}

// Cycle applies every patch iterations times and runs benchmark after each.
func (p *Patcher) Cycle(ctx context.Context, iterations int) (PatchResult, error) {
	result := PatchResult{Cluster: p.config.Cluster}
	if iterations <= 0 {
		return result, errors.Errorf("number of iterations must be positive, got %d", iterations)
	}
	if len(p.config.Patches) == 0 {
		return result, errors.New("no patches to apply")
	}

	bar := newProgress(p.config.ShowProgress, iterations*len(p.config.Patches))
	defer bar.finish()

	for iteration := 0; iteration < iterations; iteration++ {
		for _, patch := range p.config.Patches {
			bar.step(fmt.Sprintf("iteration %d, %s", iteration, filepath.Base(patch)))

			patchRun, err := p.patchAndRun(ctx, iteration, patch)
			result.Runs = append(result.Runs, patchRun)
			if err != nil {
				return result, err
			}
			bar.increment()
		}
	}
	return result, nil
}

func (p *Patcher) patchAndRun(ctx context.Context, iteration int, patch string) (PatchRun, error) {
	patchRun := PatchRun{Iteration: iteration, Patch: patch}

	log.Infof("iteration %d: applying %s to %s", iteration, patch, p.config.Cluster)
	if err := p.scripts.Run(ctx, PatchScript, p.config.Cluster, patch); err != nil {
		patchRun.Err = err
		return patchRun, p.handleErr(ctx, err, fmt.Sprintf("patching %s with %s", p.config.Cluster, patch))
	}
	if err := p.clock.Sleep(ctx, p.config.Wait); err != nil {
		patchRun.Err = err
		return patchRun, err
	}

	run, err := p.bench.Run(ctx, p.config.Benchmark)
	if err == nil {
		patchRun.Run = run
		// Runs of different patches must not overlap.
		err = benchmark.Await(ctx, run)
	}
	if err != nil {
		patchRun.Err = err
		return patchRun, p.handleErr(ctx, err, fmt.Sprintf("benchmark on %s", filepath.Base(patch)))
	}

	if err := p.clock.Sleep(ctx, p.config.Wait); err != nil {
		return patchRun, err
	}
	return patchRun, nil
}

func (p *Patcher) handleErr(ctx context.Context, err error, what string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return p.config.Policy.Apply(err, what)
}
