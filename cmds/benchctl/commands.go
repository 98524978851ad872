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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/YiqinXiong/ottertune-test/pkg/benchmark"
	"github.com/YiqinXiong/ottertune-test/pkg/campaign"
	"github.com/YiqinXiong/ottertune-test/pkg/conf"
	"github.com/YiqinXiong/ottertune-test/pkg/lightning"
	"github.com/sirupsen/logrus"
)

type operation func(ctx context.Context, env *environment) error

type command struct {
	name string
	help string
	run  operation
}

var commands = []command{
	{"resolve", "Print cluster and coordinator host of workload.", resolve},
	{"restart-database", "Reload configuration of cluster assigned to workload.", restartDatabase},
	{"drop-database", "Wipe data of cluster (of workload when --cluster is empty) and start it again.", dropDatabase},
	{"create-database", "Create database of workload.", createDatabase},
	{"configure", "Apply configuration file to cluster of workload.", configure},
	{"load", "Create database and populate it in background.", loadDatabase},
	{"run", "Run benchmark (background for benchbase).", runBenchmark},
	{"dump-database", "Dump databases of cluster into dump directory of workload.", dumpDatabase},
	{"restore-database", "Restore dump of workload with automatic retries.", restoreDatabase},
	{"clean-config", "Reset configuration of cluster of workload to defaults.", cleanConfig},
	{"run-full", "Restore dump of workload and run benchmark.", runFull},
	{"load-full", "Drop cluster, create database and load data.", loadFull},
	{"run-concurrency-sweep", "Run benchmark once per value of swept global variable.", runConcurrencySweep},
	{"run-patch-cycle", "Rotate server builds and benchmark each of them.", runPatchCycle},
}

func registerCommands() map[string]operation {
	operations := map[string]operation{}
	for _, c := range commands {
		conf.NewCommand(c.name, c.help)
		operations[c.name] = c.run
	}
	return operations
}

func request() benchmark.Request {
	return benchmark.Request{
		Tool:     toolFlag.Value(),
		Workload: workloadFlag.Value(),
		Cluster:  clusterFlag.Value(),
		RunType:  runTypeFlag.Value(),
		Params:   benchmark.SplitParams(paramsFlag.Value()),
	}
}

// awaitIfRequested waits for detached run when --wait is set.
func awaitIfRequested(ctx context.Context, run *benchmark.Run) error {
	if run.Detached && !waitFlag.Value() {
		logrus.Infof("%s %s of %s runs in background, log: %s", run.Tool, run.Phase, run.Workload, run.LogPath)
		return nil
	}
	return benchmark.Await(ctx, run)
}

func resolve(ctx context.Context, env *environment) error {
	assignment, err := env.lifecycle.Target(workloadFlag.Value(), clusterFlag.Value())
	if err != nil {
		return err
	}
	fmt.Println(assignment.Cluster, assignment.Host)
	return nil
}

func restartDatabase(ctx context.Context, env *environment) error {
	return env.lifecycle.Restart(ctx, workloadFlag.Value(), env.policy)
}

func dropDatabase(ctx context.Context, env *environment) error {
	if clusterFlag.Value() != "" {
		return env.lifecycle.DropCluster(ctx, clusterFlag.Value(), env.policy)
	}
	return env.lifecycle.Drop(ctx, workloadFlag.Value(), env.policy)
}

func createDatabase(ctx context.Context, env *environment) error {
	return env.lifecycle.Create(ctx, workloadFlag.Value(), clusterFlag.Value())
}

func configure(ctx context.Context, env *environment) error {
	return env.lifecycle.Configure(ctx, workloadFlag.Value(), configFlag.Value())
}

func cleanConfig(ctx context.Context, env *environment) error {
	return env.lifecycle.CleanConfig(ctx, workloadFlag.Value())
}

func loadDatabase(ctx context.Context, env *environment) error {
	run, err := env.bench.Load(ctx, toolFlag.Value(), workloadFlag.Value(), clusterFlag.Value())
	if err != nil {
		return err
	}
	return awaitIfRequested(ctx, run)
}

func loadFull(ctx context.Context, env *environment) error {
	_, err := env.bench.LoadFull(ctx, toolFlag.Value(), workloadFlag.Value(), clusterFlag.Value())
	return err
}

func runBenchmark(ctx context.Context, env *environment) error {
	run, err := env.bench.Run(ctx, request())
	if err != nil {
		return err
	}
	return awaitIfRequested(ctx, run)
}

func dumpDatabase(ctx context.Context, env *environment) error {
	dir, err := env.lifecycle.Dump(ctx, workloadFlag.Value(), clusterFlag.Value())
	if err != nil {
		return err
	}
	fmt.Println(dir)
	return nil
}

func restoreDatabase(ctx context.Context, env *environment) error {
	result, err := env.restorer.Restore(ctx, workloadFlag.Value(), clusterFlag.Value(), dumpDirFlag.Value())
	env.recordRestore(result)
	if err != nil {
		return err
	}
	logRestore(result)
	return nil
}

func logRestore(result lightning.Result) {
	if result.Status == lightning.Succeeded {
		logrus.Infof("%s restored on %s after %d attempt(s)", result.Workload, result.Cluster, result.Attempts)
		return
	}
	logrus.Errorf("restore of %s on %s failed after %d attempt(s): %v", result.Workload, result.Cluster, result.Attempts, result.LastErr)
}

func runFull(ctx context.Context, env *environment) error {
	result, run, err := env.bench.RunFull(ctx, request(), dumpDirFlag.Value())
	if result.Workload != "" {
		env.recordRestore(result)
		logRestore(result)
	}
	if err != nil {
		return err
	}
	return awaitIfRequested(ctx, run)
}

func runConcurrencySweep(ctx context.Context, env *environment) error {
	values, err := sweepValues()
	if err != nil {
		return err
	}
	result, err := env.sweeper.Sweep(ctx, request(), values)
	campaign.RenderSweep(os.Stdout, result)
	return err
}

func runPatchCycle(ctx context.Context, env *environment) error {
	result, err := env.patcher.Cycle(ctx, iterationsFlag.Value())
	campaign.RenderPatchCycle(os.Stdout, result)
	if err == nil && result.Failed() > 0 {
		logrus.Warnf("%d of %d patch cycle runs failed", result.Failed(), len(result.Runs))
	}
	return err
}
