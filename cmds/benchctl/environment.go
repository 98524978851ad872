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

	"github.com/YiqinXiong/ottertune-test/pkg/archive"
	"github.com/YiqinXiong/ottertune-test/pkg/benchmark"
	"github.com/YiqinXiong/ottertune-test/pkg/campaign"
	"github.com/YiqinXiong/ottertune-test/pkg/conf"
	"github.com/YiqinXiong/ottertune-test/pkg/executor"
	"github.com/YiqinXiong/ottertune-test/pkg/failures"
	"github.com/YiqinXiong/ottertune-test/pkg/lifecycle"
	"github.com/YiqinXiong/ottertune-test/pkg/lightning"
	"github.com/YiqinXiong/ottertune-test/pkg/metadata"
	"github.com/YiqinXiong/ottertune-test/pkg/registry"
	"github.com/YiqinXiong/ottertune-test/pkg/scripts"
	"github.com/YiqinXiong/ottertune-test/pkg/tidb"
	"github.com/YiqinXiong/ottertune-test/pkg/utils/clock"
	errcollection "github.com/YiqinXiong/ottertune-test/pkg/utils/err_collection"
	"github.com/avast/retry-go"
	"github.com/sirupsen/logrus"
)

// environment holds components wired from flags.
type environment struct {
	registry  *registry.Registry
	lifecycle *lifecycle.Manager
	restorer  *lightning.Controller
	bench     *benchmark.Controller
	sweeper   *campaign.Sweeper
	patcher   *campaign.Patcher
	policy    failures.Policy
	metadata  metadata.Metadata
}

func loadRegistry() (*registry.Registry, error) {
	var config registry.Config
	var err error
	if registryFileFlag.Value() != "" {
		config, err = registry.LoadFile(registryFileFlag.Value())
	} else {
		config, err = registry.NewConfig(workloadsFlag.Value(), clustersFlag.Value(), hostsFlag.Value())
	}
	if err != nil {
		return nil, err
	}
	return registry.New(config)
}

func showProgress() bool {
	return conf.LogLevel() <= logrus.ErrorLevel
}

func newEnvironment(ctx context.Context, campaignID string) (*environment, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}

	exec, err := executor.CreateExecutor(scriptHostFlag.Value(), sshKeyFlag.Value(), outputDirFlag.Value())
	if err != nil {
		return nil, err
	}
	// Scripts, drivers and the files they read live on the same host.
	shell := scripts.NewShell(exec, scriptDirFlag.Value())
	clk := clock.New()
	policy := failures.PolicyFromContinueFlag(continueOnErrorFlag.Value())

	sqlOptions := tidb.Options{Port: tidbPortFlag.Value(), User: tidbUserFlag.Value(), Password: tidbPasswordFlag.Value()}
	dial := tidb.NewDialer(sqlOptions)

	lifecycleConfig := lifecycle.DefaultConfig()
	lifecycleConfig.Workspace = workspaceFlag.Value()
	lifecycleConfig.DumpRoot = dumpRootFlag.Value()
	lifecycleConfig.SQL = sqlOptions
	lifecycleConfig.DumpFileSize = dumpFileSizeFlag.Value()
	lifecycleConfig.DumpThreads = dumpThreadsFlag.Value()
	if err := lifecycleConfig.Validate(); err != nil {
		return nil, err
	}
	manager := lifecycle.NewManager(reg, shell, shell, dial, lifecycleConfig)

	restoreConfig := lightning.DefaultConfig()
	restoreConfig.Workspace = workspaceFlag.Value()
	restoreConfig.CheckpointDir = checkpointDirFlag.Value()
	restoreConfig.Cooldown = restoreCooldownFlag.Value()
	restoreConfig.DropPolicy = policy
	if failOnExhaustedRetries.Value() {
		restoreConfig.ExhaustionPolicy = failures.FailFast
	}
	if restoreConfig.Retry.MaxAttempts, err = loadAttempts(); err != nil {
		return nil, err
	}
	restoreConfig.Retry.Delay = loadRetryDelayFlag.Value()
	restoreConfig.Retry.DelayType = retry.FixedDelay
	restorer, err := lightning.NewController(manager, shell, shell, clk, restoreConfig)
	if err != nil {
		return nil, err
	}

	env := &environment{
		registry:  reg,
		lifecycle: manager,
		restorer:  restorer,
		policy:    policy,
	}

	var recorders []benchmark.Recorder
	if env.metadata, err = metadata.NewDefault(campaignID); err != nil {
		return nil, err
	}
	if env.metadata != nil {
		if err := metadata.RecordRuntimeEnv(env.metadata, clk.Now()); err != nil {
			logrus.Warnf("cannot record runtime environment: %v", err)
		}
		recorders = append(recorders, metadata.Recorder{Metadata: env.metadata})
	}
	if archive.BucketFlag.Value() != "" {
		uploader, err := archive.NewS3Uploader(ctx, archive.DefaultS3Config(), shell)
		if err != nil {
			env.close()
			return nil, err
		}
		recorders = append(recorders, uploader)
	}

	benchConfig := benchmark.DefaultConfig()
	benchConfig.Home = benchHomeFlag.Value()
	benchConfig.ResultsDir = resultsDirFlag.Value()
	benchConfig.LogDir = benchLogDirFlag.Value()
	benchConfig.Tables = tablesFlag.Value()
	benchConfig.TableSize = tableSizeFlag.Value()
	benchConfig.Threads = threadsFlag.Value()
	benchConfig.Time = timeFlag.Value()
	benchConfig.SQL = sqlOptions
	benchConfig.DropPolicy = policy
	env.bench = benchmark.NewController(manager, restorer, shell, shell, clk, benchConfig, recorders...)

	sweepConfig := campaign.DefaultSweepConfig()
	sweepConfig.Variable = sweepVariableFlag.Value()
	sweepConfig.Settle = sweepSettleFlag.Value()
	sweepConfig.Cooldown = sweepCooldownFlag.Value()
	sweepConfig.ShowProgress = showProgress()
	env.sweeper = campaign.NewSweeper(manager, dial, env.bench, clk, sweepConfig)

	patchConfig := campaign.DefaultPatchConfig()
	patchConfig.Patches = patchesFlag.Value()
	patchConfig.Cluster = patchClusterFlag.Value()
	patchConfig.Benchmark = benchmark.Request{
		Tool:     string(benchmark.BenchBase),
		Workload: patchWorkloadFlag.Value(),
		Cluster:  patchClusterFlag.Value(),
	}
	patchConfig.Wait = patchWaitFlag.Value()
	patchConfig.ShowProgress = showProgress()
	env.patcher = campaign.NewPatcher(shell, env.bench, clk, patchConfig)

	return env, nil
}

func (e *environment) recordRestore(result lightning.Result) {
	if e.metadata == nil {
		return
	}
	if err := (metadata.Recorder{Metadata: e.metadata}).RecordRestore(result); err != nil {
		logrus.Warnf("cannot record restore of %s: %v", result.Workload, err)
	}
}

func (e *environment) close() error {
	errs := errcollection.ErrorCollection{}
	if e.metadata != nil {
		errs.Add(e.metadata.Close())
	}
	return errs.GetErrIfAny()
}
