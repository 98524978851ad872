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

// Package lightning restores database dumps into clusters with TiDB Lightning.
//
// Every load attempt starts from a clean cluster: the cluster is dropped and the loader
// checkpoint is removed right before the loader runs, since a surviving checkpoint makes the
// loader resume instead of starting over.
package lightning

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/YiqinXiong/ottertune-test/pkg/failures"
	"github.com/YiqinXiong/ottertune-test/pkg/lifecycle"
	"github.com/YiqinXiong/ottertune-test/pkg/registry"
	"github.com/YiqinXiong/ottertune-test/pkg/scripts"
	"github.com/YiqinXiong/ottertune-test/pkg/utils/clock"
	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// LoaderScript runs loader with given configuration file and blocks until it ends.
const LoaderScript = "run_tidb_lightning.sh"

// Lifecycle is the part of lifecycle.Manager used by restore.
type Lifecycle interface {
	Target(workload, cluster string) (registry.Assignment, error)
	DumpDir(workload string) string
	DropCluster(ctx context.Context, cluster string, policy failures.Policy) error
	SetState(cluster, workload string, state lifecycle.State)
}

// Status is terminal status of restore.
type Status int

const (
	// Succeeded means one of attempts loaded the dump.
	Succeeded Status = iota
	// FailedFinal means every attempt failed or restore was aborted.
	FailedFinal
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case FailedFinal:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result of restore.
type Result struct {
	Workload string
	Cluster  string
	DumpDir  string
	Status   Status
	Attempts int
	// LastErr is error of last failed attempt.
	LastErr error
}

// Config of Controller.
type Config struct {
	// Workspace holds script/<cluster>/tidb-lightning.toml files.
	Workspace string
	// CheckpointDir holds <cluster>_lightning_checkpoint.pb files.
	CheckpointDir string
	// Cooldown after restore, waited regardless of outcome.
	Cooldown time.Duration
	// DropPolicy is applied to drop failures before attempts.
	DropPolicy failures.Policy
	// ExhaustionPolicy decides if exhausted retries are returned as ErrLoadRetryExhausted.
	ExhaustionPolicy failures.Policy
	Retry            RetryStrategy
}

// DefaultConfig keeps the historical behaviour: exhausted retries are only logged.
func DefaultConfig() Config {
	return Config{
		Workspace:        "/data1/workspace/ottertune-test",
		CheckpointDir:    "/tmp",
		Cooldown:         30 * time.Second,
		DropPolicy:       failures.ContinueOnError,
		ExhaustionPolicy: failures.ContinueOnError,
		Retry:            DefaultRetryStrategy(),
	}
}

// Controller runs bounded restore protocol.
type Controller struct {
	lifecycle Lifecycle
	scripts   scripts.Runner
	files     scripts.Files
	clock     clock.Clock
	config    Config
}

// NewController returns Controller. Files must reach the filesystem of the host where runner starts the loader.
func NewController(lc Lifecycle, runner scripts.Runner, files scripts.Files, clk clock.Clock, config Config) (*Controller, error) {
	if err := config.Retry.validate(); err != nil {
		return nil, err
	}
	config.Retry = config.Retry.withDefaults()
	return &Controller{lifecycle: lc, scripts: runner, files: files, clock: clk, config: config}, nil
}

// ConfigPath returns loader configuration of cluster.
func (c *Controller) ConfigPath(cluster string) string {
	return path.Join(c.config.Workspace, "script", cluster, "tidb-lightning.toml")
}

// CheckpointPath returns loader checkpoint of cluster.
func (c *Controller) CheckpointPath(cluster string) string {
	return path.Join(c.config.CheckpointDir, cluster+checkpointPostfix)
}

// SchemaArtifact returns schema creation file expected in dump of workload.
func SchemaArtifact(dumpDir, workload string) string {
	return path.Join(dumpDir, workload+schemaFileSuffix)
}

// abortError stops retries immediately.
type abortError struct {
	error
}

// Restore loads dump of workload into cluster. Empty cluster means the cluster assigned to workload,
// empty dumpDir means default dump directory of workload.
//
// ErrDumpNotFound is returned before anything is dropped. Exhausted retries are handled by
// ExhaustionPolicy, the returned Result carries the terminal status in every case.
func (c *Controller) Restore(ctx context.Context, workload, cluster, dumpDir string) (Result, error) {
	assignment, err := c.lifecycle.Target(workload, cluster)
	if err != nil {
		return Result{}, err
	}
	if dumpDir == "" {
		dumpDir = c.lifecycle.DumpDir(workload)
	}

	result := Result{Workload: workload, Cluster: assignment.Cluster, DumpDir: dumpDir, Status: FailedFinal}
	configPath := c.ConfigPath(assignment.Cluster)

	if err := rewriteDataSourceDir(ctx, c.files, configPath, dumpDir); err != nil {
		return result, err
	}

	schema := SchemaArtifact(dumpDir, workload)
	exists, err := c.files.Exists(ctx, schema)
	if err != nil {
		return result, err
	}
	if !exists {
		return result, errors.Wrapf(failures.ErrDumpNotFound, "%q is missing", schema)
	}

	log.Infof("restoring %s into %s from %s", workload, assignment.Cluster, dumpDir)
	loadErr := c.load(ctx, assignment.Cluster, workload, configPath, &result)

	log.Infof("waiting %v after restoring %s", c.config.Cooldown, workload)
	sleepErr := c.clock.Sleep(ctx, c.config.Cooldown)

	if abort, ok := loadErr.(abortError); ok {
		return result, abort.error
	}
	if sleepErr != nil {
		return result, errors.Wrap(sleepErr, "cooldown after restore interrupted")
	}

	if result.Status == Succeeded {
		log.Infof("restored %s into %s after %d attempt(s)", workload, assignment.Cluster, result.Attempts)
		return result, nil
	}

	err = c.config.ExhaustionPolicy.Apply(
		errors.Wrapf(failures.ErrLoadRetryExhausted, "%d attempt(s), last error: %v", result.Attempts, result.LastErr),
		fmt.Sprintf("restoring %s into %s", workload, assignment.Cluster),
	)
	return result, err
}

func (c *Controller) load(ctx context.Context, cluster, workload, configPath string, result *Result) error {
	strategy := c.config.Retry
	checkpoint := c.CheckpointPath(cluster)

	attempt := func() error {
		result.Attempts++

		if err := c.lifecycle.DropCluster(ctx, cluster, c.config.DropPolicy); err != nil {
			return abortError{errors.Wrapf(err, "cannot drop %s before attempt %d", cluster, result.Attempts)}
		}

		removed, err := c.files.Remove(ctx, checkpoint)
		if err != nil {
			return abortError{errors.Wrap(err, "cannot remove loader checkpoint")}
		}
		if removed {
			log.Infof("removed loader checkpoint %s", checkpoint)
		}

		c.lifecycle.SetState(cluster, workload, lifecycle.Loading)
		if err := c.scripts.Run(ctx, LoaderScript, configPath); err != nil {
			if ctx.Err() != nil {
				return abortError{errors.Wrap(ctx.Err(), "restore interrupted")}
			}
			result.LastErr = err
			return err
		}
		return nil
	}

	err := retry.Do(
		attempt,
		retry.Attempts(uint(strategy.MaxAttempts)),
		retry.Delay(strategy.Delay),
		retry.DelayType(strategy.DelayType),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if _, ok := err.(abortError); ok {
				return false
			}
			return strategy.Retryable(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warnf("load attempt %d of %d into %s failed: %v", n+1, strategy.MaxAttempts, cluster, err)
		}),
	)

	if err == nil {
		result.Status = Succeeded
		result.LastErr = nil
		c.lifecycle.SetState(cluster, workload, lifecycle.Ready)
		return nil
	}
	if _, ok := err.(abortError); ok {
		return err
	}
	if ctx.Err() != nil {
		return abortError{errors.Wrap(ctx.Err(), "restore interrupted")}
	}
	return err
}
