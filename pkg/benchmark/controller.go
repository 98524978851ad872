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

// Package benchmark launches benchmark drivers against clusters and archives their results.
//
// BenchBase runs are detached: the returned Run carries a task handle which can be awaited,
// nothing is archived. Sysbench runs are synchronous and their configuration and log are
// copied into the results directory under a timestamped name.
package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/YiqinXiong/ottertune-test/pkg/executor"
	"github.com/YiqinXiong/ottertune-test/pkg/failures"
	"github.com/YiqinXiong/ottertune-test/pkg/lightning"
	"github.com/YiqinXiong/ottertune-test/pkg/registry"
	"github.com/YiqinXiong/ottertune-test/pkg/scripts"
	"github.com/YiqinXiong/ottertune-test/pkg/tidb"
	"github.com/YiqinXiong/ottertune-test/pkg/utils/clock"
	"github.com/nu7hatch/gouuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Lifecycle is the part of lifecycle.Manager used by benchmarks.
type Lifecycle interface {
	Target(workload, cluster string) (registry.Assignment, error)
	Create(ctx context.Context, workload, cluster string) error
	DropCluster(ctx context.Context, cluster string, policy failures.Policy) error
}

// Restorer restores dumps before full runs.
type Restorer interface {
	Restore(ctx context.Context, workload, cluster, dumpDir string) (lightning.Result, error)
}

// Recorder stores records of finished or launched runs.
type Recorder interface {
	Record(ctx context.Context, run *Run) error
}

// Config of Controller.
type Config struct {
	// Home is the driver installation directory, also holding config/ and log/.
	Home string
	// ResultsDir defaults to <Home>/results.
	ResultsDir string
	// LogDir defaults to <Home>/log.
	LogDir string

	Tables         int
	TableSize      int
	Threads        int
	Time           int
	ReportInterval int
	// LoadTest is sysbench test used to prepare tables.
	LoadTest string
	// SampleWindow is BenchBase sampling window in seconds.
	SampleWindow int

	SQL tidb.Options
	// DropPolicy is applied to drop failures of Load.
	DropPolicy failures.Policy
}

// DefaultConfig returns lab setup.
func DefaultConfig() Config {
	return Config{
		Home:           "/data1/workspace/benchbase/target/benchbase-2021-SNAPSHOT",
		Tables:         32,
		TableSize:      10000000,
		Threads:        16,
		Time:           300,
		ReportInterval: 10,
		LoadTest:       "oltp_point_select",
		SampleWindow:   5,
		SQL:            tidb.DefaultOptions(),
		DropPolicy:     failures.ContinueOnError,
	}
}

func (c Config) resultsDir() string {
	if c.ResultsDir != "" {
		return c.ResultsDir
	}
	return filepath.Join(c.Home, "results")
}

func (c Config) logDir() string {
	if c.LogDir != "" {
		return c.LogDir
	}
	return filepath.Join(c.Home, "log")
}

// Request describes run of benchmark.
type Request struct {
	Tool     string
	Workload string
	// Cluster overrides assignment of workload when not empty.
	Cluster string
	// RunType is required for sysbench.
	RunType string
	// Params are extra driver arguments.
	Params []string
}

// SplitParams splits extra parameters given as single string.
func SplitParams(params string) []string {
	return strings.Fields(params)
}

// Controller launches benchmarks.
type Controller struct {
	lifecycle Lifecycle
	restorer  Restorer
	scripts   scripts.Runner
	files     scripts.Files
	clock     clock.Clock
	config    Config
	recorders []Recorder
}

// NewController returns Controller. Configurations and archives are written with files,
// which must reach the host where runner starts drivers.
func NewController(lc Lifecycle, restorer Restorer, runner scripts.Runner, files scripts.Files, clk clock.Clock, config Config, recorders ...Recorder) *Controller {
	return &Controller{
		lifecycle: lc,
		restorer:  restorer,
		scripts:   runner,
		files:     files,
		clock:     clk,
		config:    config,
		recorders: recorders,
	}
}

func newRunID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return ""
	}
	return id.String()
}

func (c *Controller) newRun(phase Phase, tool Tool, assignment registry.Assignment, runType string, params []string) *Run {
	return &Run{
		ID:        newRunID(),
		Phase:     phase,
		Tool:      tool,
		Workload:  assignment.Workload,
		Cluster:   assignment.Cluster,
		Host:      assignment.Host,
		RunType:   runType,
		Params:    params,
		Timestamp: c.clock.Now(),
	}
}

func (c *Controller) record(ctx context.Context, run *Run) {
	for _, recorder := range c.recorders {
		if err := recorder.Record(ctx, run); err != nil {
			log.Errorf("cannot record %s run of %s: %v", run.Phase, run.Workload, err)
		}
	}
}

// Populate creates database of workload and launches detached data load.
func (c *Controller) Populate(ctx context.Context, toolName, workload, cluster string) (*Run, error) {
	tool, err := ParseTool(toolName)
	if err != nil {
		return nil, err
	}
	assignment, err := c.lifecycle.Target(workload, cluster)
	if err != nil {
		return nil, err
	}

	if err := c.lifecycle.Create(ctx, workload, assignment.Cluster); err != nil {
		return nil, err
	}

	run := c.newRun(LoadPhase, tool, assignment, "", nil)
	run.Detached = true
	run.LogPath = filepath.Join(c.config.logDir(), workload+"_load.log")

	switch tool {
	case Sysbench:
		run.ConfigPath = c.sysbenchConfigPath(assignment.Cluster, workload, LoadPhase)
		if err := c.files.WriteFile(ctx, run.ConfigPath, SysbenchConfig(c.sysbenchOptions(assignment, LoadPhase))); err != nil {
			return nil, err
		}
		run.Command = SysbenchCommand(run.ConfigPath, c.config.LoadTest, c.config.Tables, c.config.TableSize, nil, "prepare", run.LogPath)
	case BenchBase:
		run.ConfigPath = c.benchBaseConfigPath("", workload)
		run.Command = BenchBaseLoadCommand(c.config.Home, workload, run.ConfigPath, run.LogPath)
	}

	if err := c.launch(run); err != nil {
		return nil, err
	}
	c.record(ctx, run)
	return run, nil
}

// Load drops cluster of workload and populates it again.
func (c *Controller) Load(ctx context.Context, toolName, workload, cluster string) (*Run, error) {
	if _, err := ParseTool(toolName); err != nil {
		return nil, err
	}
	assignment, err := c.lifecycle.Target(workload, cluster)
	if err != nil {
		return nil, err
	}

	if err := c.lifecycle.DropCluster(ctx, assignment.Cluster, c.config.DropPolicy); err != nil {
		return nil, err
	}
	return c.Populate(ctx, toolName, workload, assignment.Cluster)
}

// LoadFull is Load which waits until data load ends and checks its exit code.
func (c *Controller) LoadFull(ctx context.Context, toolName, workload, cluster string) (*Run, error) {
	run, err := c.Load(ctx, toolName, workload, cluster)
	if err != nil {
		return nil, err
	}
	if err := Await(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

// Run runs benchmark. Precondition errors are returned before anything is started.
func (c *Controller) Run(ctx context.Context, request Request) (*Run, error) {
	tool, err := ParseTool(request.Tool)
	if err != nil {
		return nil, err
	}

	var test string
	if tool == Sysbench {
		if test, err = SysbenchTest(request.RunType); err != nil {
			return nil, err
		}
	}

	assignment, err := c.lifecycle.Target(request.Workload, request.Cluster)
	if err != nil {
		return nil, err
	}

	switch tool {
	case Sysbench:
		return c.runSysbench(ctx, assignment, test, request)
	default:
		return c.runBenchBase(ctx, assignment, request)
	}
}

func (c *Controller) runSysbench(ctx context.Context, assignment registry.Assignment, test string, request Request) (*Run, error) {
	run := c.newRun(RunPhase, Sysbench, assignment, request.RunType, request.Params)
	run.ConfigPath = c.sysbenchConfigPath(assignment.Cluster, assignment.Workload, RunPhase)
	run.LogPath = filepath.Join(c.config.logDir(), fmt.Sprintf("%s_run_%s.log", assignment.Workload, request.RunType))

	if err := c.files.WriteFile(ctx, run.ConfigPath, SysbenchConfig(c.sysbenchOptions(assignment, RunPhase))); err != nil {
		return nil, err
	}
	run.Command = SysbenchCommand(run.ConfigPath, test, c.config.Tables, c.config.TableSize, request.Params, "run", run.LogPath)

	log.Infof("running sysbench %s on %s", test, assignment.Cluster)
	if err := c.scripts.RunCommand(ctx, run.Command); err != nil {
		return nil, errors.Wrapf(err, "sysbench %s on %s failed, see %s", test, assignment.Cluster, run.LogPath)
	}

	// Timestamp of archive is taken after run ends.
	run.Timestamp = c.clock.Now()
	if err := archive(ctx, c.files, c.config.resultsDir(), run); err != nil {
		return nil, err
	}
	log.Infof("sysbench results archived in %s", run.ArchivedLog)

	summary, err := c.summarize(ctx, run.ArchivedLog)
	if err != nil {
		log.Warnf("cannot summarize %s: %v", run.ArchivedLog, err)
	} else {
		run.Summary = summary
		log.Infof("%s %s: %.2f tps (+/- %.2f), p95 latency %.2f ms", assignment.Workload, request.RunType,
			summary.TPSMean, summary.TPSStdDev, summary.LatencyP95)
	}

	c.record(ctx, run)
	return run, nil
}

func (c *Controller) summarize(ctx context.Context, logPath string) (*Summary, error) {
	data, err := c.files.ReadFile(ctx, logPath)
	if err != nil {
		return nil, err
	}
	return ParseSysbenchLog(bytes.NewReader(data))
}

func (c *Controller) runBenchBase(ctx context.Context, assignment registry.Assignment, request Request) (*Run, error) {
	run := c.newRun(RunPhase, BenchBase, assignment, request.RunType, request.Params)
	run.Detached = true
	run.ConfigPath = c.benchBaseConfigPath(request.Cluster, assignment.Workload)
	run.LogPath = filepath.Join(c.config.logDir(), assignment.Workload+"_run.log")
	run.Command = BenchBaseRunCommand(c.config.Home, assignment.Workload, run.ConfigPath, run.LogPath, c.config.SampleWindow)

	if err := c.launch(run); err != nil {
		return nil, err
	}
	c.record(ctx, run)
	return run, nil
}

// RunFull restores dump of workload and runs benchmark on it.
// Exhausted restore retries are handled by policy of restorer; with continue policy the run proceeds.
func (c *Controller) RunFull(ctx context.Context, request Request, dumpDir string) (lightning.Result, *Run, error) {
	tool, err := ParseTool(request.Tool)
	if err != nil {
		return lightning.Result{}, nil, err
	}
	if tool == Sysbench {
		if _, err := SysbenchTest(request.RunType); err != nil {
			return lightning.Result{}, nil, err
		}
	}

	result, err := c.restorer.Restore(ctx, request.Workload, request.Cluster, dumpDir)
	if err != nil {
		return result, nil, err
	}
	if result.Status != lightning.Succeeded {
		log.Warnf("restore of %s ended with status %s after %d attempt(s), running anyway", request.Workload, result.Status, result.Attempts)
	}

	run, err := c.Run(ctx, request)
	return result, run, err
}

func (c *Controller) launch(run *Run) error {
	handle, err := c.scripts.Launch(run.Command)
	if err != nil {
		return err
	}
	run.Handle = handle
	log.Infof("%s %s of %s launched in background, log in %s", run.Tool, run.Phase, run.Workload, run.LogPath)
	return nil
}

// Await waits for detached run and checks exit code of driver. Synchronous runs return immediately.
func Await(ctx context.Context, run *Run) error {
	if run.Handle == nil {
		return nil
	}
	if err := executor.WaitContext(ctx, run.Handle); err != nil {
		return err
	}
	exitCode, err := run.Handle.ExitCode()
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return &failures.ScriptError{Script: string(run.Tool), Args: []string{string(run.Phase), run.Workload}, Host: run.Handle.Address(), ExitCode: exitCode}
	}
	return nil
}

func (c *Controller) sysbenchConfigPath(cluster, workload string, phase Phase) string {
	return filepath.Join(c.config.Home, "config", "tidb", cluster, fmt.Sprintf("%s_config_%s", workload, phase))
}

func (c *Controller) benchBaseConfigPath(cluster, workload string) string {
	return filepath.Join(c.config.Home, "config", "tidb", cluster, workload+"_config.xml")
}

func (c *Controller) sysbenchOptions(assignment registry.Assignment, phase Phase) SysbenchOptions {
	options := SysbenchOptions{
		Host:     assignment.Host,
		Port:     c.config.SQL.Port,
		User:     c.config.SQL.User,
		Password: c.config.SQL.Password,
		Database: assignment.Workload,
		Threads:  c.config.Threads,
	}
	if phase == RunPhase {
		options.Time = c.config.Time
		options.ReportInterval = c.config.ReportInterval
	}
	return options
}
