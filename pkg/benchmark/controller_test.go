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

package benchmark

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	execmocks "github.com/YiqinXiong/ottertune-test/pkg/executor/mocks"
	"github.com/YiqinXiong/ottertune-test/pkg/failures"
	"github.com/YiqinXiong/ottertune-test/pkg/lightning"
	"github.com/YiqinXiong/ottertune-test/pkg/registry"
	"github.com/YiqinXiong/ottertune-test/pkg/scripts"
	"github.com/YiqinXiong/ottertune-test/pkg/scripts/mocks"
	"github.com/YiqinXiong/ottertune-test/pkg/utils/clock"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"
)

type fakeLifecycle struct {
	registry *registry.Registry
	events   []string
}

func (f *fakeLifecycle) Target(workload, cluster string) (registry.Assignment, error) {
	assignment, err := f.registry.Resolve(workload)
	if err != nil || cluster == "" {
		return assignment, err
	}
	host, err := f.registry.Host(cluster)
	return registry.Assignment{Workload: workload, Cluster: cluster, Host: host}, err
}

func (f *fakeLifecycle) Create(ctx context.Context, workload, cluster string) error {
	f.events = append(f.events, "create "+workload+" "+cluster)
	return nil
}

func (f *fakeLifecycle) DropCluster(ctx context.Context, cluster string, policy failures.Policy) error {
	f.events = append(f.events, "drop "+cluster)
	return nil
}

type fakeRestorer struct {
	result lightning.Result
	err    error
	calls  int
}

func (f *fakeRestorer) Restore(ctx context.Context, workload, cluster, dumpDir string) (lightning.Result, error) {
	f.calls++
	return f.result, f.err
}

type runRecorder struct {
	runs []*Run
}

func (r *runRecorder) Record(ctx context.Context, run *Run) error {
	r.runs = append(r.runs, run)
	return nil
}

const sysbenchOutput = `sysbench 1.0.20 (using bundled LuaJIT 2.1.0-beta2)

Running the test with following options:
Number of threads: 16
Report intermediate results every 10 second(s)

[ 10s ] thds: 16 tps: 1000.00 qps: 20000.00 (r/w/o: 14000.00/4000.00/2000.00) lat (ms,95%): 20.00 err/s: 0.00 reconn/s: 0.00
[ 20s ] thds: 16 tps: 1200.00 qps: 24000.00 (r/w/o: 16800.00/4800.00/2400.00) lat (ms,95%): 18.00 err/s: 0.00 reconn/s: 0.00
[ 30s ] thds: 16 tps: 1100.00 qps: 22000.00 (r/w/o: 15400.00/4400.00/2200.00) lat (ms,95%): 22.00 err/s: 1.00 reconn/s: 0.00

SQL statistics:
    transactions:                        33000  (1100.00 per sec.)
`

func listDir(dir string) []string {
	infos, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := []string{}
	for _, info := range infos {
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names
}

func TestController(t *testing.T) {
	Convey("With benchmark home and controller", t, func() {
		home, err := ioutil.TempDir("", "benchmark")
		So(err, ShouldBeNil)
		defer os.RemoveAll(home)
		So(os.MkdirAll(filepath.Join(home, "log"), 0755), ShouldBeNil)

		registryConfig, err := registry.NewConfig([]string{"tpcc", "ycsb"}, []string{"tidb-1", "tidb-2"}, []string{"h1", "h2"})
		So(err, ShouldBeNil)
		reg, err := registry.New(registryConfig)
		So(err, ShouldBeNil)
		lc := &fakeLifecycle{registry: reg}
		restorer := &fakeRestorer{result: lightning.Result{Status: lightning.Succeeded, Attempts: 1}}
		runner := &mocks.Runner{}
		recorder := &runRecorder{}
		start := time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)
		clk := clock.NewFake(start)

		config := DefaultConfig()
		config.Home = home
		controller := NewController(lc, restorer, runner, scripts.LocalFiles{}, clk, config, recorder)
		ctx := context.Background()
		resultsDir := filepath.Join(home, "results")

		Convey("Sysbench run is synchronous and archives exactly one config and one log", func() {
			liveLog := filepath.Join(home, "log", "tpcc_run_point-select.log")
			runner.On("RunCommand", ctx, mock.MatchedBy(func(command string) bool {
				return SysbenchCommand(filepath.Join(home, "config", "tidb", "tidb-1", "tpcc_config_run"),
					"oltp_point_select", 32, 10000000, []string{"--rand-type=uniform"}, "run", liveLog) == command
			})).Return(nil).Run(func(args mock.Arguments) {
				So(ioutil.WriteFile(liveLog, []byte(sysbenchOutput), 0644), ShouldBeNil)
			}).Once()

			run, err := controller.Run(ctx, Request{
				Tool: "sysbench", Workload: "tpcc", RunType: "point-select", Params: []string{"--rand-type=uniform"},
			})
			So(err, ShouldBeNil)
			runner.AssertExpectations(t)

			So(run.Detached, ShouldBeFalse)
			So(run.Handle, ShouldBeNil)
			So(listDir(resultsDir), ShouldResemble, []string{
				"tpcc_2022-03-04_05-06-07.point-select.config",
				"tpcc_2022-03-04_05-06-07.point-select.log",
			})
			So(run.ArchivedLog, ShouldEqual, filepath.Join(resultsDir, "tpcc_2022-03-04_05-06-07.point-select.log"))

			archived, err := ioutil.ReadFile(run.ArchivedLog)
			So(err, ShouldBeNil)
			So(string(archived), ShouldEqual, sysbenchOutput)

			archivedConfig, err := ioutil.ReadFile(run.ArchivedConfig)
			So(err, ShouldBeNil)
			So(string(archivedConfig), ShouldContainSubstring, "mysql-host=h1\n")
			So(string(archivedConfig), ShouldContainSubstring, "mysql-db=tpcc\n")
			So(string(archivedConfig), ShouldContainSubstring, "time=300\n")

			So(run.Summary, ShouldNotBeNil)
			So(run.Summary.Intervals, ShouldEqual, 3)
			So(run.Summary.TPSMean, ShouldAlmostEqual, 1100.0)
			So(recorder.runs, ShouldHaveLength, 1)
			So(recorder.runs[0], ShouldEqual, run)

			Convey("Second run with the same timestamp gets distinct names", func() {
				runner.On("RunCommand", ctx, mock.AnythingOfType("string")).Return(nil).Once()
				second, err := controller.Run(ctx, Request{Tool: "sysbench", Workload: "tpcc", RunType: "point-select"})
				So(err, ShouldBeNil)
				So(second.ArchivedLog, ShouldEqual, filepath.Join(resultsDir, "tpcc_2022-03-04_05-06-07-1.point-select.log"))
				So(listDir(resultsDir), ShouldHaveLength, 4)
			})
		})

		Convey("Failed sysbench run archives nothing", func() {
			runner.On("RunCommand", ctx, mock.AnythingOfType("string")).Return(&failures.ScriptError{ExitCode: 1}).Once()
			_, err := controller.Run(ctx, Request{Tool: "sysbench", Workload: "tpcc", RunType: "read-only"})
			So(failures.IsScriptFailure(err), ShouldBeTrue)
			So(listDir(resultsDir), ShouldBeEmpty)
			So(recorder.runs, ShouldBeEmpty)
		})

		Convey("BenchBase run is detached and archives nothing", func() {
			handle := &execmocks.TaskHandle{}
			expected := BenchBaseRunCommand(home, "ycsb",
				filepath.Join(home, "config", "tidb", "tidb-1", "ycsb_config.xml"),
				filepath.Join(home, "log", "ycsb_run.log"), 5)
			runner.On("Launch", expected).Return(handle, nil).Once()

			run, err := controller.Run(ctx, Request{Tool: "benchbase", Workload: "ycsb", Cluster: "tidb-1"})
			So(err, ShouldBeNil)
			runner.AssertExpectations(t)
			So(run.Detached, ShouldBeTrue)
			So(run.Handle, ShouldEqual, handle)
			So(run.Cluster, ShouldEqual, "tidb-1")
			So(listDir(resultsDir), ShouldBeEmpty)
			So(recorder.runs, ShouldHaveLength, 1)
		})

		Convey("BenchBase run without cluster uses shared configuration", func() {
			runner.On("Launch", mock.MatchedBy(func(command string) bool {
				return command == BenchBaseRunCommand(home, "tpcc",
					filepath.Join(home, "config", "tidb", "tpcc_config.xml"),
					filepath.Join(home, "log", "tpcc_run.log"), 5)
			})).Return(&execmocks.TaskHandle{}, nil).Once()

			run, err := controller.Run(ctx, Request{Tool: "benchbase", Workload: "tpcc"})
			So(err, ShouldBeNil)
			So(run.Cluster, ShouldEqual, "tidb-1")
			runner.AssertExpectations(t)
		})

		Convey("Unsupported tool fails before any side effect", func() {
			_, err := controller.Run(ctx, Request{Tool: "tpcc-mysql", Workload: "tpcc"})
			So(errors.Cause(err), ShouldEqual, failures.ErrUnsupportedTool)

			_, err = controller.Load(ctx, "hammerdb", "tpcc", "")
			So(errors.Cause(err), ShouldEqual, failures.ErrUnsupportedTool)

			_, _, err = controller.RunFull(ctx, Request{Tool: "hammerdb", Workload: "tpcc"}, "")
			So(errors.Cause(err), ShouldEqual, failures.ErrUnsupportedTool)

			So(lc.events, ShouldBeEmpty)
			So(restorer.calls, ShouldEqual, 0)
			runner.AssertNotCalled(t, "RunCommand", mock.Anything, mock.Anything)
			runner.AssertNotCalled(t, "Launch", mock.Anything)
		})

		Convey("Unsupported sysbench run type fails before any side effect", func() {
			for _, runType := range []string{"", "select-random-points", "POINT-SELECT"} {
				_, err := controller.Run(ctx, Request{Tool: "sysbench", Workload: "tpcc", RunType: runType})
				So(errors.Cause(err), ShouldEqual, failures.ErrUnsupportedRunType)

				_, _, err = controller.RunFull(ctx, Request{Tool: "sysbench", Workload: "tpcc", RunType: runType}, "")
				So(errors.Cause(err), ShouldEqual, failures.ErrUnsupportedRunType)
			}
			So(restorer.calls, ShouldEqual, 0)
			So(listDir(filepath.Join(home, "config")), ShouldBeEmpty)
			runner.AssertNotCalled(t, "RunCommand", mock.Anything, mock.Anything)
		})

		Convey("Unknown workload is rejected", func() {
			_, err := controller.Run(ctx, Request{Tool: "benchbase", Workload: "tpch"})
			So(errors.Cause(err), ShouldEqual, failures.ErrUnsupportedWorkload)
		})

		Convey("Load drops cluster, creates database and launches load", func() {
			runner.On("Launch", BenchBaseLoadCommand(home, "ycsb",
				filepath.Join(home, "config", "tidb", "ycsb_config.xml"),
				filepath.Join(home, "log", "ycsb_load.log"))).Return(&execmocks.TaskHandle{}, nil).Once()

			run, err := controller.Load(ctx, "benchbase", "ycsb", "")
			So(err, ShouldBeNil)
			So(lc.events, ShouldResemble, []string{"drop tidb-2", "create ycsb tidb-2"})
			So(run.Phase, ShouldEqual, LoadPhase)
			So(run.Detached, ShouldBeTrue)
			runner.AssertExpectations(t)
		})

		Convey("Sysbench populate prepares tables with generated configuration", func() {
			configPath := filepath.Join(home, "config", "tidb", "tidb-1", "tpcc_config_load")
			runner.On("Launch", SysbenchCommand(configPath, "oltp_point_select", 32, 10000000, nil, "prepare",
				filepath.Join(home, "log", "tpcc_load.log"))).Return(&execmocks.TaskHandle{}, nil).Once()

			_, err := controller.Populate(ctx, "sysbench", "tpcc", "")
			So(err, ShouldBeNil)
			So(lc.events, ShouldResemble, []string{"create tpcc tidb-1"})

			content, err := ioutil.ReadFile(configPath)
			So(err, ShouldBeNil)
			So(string(content), ShouldNotContainSubstring, "time=")
		})

		Convey("LoadFull waits for the load and reports its exit code", func() {
			handle := &execmocks.TaskHandle{}
			handle.On("Wait", mock.Anything).Return(true)
			handle.On("ExitCode").Return(2, nil)
			handle.On("Address").Return("127.0.0.1")
			runner.On("Launch", mock.AnythingOfType("string")).Return(handle, nil).Once()

			_, err := controller.LoadFull(ctx, "benchbase", "tpcc", "")
			So(failures.IsScriptFailure(err), ShouldBeTrue)
			So(err.(*failures.ScriptError).ExitCode, ShouldEqual, 2)
		})

		Convey("RunFull restores before running", func() {
			runner.On("Launch", mock.AnythingOfType("string")).Return(&execmocks.TaskHandle{}, nil).Once()
			result, run, err := controller.RunFull(ctx, Request{Tool: "benchbase", Workload: "tpcc"}, "")
			So(err, ShouldBeNil)
			So(result.Status, ShouldEqual, lightning.Succeeded)
			So(run, ShouldNotBeNil)
			So(restorer.calls, ShouldEqual, 1)

			Convey("and does not run when restore fails", func() {
				restorer.err = failures.ErrDumpNotFound
				_, run, err := controller.RunFull(ctx, Request{Tool: "benchbase", Workload: "tpcc"}, "")
				So(errors.Cause(err), ShouldEqual, failures.ErrDumpNotFound)
				So(run, ShouldBeNil)
				runner.AssertNumberOfCalls(t, "Launch", 1)
			})
		})
	})
}

func TestArchiveNames(t *testing.T) {
	Convey("Archive names follow workload, timestamp and run type", t, func() {
		dir, err := ioutil.TempDir("", "results")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)
		ts := time.Date(2021, 12, 31, 23, 59, 1, 0, time.UTC)

		configPath, logPath, err := ArchiveNames(context.Background(), scripts.LocalFiles{}, dir, "ycsb", "insert", ts)
		So(err, ShouldBeNil)
		So(configPath, ShouldEqual, filepath.Join(dir, "ycsb_2021-12-31_23-59-01.insert.config"))
		So(logPath, ShouldEqual, filepath.Join(dir, "ycsb_2021-12-31_23-59-01.insert.log"))

		Convey("Existing log alone causes a new name", func() {
			So(ioutil.WriteFile(logPath, nil, 0644), ShouldBeNil)
			configPath, _, err := ArchiveNames(context.Background(), scripts.LocalFiles{}, dir, "ycsb", "insert", ts)
			So(err, ShouldBeNil)
			So(configPath, ShouldEqual, filepath.Join(dir, "ycsb_2021-12-31_23-59-01-1.insert.config"))
		})
	})
}

// hostFiles notes every file operation done on the driver host.
type hostFiles struct {
	scripts.LocalFiles
	operations []string
}

func (h *hostFiles) WriteFile(ctx context.Context, path string, data []byte) error {
	h.operations = append(h.operations, "write "+filepath.Base(path))
	return h.LocalFiles.WriteFile(ctx, path, data)
}

func (h *hostFiles) ReadFile(ctx context.Context, path string) ([]byte, error) {
	h.operations = append(h.operations, "read "+filepath.Base(path))
	return h.LocalFiles.ReadFile(ctx, path)
}

func (h *hostFiles) Copy(ctx context.Context, src, dst string) error {
	h.operations = append(h.operations, "copy "+filepath.Base(src)+" "+filepath.Base(dst))
	return h.LocalFiles.Copy(ctx, src, dst)
}

func TestDriverHostFiles(t *testing.T) {
	Convey("Sysbench configuration, archive and summary use files of driver host", t, func() {
		home, err := ioutil.TempDir("", "driver-host")
		So(err, ShouldBeNil)
		defer os.RemoveAll(home)

		reg, err := registry.New(registry.DefaultConfig())
		So(err, ShouldBeNil)
		runner := &mocks.Runner{}
		files := &hostFiles{}
		config := DefaultConfig()
		config.Home = home
		controller := NewController(&fakeLifecycle{registry: reg}, &fakeRestorer{}, runner, files,
			clock.NewFake(time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)), config)

		ctx := context.Background()
		liveLog := filepath.Join(home, "log", "sysbench_run_read-write.log")
		runner.On("RunCommand", ctx, mock.AnythingOfType("string")).Return(nil).Run(func(mock.Arguments) {
			So(os.MkdirAll(filepath.Dir(liveLog), 0755), ShouldBeNil)
			So(ioutil.WriteFile(liveLog, []byte(sysbenchOutput), 0644), ShouldBeNil)
		}).Once()

		run, err := controller.Run(ctx, Request{Tool: "sysbench", Workload: "sysbench", RunType: "read-write"})
		So(err, ShouldBeNil)
		So(run.Summary, ShouldNotBeNil)
		So(files.operations, ShouldResemble, []string{
			"write sysbench_config_run",
			"copy sysbench_config_run sysbench_2022-03-04_05-06-07.read-write.config",
			"copy sysbench_run_read-write.log sysbench_2022-03-04_05-06-07.read-write.log",
			"read sysbench_2022-03-04_05-06-07.read-write.log",
		})
	})
}
