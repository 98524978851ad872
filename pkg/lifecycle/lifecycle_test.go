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

package lifecycle

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/YiqinXiong/ottertune-test/pkg/executor"
	"github.com/YiqinXiong/ottertune-test/pkg/failures"
	"github.com/YiqinXiong/ottertune-test/pkg/registry"
	"github.com/YiqinXiong/ottertune-test/pkg/scripts"
	scriptmocks "github.com/YiqinXiong/ottertune-test/pkg/scripts/mocks"
	"github.com/YiqinXiong/ottertune-test/pkg/tidb"
	tidbmocks "github.com/YiqinXiong/ottertune-test/pkg/tidb/mocks"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"
)

func newTestManager(config Config) (*Manager, *scriptmocks.Runner, *tidbmocks.Admin, *[]string) {
	reg, err := registry.New(registry.DefaultConfig())
	if err != nil {
		panic(err)
	}
	runner := &scriptmocks.Runner{}
	admin := &tidbmocks.Admin{}
	dialed := &[]string{}
	dial := func(host string) (tidb.Admin, error) {
		*dialed = append(*dialed, host)
		return admin, nil
	}
	return NewManager(reg, runner, scripts.LocalFiles{}, dial, config), runner, admin, dialed
}

func TestDrop(t *testing.T) {
	Convey("While dropping database of workload", t, func() {
		ctx := context.Background()
		manager, runner, _, _ := newTestManager(DefaultConfig())
		scriptFailure := &failures.ScriptError{Script: CleanDataScript, ExitCode: 1}

		var calls []string
		record := func(args mock.Arguments) { calls = append(calls, args.String(1)+" "+args.String(2)) }

		Convey("Data is cleaned before cluster is started", func() {
			runner.On("Run", ctx, CleanDataScript, "tidb-2").Return(nil).Run(record)
			runner.On("Run", ctx, StartClusterScript, "tidb-2").Return(nil).Run(record)

			So(manager.Drop(ctx, "tpch", failures.FailFast), ShouldBeNil)
			So(calls, ShouldResemble, []string{"clean_tidb_data.sh tidb-2", "start_cluster.sh tidb-2"})
		})

		Convey("Every database of the cluster becomes absent", func() {
			manager.SetState("tidb-2", "sysbench", Ready)
			runner.On("Run", ctx, mock.Anything, "tidb-2").Return(nil)

			So(manager.Drop(ctx, "tpch", failures.FailFast), ShouldBeNil)
			So(manager.State("tidb-2", "sysbench"), ShouldEqual, Absent)
		})

		Convey("Failures are swallowed with continue policy and both scripts run", func() {
			runner.On("Run", ctx, CleanDataScript, "tidb-1").Return(scriptFailure).Run(record)
			runner.On("Run", ctx, StartClusterScript, "tidb-1").Return(scriptFailure).Run(record)

			So(manager.Drop(ctx, "tpcc", failures.ContinueOnError), ShouldBeNil)
			So(calls, ShouldHaveLength, 2)
		})

		Convey("Failures stop the drop with fail fast policy", func() {
			runner.On("Run", ctx, CleanDataScript, "tidb-1").Return(scriptFailure).Run(record)

			err := manager.Drop(ctx, "tpcc", failures.FailFast)
			So(failures.IsScriptFailure(err), ShouldBeTrue)
			So(calls, ShouldHaveLength, 1)
		})

		Convey("Cancellation is never swallowed", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			runner.On("Run", cancelled, CleanDataScript, "tidb-1").Return(context.Canceled)

			err := manager.Drop(cancelled, "tpcc", failures.ContinueOnError)
			So(errors.Cause(err), ShouldEqual, context.Canceled)
		})

		Convey("Unknown workload is refused before any script", func() {
			err := manager.Drop(ctx, "tpcx", failures.ContinueOnError)
			So(errors.Cause(err), ShouldEqual, failures.ErrUnsupportedWorkload)
			runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
		})

		Convey("Unknown cluster is refused", func() {
			err := manager.DropCluster(ctx, "tidb-7", failures.ContinueOnError)
			So(errors.Cause(err), ShouldEqual, failures.ErrUnsupportedCluster)
		})
	})
}

func TestRestartAndCleanConfig(t *testing.T) {
	Convey("Restart and clean config run scripts on assigned cluster", t, func() {
		ctx := context.Background()
		manager, runner, _, _ := newTestManager(DefaultConfig())

		runner.On("Run", ctx, ReloadConfigScript, "tidb-3").Return(&failures.ScriptError{ExitCode: 1})
		runner.On("Run", ctx, CleanConfigScript, "tidb-3").Return(nil)

		So(manager.Restart(ctx, "tatp", failures.ContinueOnError), ShouldBeNil)
		So(failures.IsScriptFailure(manager.Restart(ctx, "tatp", failures.FailFast)), ShouldBeTrue)
		So(manager.CleanConfig(ctx, "tatp"), ShouldBeNil)
	})
}

func TestCreate(t *testing.T) {
	Convey("While creating database", t, func() {
		ctx := context.Background()
		manager, _, admin, dialed := newTestManager(DefaultConfig())
		admin.On("Close").Return(nil)

		Convey("Database named after workload is created on assigned coordinator", func() {
			admin.On("CreateDatabase", ctx, "tatp").Return(nil)

			So(manager.Create(ctx, "tatp", ""), ShouldBeNil)
			So(*dialed, ShouldResemble, []string{"tidb-pd-3"})
			So(manager.State("tidb-3", "tatp"), ShouldEqual, Created)
			admin.AssertCalled(t, "Close")
		})

		Convey("Cluster can be overridden", func() {
			admin.On("CreateDatabase", ctx, "sysbench").Return(nil)

			So(manager.Create(ctx, "sysbench", "tidb-1"), ShouldBeNil)
			So(*dialed, ShouldResemble, []string{"tidb-pd-1"})
		})

		Convey("Errors are propagated", func() {
			admin.On("CreateDatabase", ctx, "tatp").Return(errors.New("connection refused"))

			So(manager.Create(ctx, "tatp", ""), ShouldNotBeNil)
			So(manager.State("tidb-3", "tatp"), ShouldEqual, Absent)
		})

		Convey("Unknown cluster override is refused", func() {
			err := manager.Create(ctx, "tatp", "tidb-9")
			So(errors.Cause(err), ShouldEqual, failures.ErrUnsupportedCluster)
			So(*dialed, ShouldBeEmpty)
		})
	})
}

// scriptHost runs commands locally and remembers them.
type scriptHost struct {
	executor.Executor
	commands []string
}

func (h *scriptHost) Execute(command string) (executor.TaskHandle, error) {
	h.commands = append(h.commands, command)
	return h.Executor.Execute(command)
}

func (h *scriptHost) Name() string {
	return "ssh:tidb-ctl"
}

func TestConfigure(t *testing.T) {
	Convey("While configuring cluster", t, func() {
		ctx := context.Background()
		workspace, err := ioutil.TempDir("", "workspace")
		So(err, ShouldBeNil)
		defer os.RemoveAll(workspace)

		config := DefaultConfig()
		config.Workspace = workspace
		manager, runner, _, _ := newTestManager(config)

		configPath := filepath.Join(workspace, "script", "tidb-1", "config.yaml")
		So(os.MkdirAll(filepath.Dir(configPath), 0755), ShouldBeNil)
		So(ioutil.WriteFile(configPath, []byte("tikv:\n  readpool.storage.use-unified-pool: true\n"), 0644), ShouldBeNil)

		Convey("Default config is backed up and applied", func() {
			runner.On("Run", ctx, ChangeConfigScript, "tidb-1", configPath).Return(nil)

			So(manager.Configure(ctx, "tpcc", ""), ShouldBeNil)

			backup, err := ioutil.ReadFile(configPath + ".bak")
			So(err, ShouldBeNil)
			So(string(backup), ShouldContainSubstring, "use-unified-pool")
			runner.AssertExpectations(t)
		})

		Convey("Backup is taken on the host running scripts", func() {
			host := &scriptHost{Executor: executor.NewLocal()}
			reg, err := registry.New(registry.DefaultConfig())
			So(err, ShouldBeNil)
			remote := NewManager(reg, runner, scripts.NewShell(host, "/scripts"), nil, config)
			runner.On("Run", ctx, ChangeConfigScript, "tidb-1", configPath).Return(nil)

			So(remote.Configure(ctx, "tpcc", ""), ShouldBeNil)
			So(host.commands, ShouldHaveLength, 1)
			So(host.commands[0], ShouldContainSubstring, "cp "+configPath+" "+configPath+".bak")
			_, err = os.Stat(configPath + ".bak")
			So(err, ShouldBeNil)
		})

		Convey("Missing config fails before the script", func() {
			err := manager.Configure(ctx, "tpcc", filepath.Join(workspace, "missing.yaml"))
			So(err, ShouldNotBeNil)
			runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	})
}

func TestDump(t *testing.T) {
	Convey("Dump runs dumpling against coordinator", t, func() {
		ctx := context.Background()
		manager, runner, _, _ := newTestManager(DefaultConfig())

		expected := "tiup dumpling -u root --host tidb-pd-2 -P 4000 -F 256MiB -t 16 -o /data1/tpch"
		runner.On("RunCommand", ctx, expected).Return(nil)

		dir, err := manager.Dump(ctx, "tpch", "")
		So(err, ShouldBeNil)
		So(dir, ShouldEqual, "/data1/tpch")
		runner.AssertExpectations(t)
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("Default dumpling settings are valid", t, func() {
		So(DefaultConfig().Validate(), ShouldBeNil)
	})

	Convey("Dump file size takes byte units", t, func() {
		config := DefaultConfig()
		for _, size := range []string{"256MiB", "1G", "64M", "512KB"} {
			config.DumpFileSize = size
			So(config.Validate(), ShouldBeNil)
		}
		for _, size := range []string{"", "many", "0MiB", "-5M"} {
			config.DumpFileSize = size
			So(config.Validate(), ShouldNotBeNil)
		}
	})

	Convey("Dump threads must be positive", t, func() {
		config := DefaultConfig()
		config.DumpThreads = 0
		So(config.Validate(), ShouldNotBeNil)
	})
}
