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

package scripts

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/YiqinXiong/ottertune-test/pkg/executor"
	"github.com/YiqinXiong/ottertune-test/pkg/failures"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestShell(t *testing.T) {
	Convey("With script directory", t, func() {
		scriptDir, err := ioutil.TempDir("", "scripts")
		So(err, ShouldBeNil)
		defer os.RemoveAll(scriptDir)

		marker := filepath.Join(scriptDir, "marker")
		So(ioutil.WriteFile(filepath.Join(scriptDir, "ok.sh"), []byte("echo \"$@\" > "+marker+"\n"), 0644), ShouldBeNil)
		So(ioutil.WriteFile(filepath.Join(scriptDir, "fail.sh"), []byte("exit 4\n"), 0644), ShouldBeNil)

		shell := NewShell(executor.NewLocal(), scriptDir)

		Convey("Command line uses setsid and sh", func() {
			So(shell.ScriptCommand("start_cluster.sh", "tidb-1"), ShouldEqual,
				"setsid -w sh "+filepath.Join(scriptDir, "start_cluster.sh")+" tidb-1")
		})

		Convey("Successful script gets its arguments", func() {
			So(shell.Run(context.Background(), "ok.sh", "tidb-2", "with space"), ShouldBeNil)

			content, err := ioutil.ReadFile(marker)
			So(err, ShouldBeNil)
			So(string(content), ShouldEqual, "tidb-2 with space\n")
		})

		Convey("Failing script returns script error", func() {
			err := shell.Run(context.Background(), "fail.sh", "tidb-3")
			So(failures.IsScriptFailure(err), ShouldBeTrue)

			scriptErr := errors.Cause(err).(*failures.ScriptError)
			So(scriptErr.ExitCode, ShouldEqual, 4)
			So(scriptErr.Script, ShouldEqual, "fail.sh")
			So(scriptErr.Args, ShouldResemble, []string{"tidb-3"})
		})

		Convey("Arbitrary commands report exit code too", func() {
			So(shell.RunCommand(context.Background(), "true"), ShouldBeNil)
			So(failures.IsScriptFailure(shell.RunCommand(context.Background(), "false")), ShouldBeTrue)
		})

		Convey("Launched command can be awaited", func() {
			handle, err := shell.Launch("sleep 0.1")
			So(err, ShouldBeNil)
			defer handle.Clean()
			So(handle.Wait(5*time.Second), ShouldBeTrue)
		})

		Convey("Cancelled context stops the script", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			err := shell.RunCommand(ctx, "sleep 30")
			So(errors.Cause(err), ShouldEqual, context.DeadlineExceeded)
		})
	})
}

func TestQuote(t *testing.T) {
	Convey("Arguments are quoted only when needed", t, func() {
		So(Quote("/data1/tpcc"), ShouldEqual, "/data1/tpcc")
		So(Quote("--time=540"), ShouldEqual, "--time=540")
		So(Quote(""), ShouldEqual, "''")
		So(Quote("a b"), ShouldEqual, "'a b'")
		So(Quote("it's"), ShouldEqual, `'it'"'"'s'`)
		So(Join("cp", "a b", "c"), ShouldEqual, "cp 'a b' c")
	})
}
