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

package executor

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLocal(t *testing.T) {
	Convey("Using Local Shell", t, func() {
		outputDir, err := ioutil.TempDir("", "local_executor")
		So(err, ShouldBeNil)
		defer os.RemoveAll(outputDir)

		l := NewLocalWithOutputDir(outputDir)
		So(l.Name(), ShouldEqual, "local")

		Convey("When blocking infinitively sleep command is executed", func() {
			taskHandle, err := l.Execute("sleep inf")
			So(err, ShouldBeNil)
			defer taskHandle.Clean()

			Convey("Task should be still running and exit code should not be available", func() {
				So(taskHandle.Status(), ShouldEqual, RUNNING)
				_, err := taskHandle.ExitCode()
				So(err, ShouldNotBeNil)

				So(taskHandle.Stop(), ShouldBeNil)
			})

			Convey("When we wait for task termination with the 1ms timeout", func() {
				isTaskTerminated := taskHandle.Wait(1 * time.Millisecond)

				Convey("The timeout should exceed and the task not terminated ", func() {
					So(isTaskTerminated, ShouldBeFalse)
					So(taskHandle.Status(), ShouldEqual, RUNNING)
				})

				So(taskHandle.Stop(), ShouldBeNil)
			})

			Convey("When we stop the task", func() {
				err := taskHandle.Stop()

				Convey("There should be no error and the task should be terminated by SIGKILL", func() {
					So(err, ShouldBeNil)
					So(taskHandle.Status(), ShouldEqual, TERMINATED)

					exitCode, err := taskHandle.ExitCode()
					So(err, ShouldBeNil)
					So(exitCode, ShouldEqual, 137)
				})

				Convey("Stopping again is no-op", func() {
					So(taskHandle.Stop(), ShouldBeNil)
				})
			})
		})

		Convey("When command `echo output` is executed", func() {
			taskHandle, err := l.Execute("echo output")
			So(err, ShouldBeNil)
			defer taskHandle.Clean()

			Convey("When we wait for the task to terminate", func() {
				So(taskHandle.Wait(0), ShouldBeTrue)

				Convey("The task should be terminated with exit code 0 and output", func() {
					So(taskHandle.Status(), ShouldEqual, TERMINATED)

					exitCode, err := taskHandle.ExitCode()
					So(err, ShouldBeNil)
					So(exitCode, ShouldEqual, 0)

					stdout, err := taskHandle.StdoutFile()
					So(err, ShouldBeNil)
					defer stdout.Close()
					data, err := ioutil.ReadAll(stdout)
					So(err, ShouldBeNil)
					So(string(data), ShouldEqual, "output\n")
				})

				Convey("Address should point to local host", func() {
					So(taskHandle.Address(), ShouldEqual, "127.0.0.1")
				})

				Convey("Output can be erased", func() {
					stdout, err := taskHandle.StdoutFile()
					So(err, ShouldBeNil)
					stdout.Close()

					So(taskHandle.EraseOutput(), ShouldBeNil)
					_, err = os.Stat(stdout.Name())
					So(os.IsNotExist(err), ShouldBeTrue)
				})
			})
		})

		Convey("When command writes to stderr and exits with error", func() {
			taskHandle, err := l.Execute("echo problem >&2; exit 3")
			So(err, ShouldBeNil)
			defer taskHandle.Clean()

			So(taskHandle.Wait(0), ShouldBeTrue)

			Convey("Exit code and stderr should be available", func() {
				exitCode, err := taskHandle.ExitCode()
				So(err, ShouldBeNil)
				So(exitCode, ShouldEqual, 3)

				stderr, err := taskHandle.StderrFile()
				So(err, ShouldBeNil)
				defer stderr.Close()
				data, err := ioutil.ReadAll(stderr)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "problem\n")
			})
		})

		Convey("When command which does not exists is executed", func() {
			taskHandle, err := l.Execute("commandThatDoesNotExists")
			So(err, ShouldBeNil)
			defer taskHandle.Clean()

			Convey("Shell reports command not found", func() {
				So(taskHandle.Wait(0), ShouldBeTrue)
				exitCode, err := taskHandle.ExitCode()
				So(err, ShouldBeNil)
				So(exitCode, ShouldEqual, 127)
			})
		})

		Convey("When empty command is executed there should be an error", func() {
			_, err := l.Execute("")
			So(err, ShouldNotBeNil)
		})
	})
}
