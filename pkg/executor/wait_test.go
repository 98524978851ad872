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

package executor_test

import (
	"context"
	"testing"

	"github.com/YiqinXiong/ottertune-test/pkg/executor"
	"github.com/YiqinXiong/ottertune-test/pkg/executor/mocks"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"
)

func TestWaitContext(t *testing.T) {
	Convey("While waiting for task with context", t, func() {
		handle := &mocks.TaskHandle{}
		handle.On("Address").Return("127.0.0.1").Maybe()

		Convey("Terminated task ends the wait", func() {
			handle.On("Wait", mock.Anything).Return(true).Once()

			So(executor.WaitContext(context.Background(), handle), ShouldBeNil)
			handle.AssertExpectations(t)
		})

		Convey("Running task is polled until it terminates", func() {
			handle.On("Wait", mock.Anything).Return(false).Twice()
			handle.On("Wait", mock.Anything).Return(true).Once()

			So(executor.WaitContext(context.Background(), handle), ShouldBeNil)
			handle.AssertNumberOfCalls(t, "Wait", 3)
		})

		Convey("Cancelled context stops the task", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			handle.On("Stop").Return(nil).Once()

			err := executor.WaitContext(ctx, handle)
			So(err, ShouldEqual, context.Canceled)
			handle.AssertCalled(t, "Stop")
			handle.AssertNotCalled(t, "Wait", mock.Anything)
		})

		Convey("Failed stop is reported", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			handle.On("Stop").Return(errors.New("cannot kill")).Once()

			So(executor.WaitContext(ctx, handle), ShouldNotBeNil)
		})
	})
}

func TestExecuteAndWait(t *testing.T) {
	Convey("While executing command synchronously", t, func() {
		exec := &mocks.Executor{}
		handle := &mocks.TaskHandle{}
		exec.On("Name").Return("mock")
		handle.On("Address").Return("127.0.0.1")
		handle.On("Clean").Return(nil)
		handle.On("StdoutFile").Return(nil, errors.New("no file"))
		handle.On("StderrFile").Return(nil, errors.New("no file"))
		handle.On("Wait", mock.Anything).Return(true)

		Convey("Exit code of finished task is returned", func() {
			exec.On("Execute", "echo 1").Return(handle, nil)
			handle.On("ExitCode").Return(2, nil)

			returned, exitCode, err := executor.ExecuteAndWait(context.Background(), exec, "echo 1")
			So(err, ShouldBeNil)
			So(exitCode, ShouldEqual, 2)
			So(returned, ShouldEqual, handle)
			handle.AssertCalled(t, "Clean")
		})

		Convey("Failed launch is returned as error", func() {
			exec.On("Execute", "echo 1").Return(nil, errors.New("cannot start"))

			_, _, err := executor.ExecuteAndWait(context.Background(), exec, "echo 1")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestExecuteAndWaitLocally(t *testing.T) {
	Convey("Local command exit code is propagated", t, func() {
		_, exitCode, err := executor.ExecuteAndWait(context.Background(), executor.NewLocal(), "exit 5")
		So(err, ShouldBeNil)
		So(exitCode, ShouldEqual, 5)
	})
}
