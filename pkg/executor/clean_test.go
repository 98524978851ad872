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
	"syscall"
	"testing"
	"time"

	"github.com/YiqinXiong/ottertune-test/pkg/executor"
	"github.com/YiqinXiong/ottertune-test/pkg/executor/mocks"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"
)

func TestInterruptContext(t *testing.T) {
	Convey("Registered tasks are stopped in reverse order", t, func() {
		var order []string
		first := &mocks.TaskHandle{}
		first.On("Address").Return("first")
		first.On("Stop").Return(nil).Run(func(_ mock.Arguments) { order = append(order, "first") })
		second := &mocks.TaskHandle{}
		second.On("Address").Return("second")
		second.On("Stop").Return(nil).Run(func(_ mock.Arguments) { order = append(order, "second") })

		executor.Register(first)
		executor.Register(second)
		executor.StopAllTaskHandles()

		So(order, ShouldResemble, []string{"second", "first"})

		Convey("And are forgotten afterwards", func() {
			executor.StopAllTaskHandles()
			So(order, ShouldHaveLength, 2)
		})
	})

	Convey("Signal cancels the context", t, func() {
		ctx, release := executor.InterruptContext(context.Background())
		defer release()

		So(syscall.Kill(syscall.Getpid(), syscall.SIGTERM), ShouldBeNil)

		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
		}
		So(ctx.Err(), ShouldEqual, context.Canceled)
	})

	Convey("Release cancels the context", t, func() {
		ctx, release := executor.InterruptContext(context.Background())
		release()
		So(ctx.Err(), ShouldEqual, context.Canceled)
	})
}
