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

package mocks

import context "context"
import executor "github.com/YiqinXiong/ottertune-test/pkg/executor"
import mock "github.com/stretchr/testify/mock"
import scripts "github.com/YiqinXiong/ottertune-test/pkg/scripts"

// Runner is an autogenerated mock type for the Runner type
type Runner struct {
	mock.Mock
}

// Launch provides a mock function with given fields: command
func (_m *Runner) Launch(command string) (executor.TaskHandle, error) {
	ret := _m.Called(command)

	var r0 executor.TaskHandle
	if rf, ok := ret.Get(0).(func(string) executor.TaskHandle); ok {
		r0 = rf(command)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(executor.TaskHandle)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(string) error); ok {
		r1 = rf(command)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Run provides a mock function with given fields: ctx, script, args
func (_m *Runner) Run(ctx context.Context, script string, args ...string) error {
	_va := make([]interface{}, len(args))
	for _i := range args {
		_va[_i] = args[_i]
	}
	var _ca []interface{}
	_ca = append(_ca, ctx, script)
	_ca = append(_ca, _va...)
	ret := _m.Called(_ca...)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, ...string) error); ok {
		r0 = rf(ctx, script, args...)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// RunCommand provides a mock function with given fields: ctx, command
func (_m *Runner) RunCommand(ctx context.Context, command string) error {
	ret := _m.Called(ctx, command)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		r0 = rf(ctx, command)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

var _ scripts.Runner = (*Runner)(nil)
