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
import mock "github.com/stretchr/testify/mock"
import tidb "github.com/YiqinXiong/ottertune-test/pkg/tidb"

// Admin is an autogenerated mock type for the Admin type
type Admin struct {
	mock.Mock
}

// Close provides a mock function with given fields:
func (_m *Admin) Close() error {
	ret := _m.Called()

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// CreateDatabase provides a mock function with given fields: ctx, name
func (_m *Admin) CreateDatabase(ctx context.Context, name string) error {
	ret := _m.Called(ctx, name)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		r0 = rf(ctx, name)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// SetGlobal provides a mock function with given fields: ctx, variable, value
func (_m *Admin) SetGlobal(ctx context.Context, variable string, value interface{}) error {
	ret := _m.Called(ctx, variable, value)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, interface{}) error); ok {
		r0 = rf(ctx, variable, value)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

var _ tidb.Admin = (*Admin)(nil)
