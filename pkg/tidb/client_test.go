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

package tidb

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStatements(t *testing.T) {
	Convey("Create database statement is idempotent and quoted", t, func() {
		statement, err := CreateDatabaseStatement("tpcc")
		So(err, ShouldBeNil)
		So(statement, ShouldEqual, "CREATE DATABASE IF NOT EXISTS `tpcc`")

		_, err = CreateDatabaseStatement("tpcc; drop database mysql")
		So(err, ShouldNotBeNil)
	})

	Convey("Global variables are validated", t, func() {
		statement, err := SetGlobalStatement("tidb_distsql_scan_concurrency", 15)
		So(err, ShouldBeNil)
		So(statement, ShouldEqual, "SET @@GLOBAL.tidb_distsql_scan_concurrency = 15")

		statement, err = SetGlobalStatement("tidb_enable_async_commit", true)
		So(err, ShouldBeNil)
		So(statement, ShouldEqual, "SET @@GLOBAL.tidb_enable_async_commit = ON")

		statement, err = SetGlobalStatement("tidb_isolation_read_engines", "tikv")
		So(err, ShouldBeNil)
		So(statement, ShouldEqual, "SET @@GLOBAL.tidb_isolation_read_engines = 'tikv'")

		_, err = SetGlobalStatement("a-b", 1)
		So(err, ShouldNotBeNil)
		_, err = SetGlobalStatement("tidb_x", "1' or '1")
		So(err, ShouldNotBeNil)
		_, err = SetGlobalStatement("tidb_x", []int{1})
		So(err, ShouldNotBeNil)
	})
}

func TestDSN(t *testing.T) {
	Convey("Default options connect as root to port 4000", t, func() {
		dsn := DefaultOptions().DSN("tidb-pd-1")
		So(dsn, ShouldStartWith, "root@tcp(tidb-pd-1:4000)/")
		So(dsn, ShouldContainSubstring, "timeout=10s")
	})

	Convey("Client can be opened lazily", t, func() {
		client, err := Open("tidb-pd-1", DefaultOptions())
		So(err, ShouldBeNil)
		So(client.Close(), ShouldBeNil)
	})
}
