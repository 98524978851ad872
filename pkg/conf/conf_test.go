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

package conf

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
)

const testAppName = "testAppName"

var customFlag = NewStringFlag("custom_arg", "help", "default")

func clearEnv() {
	// Clear all environment variables in context of that test.
	logLevelFlag.clear()
	customFlag.clear()
}

func TestConf(t *testing.T) {
	Convey("While using Conf pkg", t, func() {
		clearEnv()
		defer clearEnv()

		SetAppName(testAppName)
		SetHelp("test help")

		Convey("Name and help should match to specified one", func() {
			So(AppName(), ShouldEqual, testAppName)
			So(app.Help, ShouldEqual, "test help")
		})

		Convey("Log level can be fetched", func() {
			So(ParseEnv(), ShouldBeNil)
			So(LogLevel(), ShouldEqual, logrus.InfoLevel)
		})

		Convey("Log level can be fetched from env", func() {
			os.Setenv(logLevelFlag.envName(), "debug")

			err := ParseEnv()
			So(err, ShouldBeNil)
			So(LogLevel(), ShouldEqual, logrus.DebugLevel)
		})

		Convey("Log level falls back to default when it cannot be parsed", func() {
			os.Setenv(logLevelFlag.envName(), "loud")

			err := ParseEnv()
			So(err, ShouldBeNil)
			So(LogLevel(), ShouldEqual, logrus.InfoLevel)
		})

		Convey("Command line arguments take precedence over environment", func() {
			os.Setenv(customFlag.envName(), "fromEnv")

			_, err := ParseCommand([]string{"--custom_arg=fromArgs"})
			So(err, ShouldBeNil)
			So(customFlag.Value(), ShouldEqual, "fromArgs")
		})

		Convey("Unknown flags are reported", func() {
			_, err := ParseCommand([]string{"--no_such_flag=1"})
			So(err, ShouldNotBeNil)
		})

		Convey("Dumped config exports current values with prefix", func() {
			os.Setenv(customFlag.envName(), "dumped")
			So(ParseEnv(), ShouldBeNil)

			dump := DumpConfig()
			So(dump, ShouldContainSubstring, "BENCH_CUSTOM_ARG=dumped")
			So(dump, ShouldContainSubstring, "BENCH_LOG=info")
			So(GetFlags()["custom_arg"], ShouldEqual, "dumped")

			So(DumpConfigMap(map[string]string{"custom_arg": "override"}), ShouldContainSubstring, "BENCH_CUSTOM_ARG=override")
			So(DumpConfigMap(map[string]string{"custom_arg": "--threads=8 --time=60"}), ShouldContainSubstring, "BENCH_CUSTOM_ARG='--threads=8 --time=60'")
		})
	})
}

func TestShellQuote(t *testing.T) {
	Convey("Plain values are not quoted", t, func() {
		So(shellQuote("sysbench"), ShouldEqual, "sysbench")
		So(shellQuote("a,b,c"), ShouldEqual, "a,b,c")
	})

	Convey("Values with spaces or quotes are single quoted", t, func() {
		So(shellQuote("a b"), ShouldEqual, "'a b'")
		So(shellQuote("it's"), ShouldEqual, `'it'\''s'`)
	})
}
