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

package experiment

import (
	"fmt"
	"os"

	"github.com/YiqinXiong/ottertune-test/pkg/conf"
	"github.com/sirupsen/logrus"
)

// DumpConfigFlag name includes dash to exclude it from dumping.
var dumpConfigFlag = conf.NewBoolFlag("config-dump", "Dump configuration as environment script.", false)

// Configure parses command line and environment, sets log level and returns selected command.
// Note: exits if flags are invalid or configuration dump was requested.
func Configure(args []string) string {
	command, err := conf.ParseCommand(args)
	if err != nil {
		logrus.Errorf("Cannot parse flags: %q", err.Error())
		os.Exit(ExUsage)
	}
	logrus.SetLevel(conf.LogLevel())

	if dumpConfigFlag.Value() {
		fmt.Println(conf.DumpConfig())
		os.Exit(0)
	}
	return command
}
