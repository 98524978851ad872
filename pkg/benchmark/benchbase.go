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

package benchmark

import (
	"fmt"

	"github.com/YiqinXiong/ottertune-test/pkg/scripts"
)

const benchBaseJar = "benchbase.jar"

// BenchBaseLoadCommand builds command creating schema and loading data of workload.
func BenchBaseLoadCommand(home, workload, configPath, logPath string) string {
	return benchBaseCommand(home, workload, configPath, logPath, "--create=true", "--load=true")
}

// BenchBaseRunCommand builds command executing workload with given sampling window in seconds.
func BenchBaseRunCommand(home, workload, configPath, logPath string, sampleWindow int) string {
	return benchBaseCommand(home, workload, configPath, logPath, "--execute=true", "-s", fmt.Sprintf("%d", sampleWindow))
}

func benchBaseCommand(home, workload, configPath, logPath string, args ...string) string {
	command := append([]string{"java", "-jar", benchBaseJar, "-b", workload, "-c", configPath}, args...)
	return fmt.Sprintf("cd %s && %s > %s 2>&1", scripts.Quote(home), scripts.Join(command...), scripts.Quote(logPath))
}
