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
	"sort"

	"github.com/YiqinXiong/ottertune-test/pkg/failures"
)

// Tool is a benchmark driver family.
type Tool string

const (
	// BenchBase is the Java driver configured by XML files. Its runs are detached.
	BenchBase Tool = "benchbase"
	// Sysbench is the lightweight driver. Its runs are synchronous and archived.
	Sysbench Tool = "sysbench"
)

// ParseTool validates tool name.
func ParseTool(name string) (Tool, error) {
	switch Tool(name) {
	case BenchBase, Sysbench:
		return Tool(name), nil
	}
	return "", failures.UnsupportedTool(name)
}

// sysbenchTests maps run types to sysbench test names.
var sysbenchTests = map[string]string{
	"point-select": "oltp_point_select",
	"update-index": "oltp_update_index",
	"read-only":    "oltp_read_only",
	"read-write":   "oltp_read_write",
	"write-only":   "oltp_write_only",
	"range-scan":   "select_random_ranges",
	"bulk-insert":  "bulk_insert",
	"insert":       "oltp_insert",
}

// SysbenchTest returns sysbench test of run type.
func SysbenchTest(runType string) (string, error) {
	test, ok := sysbenchTests[runType]
	if !ok {
		return "", failures.UnsupportedRunType(runType)
	}
	return test, nil
}

// RunTypes returns supported run types sorted by name.
func RunTypes() []string {
	runTypes := make([]string, 0, len(sysbenchTests))
	for runType := range sysbenchTests {
		runTypes = append(runTypes, runType)
	}
	sort.Strings(runTypes)
	return runTypes
}
