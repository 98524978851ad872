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

package campaign

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/YiqinXiong/ottertune-test/pkg/benchmark"
	"github.com/olekukonko/tablewriter"
)

func summaryColumns(summary *benchmark.Summary) []string {
	if summary == nil {
		return []string{"-", "-", "-"}
	}
	return []string{
		fmt.Sprintf("%.2f", summary.TPSMean),
		fmt.Sprintf("%.2f", summary.TPSStdDev),
		fmt.Sprintf("%.2f", summary.LatencyP95),
	}
}

func archivedLog(run *benchmark.Run) string {
	if run == nil {
		return "-"
	}
	if run.ArchivedLog != "" {
		return filepath.Base(run.ArchivedLog)
	}
	return run.LogPath
}

// RenderSweep draws table with one row per sweep step.
func RenderSweep(w io.Writer, result SweepResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{result.Variable, "TPS", "TPS stddev", "p95 latency [ms]", "Log"})
	for _, step := range result.Steps {
		var summary *benchmark.Summary
		if step.Run != nil {
			summary = step.Run.Summary
		}
		row := append([]string{strconv.Itoa(step.Value)}, summaryColumns(summary)...)
		table.Append(append(row, archivedLog(step.Run)))
	}
	table.Render()
}

// RenderPatchCycle draws table with one row per benchmark run of patch cycle.
func RenderPatchCycle(w io.Writer, result PatchResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Iteration", "Patch", "Status", "Log"})
	for _, run := range result.Runs {
		status := "ok"
		if run.Err != nil {
			status = run.Err.Error()
		}
		table.Append([]string{strconv.Itoa(run.Iteration), filepath.Base(run.Patch), status, archivedLog(run.Run)})
	}
	table.Render()
}
