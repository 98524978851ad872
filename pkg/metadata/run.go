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

package metadata

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/YiqinXiong/ottertune-test/pkg/benchmark"
	"github.com/YiqinXiong/ottertune-test/pkg/lightning"
	"github.com/pkg/errors"
)

// RunMap flattens benchmark run into metadata map.
func RunMap(run *benchmark.Run) map[string]string {
	metadata := map[string]string{
		"id":        run.ID,
		"phase":     string(run.Phase),
		"tool":      string(run.Tool),
		"workload":  run.Workload,
		"cluster":   run.Cluster,
		"host":      run.Host,
		"run_type":  run.RunType,
		"params":    strings.Join(run.Params, " "),
		"command":   run.Command,
		"config":    run.ConfigPath,
		"log":       run.LogPath,
		"detached":  strconv.FormatBool(run.Detached),
		"timestamp": run.Timestamp.Format(time.RFC3339),
	}
	if run.ArchivedConfig != "" {
		metadata["archived_config"] = run.ArchivedConfig
	}
	if run.ArchivedLog != "" {
		metadata["archived_log"] = run.ArchivedLog
	}
	if summary := run.Summary; summary != nil {
		metadata["intervals"] = strconv.Itoa(summary.Intervals)
		metadata["tps_mean"] = formatFloat(summary.TPSMean)
		metadata["tps_stddev"] = formatFloat(summary.TPSStdDev)
		metadata["tps_median"] = formatFloat(summary.TPSMedian)
		metadata["tps_min"] = formatFloat(summary.TPSMin)
		metadata["qps_mean"] = formatFloat(summary.QPSMean)
		metadata["latency_p95_ms"] = formatFloat(summary.LatencyP95)
		metadata["errors_per_sec"] = formatFloat(summary.ErrorsPerSec)
	}
	return metadata
}

// RestoreMap flattens result of restore into metadata map.
func RestoreMap(result lightning.Result) map[string]string {
	metadata := map[string]string{
		"workload": result.Workload,
		"cluster":  result.Cluster,
		"dump":     result.DumpDir,
		"status":   result.Status.String(),
		"attempts": strconv.Itoa(result.Attempts),
	}
	if result.LastErr != nil {
		metadata["last_error"] = result.LastErr.Error()
	}
	return metadata
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

// Recorder writes benchmark runs into Metadata.
type Recorder struct {
	Metadata Metadata
}

// Record implements benchmark.Recorder.
func (r Recorder) Record(ctx context.Context, run *benchmark.Run) error {
	if err := r.Metadata.RecordMap(RunMap(run), TypeRun); err != nil {
		return errors.Wrapf(err, "cannot record run %s", run.ID)
	}
	return nil
}

// RecordRestore writes result of restore into Metadata.
func (r Recorder) RecordRestore(result lightning.Result) error {
	return r.Metadata.RecordMap(RestoreMap(result), TypeRestore)
}
