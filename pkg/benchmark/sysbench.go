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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/YiqinXiong/ottertune-test/pkg/scripts"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// SysbenchOptions are written into generated sysbench configuration files.
type SysbenchOptions struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	Threads        int
	Time           int
	ReportInterval int
}

// SysbenchConfig renders sysbench --config-file content.
func SysbenchConfig(options SysbenchOptions) []byte {
	buffer := &bytes.Buffer{}
	fmt.Fprintf(buffer, "db-driver=mysql\n")
	fmt.Fprintf(buffer, "mysql-host=%s\n", options.Host)
	fmt.Fprintf(buffer, "mysql-port=%d\n", options.Port)
	fmt.Fprintf(buffer, "mysql-user=%s\n", options.User)
	if options.Password != "" {
		fmt.Fprintf(buffer, "mysql-password=%s\n", options.Password)
	}
	fmt.Fprintf(buffer, "mysql-db=%s\n", options.Database)
	if options.Threads > 0 {
		fmt.Fprintf(buffer, "threads=%d\n", options.Threads)
	}
	if options.Time > 0 {
		fmt.Fprintf(buffer, "time=%d\n", options.Time)
	}
	if options.ReportInterval > 0 {
		fmt.Fprintf(buffer, "report-interval=%d\n", options.ReportInterval)
	}
	return buffer.Bytes()
}

// SysbenchCommand builds sysbench invocation. Output of sysbench goes to logPath.
func SysbenchCommand(configPath, test string, tables, tableSize int, params []string, action, logPath string) string {
	args := []string{
		"sysbench",
		"--config-file=" + configPath,
		test,
		fmt.Sprintf("--tables=%d", tables),
		fmt.Sprintf("--table-size=%d", tableSize),
	}
	args = append(args, params...)
	args = append(args, action)
	return fmt.Sprintf("%s > %s 2>&1", scripts.Join(args...), scripts.Quote(logPath))
}

// Summary of sysbench run computed from interval reports.
type Summary struct {
	Intervals    int
	TPSMean      float64
	TPSStdDev    float64
	TPSMedian    float64
	TPSMin       float64
	QPSMean      float64
	LatencyP95   float64
	ErrorsPerSec float64
}

// `[ 10s ] thds: 16 tps: 1034.19 qps: 20698.71 (r/w/o: 14490.52/4137.49/2070.69) lat (ms,95%): 21.50 err/s: 0.00 reconn/s: 0.00`
var intervalReport = regexp.MustCompile(
	`^\[\s*\d+s\s*\]\s+thds:\s*\d+\s+tps:\s*([0-9.]+)\s+qps:\s*([0-9.]+).*?lat \(ms,95%\):\s*([0-9.]+)(?:\s+err/s:\s*([0-9.]+))?`)

// ParseSysbenchLog computes Summary from interval reports of sysbench output.
func ParseSysbenchLog(r io.Reader) (*Summary, error) {
	var tps, qps, latency, errs []float64

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		match := intervalReport.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if match == nil {
			continue
		}
		values := make([]float64, 4)
		for i := range values {
			if match[i+1] == "" {
				continue
			}
			value, err := strconv.ParseFloat(match[i+1], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "cannot parse %q", scanner.Text())
			}
			values[i] = value
		}
		tps = append(tps, values[0])
		qps = append(qps, values[1])
		latency = append(latency, values[2])
		errs = append(errs, values[3])
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "cannot read sysbench log")
	}
	if len(tps) == 0 {
		return nil, errors.New("sysbench log has no interval reports")
	}

	summary := &Summary{Intervals: len(tps)}
	var err error
	if summary.TPSMean, err = stats.Mean(tps); err != nil {
		return nil, errors.Wrap(err, "mean computation failed")
	}
	if summary.TPSStdDev, err = stats.StandardDeviation(tps); err != nil {
		return nil, errors.Wrap(err, "standard deviation computation failed")
	}
	if summary.TPSMedian, err = stats.Median(tps); err != nil {
		return nil, errors.Wrap(err, "median computation failed")
	}
	if summary.TPSMin, err = stats.Min(tps); err != nil {
		return nil, errors.Wrap(err, "min computation failed")
	}
	if summary.QPSMean, err = stats.Mean(qps); err != nil {
		return nil, errors.Wrap(err, "mean computation failed")
	}
	if summary.LatencyP95, err = stats.Mean(latency); err != nil {
		return nil, errors.Wrap(err, "mean computation failed")
	}
	if summary.ErrorsPerSec, err = stats.Mean(errs); err != nil {
		return nil, errors.Wrap(err, "mean computation failed")
	}
	return summary, nil
}
