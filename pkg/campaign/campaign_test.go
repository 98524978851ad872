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
	"context"
	"fmt"
	"time"

	"github.com/YiqinXiong/ottertune-test/pkg/benchmark"
	"github.com/YiqinXiong/ottertune-test/pkg/registry"
	"github.com/YiqinXiong/ottertune-test/pkg/tidb"
	"github.com/YiqinXiong/ottertune-test/pkg/utils/clock"
)

// journal is ordered log of campaign events shared by fakes.
type journal struct {
	events []string
}

func (j *journal) add(format string, args ...interface{}) {
	j.events = append(j.events, fmt.Sprintf(format, args...))
}

func (j *journal) fakeClock() *clock.Fake {
	clk := clock.NewFake(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	clk.OnSleep = func(d time.Duration) {
		j.add("sleep %v", d)
	}
	return clk
}

type fakeTargets struct{}

func (fakeTargets) Target(workload, cluster string) (registry.Assignment, error) {
	if cluster == "" {
		cluster = "tidb-1"
	}
	return registry.Assignment{Workload: workload, Cluster: cluster, Host: "pd-of-" + cluster}, nil
}

type fakeAdmin struct {
	journal *journal
	closed  bool
	err     error
}

func (f *fakeAdmin) CreateDatabase(ctx context.Context, name string) error {
	return nil
}

func (f *fakeAdmin) SetGlobal(ctx context.Context, variable string, value interface{}) error {
	f.journal.add("set %s=%v", variable, value)
	return f.err
}

func (f *fakeAdmin) Close() error {
	f.closed = true
	return nil
}

type fakeBenchmark struct {
	journal  *journal
	requests []benchmark.Request
	// failAt makes n-th run (counted from 1) fail.
	failAt int
	// cancel is called during n-th run when set.
	cancel   context.CancelFunc
	cancelAt int
}

func (f *fakeBenchmark) Run(ctx context.Context, request benchmark.Request) (*benchmark.Run, error) {
	f.requests = append(f.requests, request)
	f.journal.add("run %s %s", request.Workload, request.Cluster)
	if f.cancel != nil && len(f.requests) == f.cancelAt {
		f.cancel()
	}
	if len(f.requests) == f.failAt {
		return nil, fmt.Errorf("run %d failed", f.failAt)
	}
	return &benchmark.Run{Workload: request.Workload, Cluster: request.Cluster, RunType: request.RunType}, nil
}

func dialerOf(admin *fakeAdmin, hosts *[]string) tidb.Dialer {
	return func(host string) (tidb.Admin, error) {
		*hosts = append(*hosts, host)
		return admin, nil
	}
}
