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

// benchctl orchestrates benchmark campaigns against TiDB clusters: database lifecycle,
// bulk loads with retries, benchmark runs and parameter sweeps.
package main

import (
	"context"
	"os"

	"github.com/YiqinXiong/ottertune-test/pkg/conf"
	"github.com/YiqinXiong/ottertune-test/pkg/executor"
	"github.com/YiqinXiong/ottertune-test/pkg/experiment"
	"github.com/YiqinXiong/ottertune-test/pkg/failures"
	"github.com/YiqinXiong/ottertune-test/pkg/utils/errutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(benchctl())
}

func exitCode(err error) int {
	switch errors.Cause(err) {
	case nil:
		return 0
	case failures.ErrUnsupportedWorkload, failures.ErrUnsupportedCluster, failures.ErrUnsupportedTool, failures.ErrUnsupportedRunType:
		return experiment.ExUsage
	}
	return experiment.ExFailure
}

func benchctl() int {
	conf.SetAppName("benchctl")
	conf.SetHelp(`benchctl runs benchmark campaigns against TiDB clusters.
Each command performs one operation; every flag can also be set with BENCH_<FLAG_NAME> environment variable.`)
	operations := registerCommands()

	command := experiment.Configure(os.Args[1:])
	operation, ok := operations[command]
	if !ok {
		logrus.Errorf("unknown command %q", command)
		return experiment.ExUsage
	}

	campaign, err := experiment.Initialize(conf.AppName())
	errutil.CheckWithContext(err, "Cannot create campaign logs directory")
	defer campaign.Close()

	ctx, release := executor.InterruptContext(context.Background())
	defer release()

	env, err := newEnvironment(ctx, campaign.ID)
	if err != nil {
		logrus.Errorf("cannot initialize %s: %v", command, err)
		return experiment.ExSoftware
	}
	defer func() {
		errutil.LogIfErr(env.close(), "cannot close metadata")
	}()

	logrus.Debugf("running %s with configuration:\n%s", command, conf.DumpConfig())
	if err := operation(ctx, env); err != nil {
		logrus.Errorf("%s failed: %v", command, err)
		logrus.Debugf("%+v", err)
		return exitCode(err)
	}
	logrus.Infof("%s finished", command)
	return 0
}
