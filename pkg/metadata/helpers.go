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
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/YiqinXiong/ottertune-test/pkg/conf"
	"github.com/pkg/errors"
)

// RecordRuntimeEnv stores parsed flags, BENCH_ variables and the host the campaign was started on.
func RecordRuntimeEnv(metadata Metadata, campaignStart time.Time) error {
	if err := metadata.RecordMap(conf.GetFlags(), TypeFlags); err != nil {
		return errors.Wrap(err, "cannot record flags")
	}

	if err := metadata.RecordMap(EnvWithPrefix(os.Environ(), conf.EnvironmentPrefix), TypeEnviron); err != nil {
		return errors.Wrap(err, "cannot record environment")
	}

	hostname, err := os.Hostname()
	if err != nil {
		return errors.Wrap(err, "cannot retrieve hostname")
	}
	return metadata.RecordMap(hostInfo(hostname, campaignStart), TypeEmpty)
}

// EnvWithPrefix picks variables starting with prefix out of KEY=VALUE pairs.
// Entries without '=' are skipped.
func EnvWithPrefix(environ []string, prefix string) map[string]string {
	picked := map[string]string{}
	for _, entry := range environ {
		if !strings.HasPrefix(entry, prefix) {
			continue
		}
		key, value, found := strings.Cut(entry, "=")
		if !found {
			continue
		}
		picked[key] = value
	}
	return picked
}

func hostInfo(hostname string, campaignStart time.Time) map[string]string {
	return map[string]string{
		"host":      hostname,
		"time":      campaignStart.Format(time.RFC822Z),
		"goversion": runtime.Version(),
	}
}
