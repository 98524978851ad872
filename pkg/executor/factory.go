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

package executor

import (
	"net"
	"os/user"

	"github.com/pkg/errors"
)

// CreateExecutor returns Local executor for local addresses and Remote (ssh) executor otherwise.
// Empty host means local execution.
func CreateExecutor(host, sshKeyPath, outputDir string) (Executor, error) {
	// NOTE: We don't want to ssh on localhost if not needed.
	if isLocal(host) {
		return NewLocalWithOutputDir(outputDir), nil
	}

	user, err := user.Current()
	if err != nil {
		return nil, errors.Wrap(err, "cannot get current user")
	}

	sshConfig, err := NewSSHConfig(host, DefaultSSHPort, user, sshKeyPath)
	if err != nil {
		return nil, err
	}

	return NewRemoteWithOutputDir(sshConfig, outputDir), nil
}

func isLocal(host string) bool {
	if host == "" || host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
