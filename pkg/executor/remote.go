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
	"fmt"

	"github.com/YiqinXiong/ottertune-test/pkg/executor/command"
)

// Remote provisioning is responsible for providing the execution environment
// on remote machine via ssh.
type Remote struct {
	Async
}

// NewRemote returns a Remote instance.
func NewRemote(sshConfig *SSHConfig) Remote {
	return NewRemoteWithOutputDir(sshConfig, "")
}

// NewRemoteWithOutputDir returns a Remote instance keeping outputs in given local directory.
func NewRemoteWithOutputDir(sshConfig *SSHConfig, outputDir string) Remote {
	config := command.SSHConfig(*sshConfig)
	return Remote{
		NewAsync(fmt.Sprintf("remote(%s)", sshConfig.Host), sshConfig.Host, outputDir, func() command.Command {
			return command.NewRemote(config)
		}),
	}
}
