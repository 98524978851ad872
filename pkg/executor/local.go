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
	"github.com/YiqinXiong/ottertune-test/pkg/executor/command"
)

const localName = "local"

// Local provisioning is responsible for providing the execution environment
// on local machine via exec.Command.
// It runs command as current user.
type Local struct {
	Async
}

// NewLocal returns a Local instance keeping outputs in temporary directory.
func NewLocal() Local {
	return NewLocalWithOutputDir("")
}

// NewLocalWithOutputDir returns a Local instance keeping outputs in given directory.
func NewLocalWithOutputDir(outputDir string) Local {
	return Local{
		NewAsync(localName, "127.0.0.1", outputDir, func() command.Command {
			return command.NewLocal()
		}),
	}
}
