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
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

func getBinaryNameFromCommand(command string) (string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", errors.Errorf("failed to extract command name from %q", command)
	}
	// Skip wrappers so output directories are named after actual binary.
	for _, field := range fields {
		if field == "setsid" || field == "sh" || field == "cd" || strings.HasPrefix(field, "-") {
			continue
		}
		_, name := path.Split(field)
		if name != "" {
			return name, nil
		}
	}
	_, name := path.Split(fields[0])
	return name, nil
}

func createExecutorOutputFiles(command, prefix, outputDir string) (stdout, stderr *os.File, err error) {
	if len(command) == 0 {
		return nil, nil, errors.New("empty command string")
	}

	commandName, err := getBinaryNameFromCommand(command)
	if err != nil {
		return nil, nil, err
	}

	if outputDir == "" {
		outputDir = os.TempDir()
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, nil, errors.Wrapf(err, "failed to create %q", outputDir)
	}

	taskDir, err := ioutil.TempDir(outputDir, sanitize(prefix)+"_"+sanitize(commandName)+"_")
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to create output directory for %s", commandName)
	}
	if err := os.Chmod(taskDir, 0755); err != nil {
		return nil, nil, errors.Wrapf(err, "failed to set mode of %q", taskDir)
	}

	stdoutFileName := path.Join(taskDir, "stdout")
	stdout, err = os.Create(stdoutFileName)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to create %q", stdoutFileName)
	}

	stderrFileName := path.Join(taskDir, "stderr")
	stderr, err = os.Create(stderrFileName)
	if err != nil {
		stdout.Close()
		os.Remove(stdoutFileName)
		return nil, nil, errors.Wrapf(err, "failed to create %q", stderrFileName)
	}

	return stdout, stderr, nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '(' || r == ')' || r == ' ' || r == ':' {
			return '_'
		}
		return r
	}, name)
}

func dirOf(file string) string {
	return filepath.Dir(file)
}
