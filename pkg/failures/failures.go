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

// Package failures defines errors returned by orchestration steps and
// the policy deciding whether a failed external command stops the caller.
package failures

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Precondition violations. They are returned before any side effect took place.
var (
	ErrUnsupportedWorkload = errors.New("unsupported workload")
	ErrUnsupportedCluster  = errors.New("unsupported cluster")
	ErrUnsupportedTool     = errors.New("unsupported tool")
	ErrUnsupportedRunType  = errors.New("unsupported run type")
	// ErrDumpNotFound is returned when schema artifact of dump is missing. Database is not touched.
	ErrDumpNotFound = errors.New("dump not found")
	// ErrLoadRetryExhausted is returned when every bulk load attempt failed and caller asked to fail fast.
	ErrLoadRetryExhausted = errors.New("bulk load retry exhausted")
)

// UnsupportedWorkload wraps ErrUnsupportedWorkload with the offending name.
func UnsupportedWorkload(workload string) error {
	return errors.Wrapf(ErrUnsupportedWorkload, "%q", workload)
}

// UnsupportedCluster wraps ErrUnsupportedCluster with the offending name.
func UnsupportedCluster(cluster string) error {
	return errors.Wrapf(ErrUnsupportedCluster, "%q", cluster)
}

// UnsupportedTool wraps ErrUnsupportedTool with the offending name.
func UnsupportedTool(tool string) error {
	return errors.Wrapf(ErrUnsupportedTool, "%q", tool)
}

// UnsupportedRunType wraps ErrUnsupportedRunType with the offending name.
func UnsupportedRunType(runType string) error {
	return errors.Wrapf(ErrUnsupportedRunType, "%q", runType)
}

// ScriptError is returned when external command exited with non zero code.
type ScriptError struct {
	Script   string
	Args     []string
	Host     string
	ExitCode int
}

func (e *ScriptError) Error() string {
	command := e.Script
	if len(e.Args) > 0 {
		command = fmt.Sprintf("%s %s", e.Script, strings.Join(e.Args, " "))
	}
	return fmt.Sprintf("script %q on %q failed with exit code %d", command, e.Host, e.ExitCode)
}

// IsScriptFailure reports whether cause of err is ScriptError.
func IsScriptFailure(err error) bool {
	_, ok := errors.Cause(err).(*ScriptError)
	return ok
}

// Policy decides what happens with failures of external commands.
type Policy int

const (
	// FailFast returns the failure to the caller.
	FailFast Policy = iota
	// ContinueOnError logs the failure and lets the caller proceed.
	ContinueOnError
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case ContinueOnError:
		return "continue-on-error"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// PolicyFromContinueFlag maps boolean flag to policy.
func PolicyFromContinueFlag(continueOnError bool) Policy {
	if continueOnError {
		return ContinueOnError
	}
	return FailFast
}

// Apply returns err for FailFast. ContinueOnError only logs it and returns nil.
func (p Policy) Apply(err error, context string) error {
	if err == nil {
		return nil
	}
	if p == ContinueOnError {
		log.Errorf("%s: %v (continuing)", context, err)
		return nil
	}
	return errors.Wrap(err, context)
}
