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

package errcollection

import (
	"strings"

	"github.com/hashicorp/go-multierror"
)

const delimiter = ";\n "

// ErrorCollection gathers errors from steps that should not stop each other (cleanups, stops).
type ErrorCollection struct {
	errs *multierror.Error
}

// Add inserts new error to collection. Nil errors are ignored.
func (e *ErrorCollection) Add(err error) {
	if err == nil {
		return
	}
	e.errs = multierror.Append(e.errs, err)
}

// Len returns number of collected errors.
func (e *ErrorCollection) Len() int {
	if e.errs == nil {
		return 0
	}
	return e.errs.Len()
}

// GetErrIfAny returns error with combined message from all given errors.
// In case of no error it returns nil.
func (e *ErrorCollection) GetErrIfAny() error {
	if e.errs == nil {
		return nil
	}
	e.errs.ErrorFormat = joinMessages
	return e.errs.ErrorOrNil()
}

func joinMessages(errs []error) string {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, delimiter)
}
