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
	"fmt"

	"gopkg.in/cheggaaa/pb.v1"
)

// progress shows campaign steps on a progress bar. Zero value shows nothing.
type progress struct {
	bar   *pb.ProgressBar
	total int
	done  int
}

func newProgress(enabled bool, total int) *progress {
	p := &progress{total: total}
	if enabled && total > 0 {
		p.bar = pb.StartNew(total)
		p.bar.ShowCounters = false
		p.bar.ShowTimeLeft = true
	}
	return p
}

func (p *progress) step(name string) {
	if p.bar == nil {
		return
	}
	p.bar.Prefix(fmt.Sprintf("[%02d / %02d] %s ", p.done+1, p.total, name))
	// Prefix change should be shown immediately.
	p.bar.AlwaysUpdate = true
	p.bar.Update()
	p.bar.AlwaysUpdate = false
}

func (p *progress) increment() {
	p.done++
	if p.bar != nil {
		p.bar.Increment()
	}
}

func (p *progress) finish() {
	if p.bar != nil {
		p.bar.Finish()
	}
}
