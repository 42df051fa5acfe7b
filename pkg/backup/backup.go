// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package backup sequences scanning, transfer, verification and retention
// into one run and tracks per-candidate outcomes.
package backup

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/walteh/archivrc/pkg/scan"
)

// StampLayout formats a run timestamp. Second granularity plus the
// existence guard in Run keeps run namespaces from ever colliding.
const StampLayout = "20060102_150405"

// 📊 State is a candidate's position in its pipeline.
type State int

const (
	StatePending State = iota
	StateCopying
	StateCopied
	StateVerifying
	StateVerified
	StateDeleted
	StateFailedCopy
	StateFailedVerification
)

// String returns a string representation of State
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCopying:
		return "copying"
	case StateCopied:
		return "copied"
	case StateVerifying:
		return "verifying"
	case StateVerified:
		return "verified"
	case StateDeleted:
		return "deleted"
	case StateFailedCopy:
		return "failed-copy"
	case StateFailedVerification:
		return "failed-verification"
	default:
		return "unknown"
	}
}

// 🎯 Outcome is the terminal result recorded for a candidate.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeFailedCopy
	OutcomeFailedVerification
)

// String returns a string representation of Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailedCopy:
		return "failed-copy"
	case OutcomeFailedVerification:
		return "failed-verification"
	default:
		return "unknown"
	}
}

// ItemResult is one ledger entry. Immutable once recorded.
type ItemResult struct {
	Candidate scan.Candidate
	State     State
	Outcome   Outcome
	Err       error

	// DeletionErr notes a failed source removal after a successful
	// transfer. It never downgrades the outcome: the data exists safely at
	// the destination, cleanup just needs a human.
	DeletionErr error
}

// Succeeded reports whether the candidate reached a success terminal state.
func (r ItemResult) Succeeded() bool {
	return r.Outcome == OutcomeSucceeded
}

// RunContext namespaces one invocation. The stamp is generated once and
// every destination write for the run lands under <dst_dir>/<stamp>.
type RunContext struct {
	Stamp     string
	StartedAt time.Time
}

// NewRunContext captures the clock once for the whole run.
func NewRunContext(clock clockwork.Clock) RunContext {
	now := clock.Now()
	return RunContext{
		Stamp:     now.Format(StampLayout),
		StartedAt: now,
	}
}
