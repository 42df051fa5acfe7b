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

// Package status reports per-run progress to the user. It is injected into
// the orchestrator, never global, so its lifecycle is scoped to one run.
package status

import (
	"fmt"
	"sync"

	"github.com/pterm/pterm"
)

// 📈 Reporter receives progress events during a run.
type Reporter interface {
	// StartRun announces the candidate count for this run.
	StartRun(total int)
	// StartCandidate announces a candidate and its file count.
	StartCandidate(name string, files int)
	// FileDone advances the named candidate's progress by one file.
	FileDone(name string)
	// FinishCandidate records the candidate's terminal state.
	FinishCandidate(name string, ok bool, reason string)
	// FinishRun closes out the run with final counts.
	FinishRun(succeeded, failed int)
}

// 🖥️ ConsoleReporter renders progress with pterm printers and a per-candidate
// progress bar. Bars are keyed by candidate name so concurrent candidates
// never tick each other's bar.
type ConsoleReporter struct {
	mu   sync.Mutex
	bars map[string]*pterm.ProgressbarPrinter
}

// NewConsoleReporter creates a console reporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{bars: make(map[string]*pterm.ProgressbarPrinter)}
}

func (r *ConsoleReporter) StartRun(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pterm.Info.WithPrefix(pterm.Prefix{Text: "📦"}).Printfln("Processing %d candidate(s)", total)
}

func (r *ConsoleReporter) StartCandidate(name string, files int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bar, err := pterm.DefaultProgressbar.
		WithTotal(files).
		WithTitle(fmt.Sprintf("Copying %s", name)).
		Start()
	if err != nil {
		return
	}
	r.bars[name] = bar
}

func (r *ConsoleReporter) FileDone(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bar, ok := r.bars[name]; ok {
		bar.Increment()
	}
}

func (r *ConsoleReporter) FinishCandidate(name string, ok bool, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bar, found := r.bars[name]; found {
		bar.Stop()
		delete(r.bars, name)
	}
	if ok {
		pterm.Success.WithPrefix(pterm.Prefix{Text: "✨"}).Println(name)
	} else {
		pterm.Error.WithPrefix(pterm.Prefix{Text: "❌"}).Printfln("%s (%s)", name, reason)
	}
}

func (r *ConsoleReporter) FinishRun(succeeded, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if failed > 0 {
		pterm.Warning.Printfln("Run finished: %d succeeded, %d failed", succeeded, failed)
		return
	}
	pterm.Success.Printfln("Run finished: %d succeeded", succeeded)
}

// 🔇 NopReporter discards all progress events. Used by tests and unattended
// invocations.
type NopReporter struct{}

func (NopReporter) StartRun(int)                         {}
func (NopReporter) StartCandidate(string, int)           {}
func (NopReporter) FileDone(string)                      {}
func (NopReporter) FinishCandidate(string, bool, string) {}
func (NopReporter) FinishRun(int, int)                   {}
