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

package backup

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/archivrc/pkg/config"
	"github.com/walteh/archivrc/pkg/retention"
	"github.com/walteh/archivrc/pkg/scan"
	"github.com/walteh/archivrc/pkg/status"
	"github.com/walteh/archivrc/pkg/transfer"
	"github.com/walteh/archivrc/pkg/verify"
)

// 🔍 Scanner produces the candidate set for a run.
type Scanner interface {
	Scan(ctx context.Context) ([]scan.Candidate, error)
}

// 🔧 Options contains configuration for the orchestrator.
type Options struct {
	// Policy is the validated backup policy. Required.
	Policy *config.Policy
	// Scanner produces the candidate set. Defaults to a real-clock scanner
	// over the policy.
	Scanner Scanner
	// Reporter receives progress events. Defaults to a no-op reporter.
	Reporter status.Reporter
	// Clock stamps the run. Defaults to the real clock.
	Clock clockwork.Clock
	// Run pins the run context, letting the caller share the stamp with
	// run-scoped collaborators (log files). Defaults to a fresh context
	// stamped at Run time.
	Run *RunContext
}

// 🎮 Orchestrator runs the eligibility-gated, verified transfer pipeline.
type Orchestrator struct {
	policy   *config.Policy
	scanner  Scanner
	reporter status.Reporter
	clock    clockwork.Clock
	run      *RunContext
}

// 🏭 New creates an orchestrator with the given options.
func New(opts Options) (*Orchestrator, error) {
	if opts.Policy == nil {
		return nil, errors.New("policy is required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Scanner == nil {
		opts.Scanner = scan.NewScannerWithClock(opts.Policy, opts.Clock)
	}
	if opts.Reporter == nil {
		opts.Reporter = status.NopReporter{}
	}
	return &Orchestrator{
		policy:   opts.Policy,
		scanner:  opts.Scanner,
		reporter: opts.Reporter,
		clock:    opts.Clock,
		run:      opts.Run,
	}, nil
}

// 🏃 Run executes one backup run: scan, then copy→verify→delete per
// candidate over a bounded worker pool. Candidates are independent: one
// failure never stops the others. Per-item errors land in the ledger; only
// run-level problems (scan failure, namespace collision) are returned.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	logger := zerolog.Ctx(ctx)
	run := NewRunContext(o.clock)
	if o.run != nil {
		run = *o.run
	}
	runRoot := filepath.Join(o.policy.DstDir, run.Stamp)

	// Run isolation guard: the namespace must be fresh. A plain Mkdir makes
	// the check-and-claim atomic, so two runs stamped in the same second
	// cannot both claim it.
	if err := os.MkdirAll(o.policy.DstDir, 0755); err != nil {
		return nil, errors.Errorf("creating destination root: %w", err)
	}
	if err := os.Mkdir(runRoot, 0755); err != nil {
		if os.IsExist(err) {
			return nil, errors.Errorf("run namespace already exists: %s", runRoot)
		}
		return nil, errors.Errorf("creating run namespace: %w", err)
	}

	logger.Info().Str("run", run.Stamp).Str("src", o.policy.SrcDir).Str("dst", runRoot).Msg("starting backup run")

	candidates, err := o.scanner.Scan(ctx)
	if err != nil {
		return nil, errors.Errorf("scanning source: %w", err)
	}
	items := scan.Transferable(candidates)
	o.reporter.StartRun(len(items))

	verifier := verify.NewVerifier(o.policy.SrcDir, runRoot)
	enforcer := retention.NewEnforcer(o.policy.SrcDir, o.policy.DeleteSource)

	// Each slot is written by exactly one worker, so the ledger needs no
	// lock; it is only read after Wait.
	ledger := make([]ItemResult, len(items))

	g := new(errgroup.Group)
	g.SetLimit(o.policy.Concurrency)
	for i, cand := range items {
		i, cand := i, cand
		// Stop dispatching on cancellation; in-flight candidates reach a
		// terminal state on their own.
		if ctx.Err() != nil {
			ledger[i] = ItemResult{
				Candidate: cand,
				State:     StateFailedCopy,
				Outcome:   OutcomeFailedCopy,
				Err:       errors.Errorf("run cancelled before dispatch: %w", ctx.Err()),
			}
			continue
		}
		g.Go(func() error {
			ledger[i] = o.process(ctx, runRoot, cand, verifier, enforcer)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Workers never return errors, they record them in the ledger.
		return nil, errors.Errorf("waiting for workers: %w", err)
	}

	report := &Report{
		Stamp:   run.Stamp,
		Start:   run.StartedAt,
		End:     o.clock.Now(),
		Results: ledger,
	}
	o.reporter.FinishRun(len(report.Succeeded()), len(report.Failed()))

	if path, err := report.WriteFile(o.policy.LogDir); err != nil {
		logger.Error().Err(err).Msg("writing run report failed")
	} else {
		logger.Info().Str("report", path).Msg("backup report generated")
	}

	return report, nil
}

// process runs one candidate's full pipeline to a terminal state. Any panic
// from the pipeline is caught and recorded as that candidate's failure so a
// single bad item cannot take the run down.
func (o *Orchestrator) process(ctx context.Context, runRoot string, cand scan.Candidate, verifier *verify.Verifier, enforcer *retention.Enforcer) (res ItemResult) {
	logger := zerolog.Ctx(ctx)

	res = ItemResult{Candidate: cand, State: StatePending}
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("item", cand.RelPath).Interface("panic", r).Msg("candidate pipeline panicked")
			res.State = StateFailedCopy
			res.Outcome = OutcomeFailedCopy
			res.Err = errors.Errorf("candidate pipeline panicked: %v", r)
		}
	}()

	executor := transfer.NewExecutor(o.policy.SrcDir, runRoot).
		WithProgress(func() { o.reporter.FileDone(cand.RelPath) })

	files, err := executor.Files(cand)
	if err != nil {
		res.State = StateFailedCopy
		res.Outcome = OutcomeFailedCopy
		res.Err = err
		o.reporter.FinishCandidate(cand.RelPath, false, "listing failed")
		return res
	}
	o.reporter.StartCandidate(cand.RelPath, len(files))

	res.State = StateCopying
	copied, err := executor.Transfer(ctx, cand)
	if err != nil {
		res.State = StateFailedCopy
		res.Outcome = OutcomeFailedCopy
		res.Err = err
		o.reporter.FinishCandidate(cand.RelPath, false, "copy failed")
		return res
	}
	res.State = StateCopied

	if o.policy.ShouldVerify() {
		res.State = StateVerifying
		rels := make([]string, 0, len(copied))
		for _, fr := range copied {
			rels = append(rels, fr.RelPath)
		}
		if err := verifier.Verify(ctx, rels); err != nil {
			res.State = StateFailedVerification
			res.Outcome = OutcomeFailedVerification
			res.Err = err
			o.reporter.FinishCandidate(cand.RelPath, false, "verification failed")
			return res
		}
		res.State = StateVerified
	}

	res.Outcome = OutcomeSucceeded
	o.reporter.FinishCandidate(cand.RelPath, true, "")

	if enforcer.Enabled() {
		if err := enforcer.Delete(ctx, cand); err != nil {
			res.DeletionErr = err
		} else {
			res.State = StateDeleted
		}
	}

	return res
}
