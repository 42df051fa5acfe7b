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

// Package config defines the backup policy and loads it from YAML, HCL or
// JSON files, validated once so nothing downstream has to re-check fields.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gitlab.com/tozd/go/errors"
)

// 🧭 Granularity selects the unit of transfer.
type Granularity string

const (
	// GranularitySubfolder archives immediate child directories of the
	// source root as whole units.
	GranularitySubfolder Granularity = "whole-subfolder"
	// GranularityPerFile archives individual files under the source root.
	GranularityPerFile Granularity = "per-file"
)

// DefaultBackupAgeDays is the eligibility window applied when the policy
// does not set one. Earlier script generations hardcoded one month; the
// configurable window is canonical and this is only its default.
const DefaultBackupAgeDays = 30

// 📚 Policy is the complete backup policy for one run.
type Policy struct {
	SrcDir           string   `json:"src_dir" yaml:"src_dir" hcl:"src_dir"`
	DstDir           string   `json:"dst_dir" yaml:"dst_dir" hcl:"dst_dir"`
	LogDir           string   `json:"log_dir" yaml:"log_dir" hcl:"log_dir"`
	ExcludedPatterns []string `json:"excluded_patterns,omitempty" yaml:"excluded_patterns,omitempty" hcl:"excluded_patterns,optional"`

	// VerifyCopy defaults to true when absent, hence the pointer.
	VerifyCopy   *bool `json:"verify_copy,omitempty" yaml:"verify_copy,omitempty" hcl:"verify_copy,optional"`
	DeleteSource bool  `json:"delete_source,omitempty" yaml:"delete_source,omitempty" hcl:"delete_source,optional"`

	// BackupAgeDays defaults to 30 when absent; an explicit 0 disables the
	// window, so absent and zero must stay distinguishable.
	BackupAgeDays *int        `json:"backup_age_days,omitempty" yaml:"backup_age_days,omitempty" hcl:"backup_age_days,optional"`
	Granularity   Granularity `json:"granularity,omitempty" yaml:"granularity,omitempty" hcl:"granularity,optional"`

	// AgeGatePerFile applies the eligibility window to per-file candidates
	// too. With subfolder granularity the window always applies.
	AgeGatePerFile bool `json:"age_gate_per_file,omitempty" yaml:"age_gate_per_file,omitempty" hcl:"age_gate_per_file,optional"`

	// Concurrency bounds the candidate worker pool. 1 reproduces the
	// sequential reference behavior.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty" hcl:"concurrency,optional"`
}

// 🔍 Validate checks required fields, normalizes paths and applies defaults.
func (p *Policy) Validate() error {
	if p.SrcDir == "" {
		return errors.New("src_dir is required")
	}
	if p.DstDir == "" {
		return errors.New("dst_dir is required")
	}
	if p.LogDir == "" {
		return errors.New("log_dir is required")
	}

	p.SrcDir = filepath.Clean(p.SrcDir)
	p.DstDir = filepath.Clean(p.DstDir)
	p.LogDir = filepath.Clean(p.LogDir)

	if p.SrcDir == p.DstDir {
		return errors.New("src_dir and dst_dir must be distinct")
	}

	info, err := os.Stat(p.SrcDir)
	if err != nil {
		return errors.Errorf("src_dir does not exist: %w", err)
	}
	if !info.IsDir() {
		return errors.Errorf("src_dir is not a directory: %s", p.SrcDir)
	}

	if p.VerifyCopy == nil {
		verify := true
		p.VerifyCopy = &verify
	}
	if p.BackupAgeDays == nil {
		days := DefaultBackupAgeDays
		p.BackupAgeDays = &days
	}
	if *p.BackupAgeDays < 0 {
		return errors.Errorf("backup_age_days must not be negative, got %d", *p.BackupAgeDays)
	}
	if p.Granularity == "" {
		p.Granularity = GranularitySubfolder
	}
	if p.Granularity != GranularitySubfolder && p.Granularity != GranularityPerFile {
		return errors.Errorf("unknown granularity %q", p.Granularity)
	}
	if p.Concurrency == 0 {
		p.Concurrency = 1
	}
	if p.Concurrency < 0 {
		return errors.Errorf("concurrency must not be negative, got %d", p.Concurrency)
	}

	return nil
}

// ShouldVerify reports whether copies are re-checksummed after transfer.
func (p *Policy) ShouldVerify() bool {
	return p.VerifyCopy == nil || *p.VerifyCopy
}

// WindowDays returns the eligibility window in days, applying the default
// when the policy does not set one.
func (p *Policy) WindowDays() int {
	if p.BackupAgeDays == nil {
		return DefaultBackupAgeDays
	}
	return *p.BackupAgeDays
}

// Window returns the eligibility window as a duration. Zero means every item
// is old enough right now.
func (p *Policy) Window() time.Duration {
	return time.Duration(p.WindowDays()) * 24 * time.Hour
}

// 📝 String returns a short human-readable summary of the policy.
func (p *Policy) String() string {
	return fmt.Sprintf("%s -> %s (%s, window %dd, verify=%t, delete=%t)",
		p.SrcDir, p.DstDir, p.Granularity, p.WindowDays(), p.ShouldVerify(), p.DeleteSource)
}
