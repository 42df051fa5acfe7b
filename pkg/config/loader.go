package config

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// Load reads a policy file from the given path. The format is determined by
// the file extension:
// - .json for JSON
// - .yaml or .yml for YAML
// - .hcl for HCL
// - .archivrc will try YAML then HCL
//
// The returned policy is not yet validated: the CLI applies flag overrides
// first and then calls Validate exactly once.
func Load(ctx context.Context, path string) (*Policy, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading policy")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))

	// For .archivrc files, try both YAML and HCL.
	if ext == ".archivrc" || filepath.Base(path) == ".archivrc" {
		p, yerr := loadYAML(data)
		if yerr == nil {
			return p, nil
		}
		p, herr := loadHCL(data, path)
		if herr == nil {
			return p, nil
		}
		return nil, errors.Errorf("failed to parse .archivrc as YAML (%v) or HCL: %w", yerr, herr)
	}

	switch ext {
	case ".json":
		return loadJSON(data)
	case ".yaml", ".yml":
		return loadYAML(data)
	case ".hcl":
		return loadHCL(data, path)
	default:
		return nil, errors.Errorf("unsupported config file extension %q", ext)
	}
}

// loadJSON loads a policy from JSON data.
func loadJSON(data []byte) (*Policy, error) {
	var p Policy
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&p); err != nil {
		return nil, errors.Errorf("parsing JSON: %w", err)
	}
	return &p, nil
}

// loadYAML loads a policy from YAML data.
func loadYAML(data []byte) (*Policy, error) {
	var p Policy
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &p, nil
}

// loadHCL loads a policy from HCL data.
func loadHCL(data []byte, filename string) (*Policy, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var p Policy
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &p)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}
	return &p, nil
}
