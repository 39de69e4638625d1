package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// StageTemplate describes one stage created with every new job
type StageTemplate struct {
	Name      string `yaml:"name"`
	Mandatory bool   `yaml:"mandatory"`
}

// PipelineDefaults lists the stages, in order, that every new job starts with
type PipelineDefaults struct {
	Stages []StageTemplate `yaml:"stages"`
}

// DefaultPipeline is used when no PIPELINE_DEFAULTS_FILE is configured.
func DefaultPipeline() PipelineDefaults {
	return PipelineDefaults{Stages: []StageTemplate{
		{Name: "Applied", Mandatory: true},
		{Name: "Screening"},
		{Name: "Interview"},
		{Name: "Offer"},
		{Name: "Hired", Mandatory: true},
		{Name: "Rejected", Mandatory: true},
	}}
}

// LoadPipelineDefaults reads stage templates from a YAML file. An empty path
// returns DefaultPipeline.
//
//	stages:
//	  - name: Applied
//	    mandatory: true
//	  - name: Phone Screen
func LoadPipelineDefaults(path string) (PipelineDefaults, error) {
	if path == "" {
		return DefaultPipeline(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return PipelineDefaults{}, fmt.Errorf("failed to read pipeline defaults %s: %w", path, err)
	}

	var defaults PipelineDefaults
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return PipelineDefaults{}, fmt.Errorf("failed to parse pipeline defaults YAML: %w", err)
	}
	if err := defaults.Validate(); err != nil {
		return PipelineDefaults{}, err
	}
	return defaults, nil
}

// Validate rejects empty pipelines, blank names and duplicate names.
func (p PipelineDefaults) Validate() error {
	if len(p.Stages) == 0 {
		return fmt.Errorf("pipeline defaults must list at least one stage")
	}
	seen := make(map[string]bool, len(p.Stages))
	for i, s := range p.Stages {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return fmt.Errorf("pipeline defaults: stage %d has no name", i)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("pipeline defaults: duplicate stage %q", name)
		}
		seen[key] = true
	}
	return nil
}
