package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Stage - 파이프라인 단계 정의 (UI 진행 표시용 라벨 + 대기 시간)
type Stage struct {
	Name  string        `yaml:"name"`
	Label string        `yaml:"label"`
	Delay time.Duration `yaml:"delay"`
}

type stageFile struct {
	Stages []Stage `yaml:"stages"`
}

// DefaultStages - analysis, feature extraction, frame generation, motion effects
func DefaultStages() []Stage {
	return []Stage{
		{Name: "analysis", Label: "Analyzing manga panels...", Delay: 1500 * time.Millisecond},
		{Name: "extraction", Label: "Extracting character features...", Delay: 1500 * time.Millisecond},
		{Name: "generation", Label: "Generating animation frames...", Delay: 2000 * time.Millisecond},
		{Name: "motion", Label: "Applying motion effects...", Delay: 0},
	}
}

// LoadStages - YAML 파일에서 단계 목록 로드
func LoadStages(path string) ([]Stage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stages file: %w", err)
	}
	return ParseStages(data)
}

// ParseStages decodes a `stages:` YAML document. The final stage is the one that
// calls the backend, so at least one stage is required.
func ParseStages(data []byte) ([]Stage, error) {
	var file stageFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse stages file: %w", err)
	}
	if len(file.Stages) == 0 {
		return nil, fmt.Errorf("stages file defines no stages")
	}

	seen := make(map[string]bool, len(file.Stages))
	for i, s := range file.Stages {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, fmt.Errorf("stage %d: name is required", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("stage %d: duplicate name %q", i, name)
		}
		if s.Delay < 0 {
			return nil, fmt.Errorf("stage %q: negative delay %v", name, s.Delay)
		}
		seen[name] = true
		file.Stages[i].Name = name
		if strings.TrimSpace(s.Label) == "" {
			file.Stages[i].Label = name
		}
	}
	return file.Stages, nil
}
