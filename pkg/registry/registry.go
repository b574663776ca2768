// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

func LoadRegistry(path string) (*StageRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg StageRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// StageByTaskType returns the registry entry for a broker task type.
func (r *StageRegistry) StageByTaskType(taskType string) (*Stage, error) {
	for i := range r.Stages {
		if r.Stages[i].TaskType == taskType {
			return &r.Stages[i], nil
		}
	}
	return nil, fmt.Errorf("no stage registered for task type %q", taskType)
}

// OutputSchema returns the LLM output schema for a task type, or nil when
// the stage is deterministic and carries none.
func (r *StageRegistry) OutputSchema(taskType string) json.RawMessage {
	stage, err := r.StageByTaskType(taskType)
	if err != nil {
		return nil
	}
	return stage.LLMOutputSchema
}

// Validate checks the registry for duplicate task types and LLM stages
// missing an output schema.
func (r *StageRegistry) Validate() error {
	seen := make(map[string]bool, len(r.Stages))
	for _, s := range r.Stages {
		if s.TaskType == "" {
			return fmt.Errorf("stage %q has no task type", s.ID)
		}
		if seen[s.TaskType] {
			return fmt.Errorf("duplicate task type %q", s.TaskType)
		}
		seen[s.TaskType] = true
		if !s.Deterministic && len(s.LLMOutputSchema) == 0 {
			return fmt.Errorf("stage %q is LLM-backed but has no output schema", s.ID)
		}
	}
	return nil
}
