// pkg/registry/schema.go
package registry

import "encoding/json"

// StageRegistry is the deployable catalog of pipeline stages: task types,
// timeouts, retry budgets, and the JSON Schemas the LLM-backed stages hold
// their model output against.
type StageRegistry struct {
	Version     string  `json:"version"`
	LastUpdated string  `json:"lastUpdated"`
	Stages      []Stage `json:"stages"`
}

type Stage struct {
	ID              string          `json:"id"`
	DisplayName     string          `json:"displayName"`
	Description     string          `json:"description"`
	TaskType        string          `json:"taskType"`
	Deterministic   bool            `json:"deterministic"`
	LLMOutputSchema json.RawMessage `json:"llmOutputSchema,omitempty"`
	ErrorCodes      []string        `json:"errorCodes"`
	Timeout         string          `json:"timeout"`
	Retries         int             `json:"retries"`
	WorkflowTypes   []string        `json:"workflowTypes"`
	Tags            []string        `json:"tags"`
}
