package guard

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rpattn/datagov/internal/domain"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// chaosPlanSchema validates operator-supplied chaos plans before any config
// reaches the store.
const chaosPlanSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["injections"],
	"properties": {
		"injections": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["workspace_id", "action", "failure_type", "probability"],
				"properties": {
					"workspace_id": {"type": "string", "minLength": 36, "maxLength": 36},
					"action": {"enum": ["PROMOTE", "ROLLBACK", "SNAPSHOT_ACTIVATE", "INGEST", "READ_ANALYTICS"]},
					"failure_type": {"enum": ["timeout", "throw", "partial", "stale_data"]},
					"probability": {"type": "integer", "minimum": 0, "maximum": 100},
					"enabled": {"type": "boolean"}
				},
				"additionalProperties": false
			}
		}
	},
	"additionalProperties": false
}`

type chaosPlan struct {
	Injections []chaosPlanEntry `json:"injections"`
}

type chaosPlanEntry struct {
	WorkspaceID string             `json:"workspace_id"`
	Action      domain.Action      `json:"action"`
	FailureType domain.FailureType `json:"failure_type"`
	Probability int                `json:"probability"`
	Enabled     bool               `json:"enabled"`
}

// ParseChaosPlan validates a chaos plan document against the embedded JSON
// Schema and returns the configs it describes.
func ParseChaosPlan(raw []byte) ([]domain.FailureInjectionConfig, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("chaos-plan.json", bytes.NewReader([]byte(chaosPlanSchema))); err != nil {
		return nil, fmt.Errorf("failed to load chaos plan schema: %w", err)
	}
	validator, err := compiler.Compile("chaos-plan.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile chaos plan schema: %w", err)
	}

	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("chaos plan is not valid JSON: %w", err)
	}
	if err := validator.Validate(document); err != nil {
		return nil, fmt.Errorf("chaos plan failed schema validation: %w", err)
	}

	var plan chaosPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode chaos plan: %w", err)
	}

	configs := make([]domain.FailureInjectionConfig, 0, len(plan.Injections))
	for idx, entry := range plan.Injections {
		workspaceID, err := uuid.Parse(entry.WorkspaceID)
		if err != nil {
			return nil, fmt.Errorf("injection %d has invalid workspace id: %w", idx, err)
		}
		configs = append(configs, domain.FailureInjectionConfig{
			WorkspaceID: workspaceID,
			Action:      entry.Action,
			FailureType: entry.FailureType,
			Probability: entry.Probability,
			Enabled:     entry.Enabled,
		})
	}

	return configs, nil
}
