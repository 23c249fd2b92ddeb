// Package tools defines the campaign tool catalog and the gating rules that
// decide which tools the model may call on a given turn. The registry is a
// pure function of the workflow context: it performs no I/O and cannot itself
// mutate campaign state.
package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackhunterking/adpilot/common/llm"
	"github.com/jackhunterking/adpilot/internal/workflow"
)

// Descriptor describes one callable tool.
type Descriptor struct {
	Name        string
	Description string
	Parameters  any                // JSON schema for the tool input
	AutoExecute bool               // false = requires external confirmation before effect
	validate    func(string) error // input validation against the parameter struct
}

// Registry exposes the gated tool set for a turn.
type Registry struct{}

func NewRegistry() *Registry {
	return &Registry{}
}

// ForContext returns the subset of the catalog callable under the given
// workflow context, keyed by tool name.
//
// Gating rules:
//   - destructive tools are always confirmation-required, never withheld
//   - edit-scoped tools are withheld unless edit mode is on and the editing
//     reference resolves to a concrete target
//   - step-scoped tools are withheld outside their step
func (r *Registry) ForContext(wc workflow.Context) map[string]Descriptor {
	out := make(map[string]Descriptor)

	for _, t := range catalog {
		if t.editScoped && !(wc.EditMode && wc.EditRef.Resolved()) {
			continue
		}
		if t.step != "" && t.step != wc.Step {
			continue
		}
		if t.locationSetup && !wc.LocationSetup {
			continue
		}
		out[t.Descriptor.Name] = t.Descriptor
	}

	return out
}

// Definitions converts a gated tool set to the LLM wire format.
func Definitions(set map[string]Descriptor) []llm.Tool {
	defs := make([]llm.Tool, 0, len(set))
	for _, d := range set {
		defs = append(defs, llm.Tool{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return defs
}

// ValidateInput checks a tool call's JSON arguments against the tool's
// parameter struct. Unknown fields are rejected.
func (d Descriptor) ValidateInput(arguments string) error {
	if d.validate == nil {
		return nil
	}
	return d.validate(arguments)
}

// RepairInput attempts a light-touch repair of malformed tool arguments:
// stripping markdown fences and trailing commas, the two failure shapes
// models actually produce. Returns the repaired arguments or an error if
// the input still does not validate.
func (d Descriptor) RepairInput(arguments string) (string, error) {
	repaired := strings.TrimSpace(arguments)
	repaired = strings.TrimPrefix(repaired, "```json")
	repaired = strings.TrimPrefix(repaired, "```")
	repaired = strings.TrimSuffix(repaired, "```")
	repaired = strings.TrimSpace(repaired)
	repaired = strings.ReplaceAll(repaired, ",}", "}")
	repaired = strings.ReplaceAll(repaired, ",]", "]")

	if err := d.ValidateInput(repaired); err != nil {
		return "", fmt.Errorf("repair failed: %w", err)
	}
	return repaired, nil
}

func validateAs[T any](arguments string) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(arguments)))
	dec.DisallowUnknownFields()
	var v T
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("invalid tool input: %w", err)
	}
	return nil
}
