// Package workflow derives the per-turn workflow context from an inbound
// message's metadata document. The metadata comes from the client and is
// untrusted: every field is parsed defensively with a default, and a
// malformed document degrades to the zero context rather than failing
// the turn.
package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
)

// Goal constants for the campaign objective.
const (
	GoalLeads     = "leads"
	GoalSales     = "sales"
	GoalTraffic   = "traffic"
	GoalAwareness = "awareness"
	GoalCalls     = "calls"
)

// Step identifies where the user is in the campaign build.
type Step string

const (
	StepGoal      Step = "goal"
	StepAudience  Step = "audience"
	StepBudget    Step = "budget"
	StepCreative  Step = "creative"
	StepLocations Step = "locations"
	StepReview    Step = "review"
)

// EditReference names the campaign element an edit-mode turn targets.
type EditReference struct {
	Kind  string `json:"kind"`  // e.g. "ad_creative", "audience", "budget"
	ID    string `json:"id"`    // element identifier within the campaign
	Label string `json:"label"` // human-readable label for the prompt
}

// Resolved reports whether the reference points at a concrete target.
func (r EditReference) Resolved() bool {
	return r.Kind != "" && r.ID != ""
}

// Context is the ephemeral per-turn workflow state. It is constructed fresh
// from each inbound message's metadata, merged with the conversation's
// durable goal, and discarded when the turn completes.
type Context struct {
	Goal          string
	Step          Step
	EditMode      bool
	EditRef       EditReference
	LocationSetup bool
	LocationInput string
	CampaignID    *int64
}

// Parse builds a Context from a raw metadata document. It never fails:
// unknown or malformed fields default, and internally inconsistent
// combinations are logged as warnings while the turn proceeds.
func Parse(ctx context.Context, raw json.RawMessage) Context {
	wc := Context{Step: StepGoal}

	if len(raw) == 0 {
		return wc
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		slog.WarnContext(ctx, "malformed message metadata, using defaults", "error", err)
		return wc
	}

	wc.Goal = stringField(doc, "goal")
	if step := stringField(doc, "step"); step != "" {
		wc.Step = Step(step)
	}
	wc.EditMode = boolField(doc, "edit_mode")
	wc.LocationSetup = boolField(doc, "location_setup")
	wc.LocationInput = stringField(doc, "location_input")
	wc.CampaignID = int64Field(doc, "campaign_id")

	if ref, ok := doc["editing_reference"].(map[string]any); ok {
		wc.EditRef = EditReference{
			Kind:  stringField(ref, "kind"),
			ID:    stringField(ref, "id"),
			Label: stringField(ref, "label"),
		}
	}

	// Inconsistent combinations are diagnostic, never fatal.
	if wc.EditMode && !wc.EditRef.Resolved() {
		slog.WarnContext(ctx, "edit mode set without a resolvable editing reference")
	}
	if wc.LocationSetup && wc.LocationInput == "" {
		slog.WarnContext(ctx, "location setup mode set without location input")
	}

	return wc
}

// ResolveGoal merges the durable conversation goal with the goal guessed from
// this turn's metadata. The durable goal, once set, wins.
func ResolveGoal(durableGoal string, wc Context) string {
	if durableGoal != "" {
		return durableGoal
	}
	return wc.Goal
}

func stringField(doc map[string]any, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func boolField(doc map[string]any, key string) bool {
	switch v := doc[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

func int64Field(doc map[string]any, key string) *int64 {
	switch v := doc[key].(type) {
	case float64:
		i := int64(v)
		return &i
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return &i
		}
	}
	return nil
}
