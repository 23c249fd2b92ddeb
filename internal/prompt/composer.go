// Package prompt composes the system prompt for a campaign-building turn.
// Compose is a pure function: identical inputs produce byte-identical output.
package prompt

import (
	"fmt"
	"strings"

	"github.com/jackhunterking/adpilot/internal/workflow"
)

// Input carries everything the composer needs. All fields are plain data;
// the composer performs no I/O.
type Input struct {
	Goal           string
	Step           workflow.Step
	EditMode       bool
	EditLabel      string
	LocationSetup  bool
	MetricsSummary string
	OfferText      string
	PlanText       string
	EditRefText    string
	Summary        string // prior-conversation summary, if any
}

// Compose builds the system prompt for one turn.
func Compose(in Input) string {
	var b strings.Builder

	b.WriteString(`You are AdPilot, an assistant that helps a user build an advertising campaign through conversation. You manipulate the campaign only through the tools you are given; never claim to have changed something without calling the matching tool.

Rules:
- Work step by step through the campaign build; do not skip ahead of the user.
- Tools that require confirmation will be surfaced to the user for approval; present them as proposals, not completed actions.
- Keep responses short and concrete. Ask one question at a time.`)

	b.WriteString("\n\n## Current state\n")
	fmt.Fprintf(&b, "- Campaign goal: %s\n", valueOr(in.Goal, "not chosen yet"))
	fmt.Fprintf(&b, "- Build step: %s\n", string(in.Step))

	if in.EditMode {
		fmt.Fprintf(&b, "- Edit mode: editing %s\n", valueOr(in.EditLabel, "a campaign element"))
	}
	if in.LocationSetup {
		b.WriteString("- Location setup: the user is choosing target locations\n")
	}

	if in.Summary != "" {
		b.WriteString("\n## Earlier in this conversation\n")
		b.WriteString(in.Summary)
		b.WriteString("\n")
	}

	if in.MetricsSummary != "" {
		b.WriteString("\n## Campaign metrics\n")
		b.WriteString(in.MetricsSummary)
		b.WriteString("\n")
	}

	if in.OfferText != "" {
		b.WriteString("\n## Offer\n")
		b.WriteString(in.OfferText)
		b.WriteString("\n")
	}

	if in.PlanText != "" {
		b.WriteString("\n## Creative plan\n")
		b.WriteString(in.PlanText)
		b.WriteString("\n")
	}

	if in.EditRefText != "" {
		b.WriteString("\n## Element being edited\n")
		b.WriteString(in.EditRefText)
		b.WriteString("\n")
	}

	return b.String()
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
