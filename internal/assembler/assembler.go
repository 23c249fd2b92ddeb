// Package assembler gathers the side context the prompt composer needs.
// It is the only component that talks to the platform's read APIs. Any
// individual fetch failing degrades that field to an empty string; the
// assembler never fails a turn.
package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackhunterking/adpilot/internal/adplatform"
	"github.com/jackhunterking/adpilot/internal/model"
	"github.com/jackhunterking/adpilot/internal/workflow"
)

// Bundle is the immutable side-context for one turn.
type Bundle struct {
	MetricsSummary string
	OfferText      string
	PlanText       string
	EditRefText    string
}

type Assembler struct {
	metrics adplatform.MetricsReader
	plans   adplatform.PlanReader
	offers  adplatform.OfferReader
}

func New(metrics adplatform.MetricsReader, plans adplatform.PlanReader, offers adplatform.OfferReader) *Assembler {
	return &Assembler{
		metrics: metrics,
		plans:   plans,
		offers:  offers,
	}
}

// Assemble fetches the context bundle for a turn. Fetches run concurrently;
// each failure is logged as a warning and yields an empty field.
func (a *Assembler) Assemble(ctx context.Context, conv *model.Conversation, wc workflow.Context) Bundle {
	var bundle Bundle

	if conv.CampaignID == nil {
		bundle.EditRefText = editRefText(wc)
		return bundle
	}
	campaignID := *conv.CampaignID

	var wg sync.WaitGroup
	fetch := func(name string, dst *string, fn func(context.Context, int64) (string, error)) {
		defer wg.Done()
		text, err := fn(ctx, campaignID)
		if err != nil {
			slog.WarnContext(ctx, "context fetch failed, degrading to empty",
				"source", name,
				"error", err)
			return
		}
		*dst = text
	}

	wg.Add(3)
	go fetch("metrics", &bundle.MetricsSummary, a.metrics.MetricsSummary)
	go fetch("creative_plan", &bundle.PlanText, a.plans.CreativePlan)
	go fetch("offer", &bundle.OfferText, a.offers.Offer)
	wg.Wait()

	bundle.EditRefText = editRefText(wc)
	return bundle
}

func editRefText(wc workflow.Context) string {
	if !wc.EditMode || !wc.EditRef.Resolved() {
		return ""
	}
	label := wc.EditRef.Label
	if label == "" {
		label = wc.EditRef.Kind
	}
	return fmt.Sprintf("%s (%s %s)", label, wc.EditRef.Kind, wc.EditRef.ID)
}
