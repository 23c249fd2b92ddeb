package tools

import (
	"github.com/jackhunterking/adpilot/common/llm"
	"github.com/jackhunterking/adpilot/internal/workflow"
)

// Parameter structs double as the JSON schema source (via llm.GenerateSchema)
// and the validation target for inbound tool calls.

type SetCampaignGoalArgs struct {
	Goal string `json:"goal" jsonschema:"enum=leads,enum=sales,enum=traffic,enum=awareness,enum=calls,description=Campaign objective"`
}

type UpdateCampaignNameArgs struct {
	Name string `json:"name" jsonschema:"description=New campaign name"`
}

type SetBudgetArgs struct {
	DailyBudgetCents int64  `json:"daily_budget_cents" jsonschema:"description=Daily budget in cents"`
	Currency         string `json:"currency,omitempty" jsonschema:"description=ISO currency code"`
}

type SetScheduleArgs struct {
	StartDate string `json:"start_date" jsonschema:"description=Campaign start date (YYYY-MM-DD)"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"description=Campaign end date, empty for ongoing"`
}

type GenerateAdCopyArgs struct {
	Tone    string `json:"tone,omitempty" jsonschema:"description=Desired tone of voice"`
	Variant int    `json:"variant,omitempty" jsonschema:"description=Number of variants to produce"`
}

type UpdateOfferArgs struct {
	OfferText string `json:"offer_text" jsonschema:"description=The offer or promotion to advertise"`
}

type SetAudienceArgs struct {
	Description string   `json:"description" jsonschema:"description=Plain-language audience description"`
	Interests   []string `json:"interests,omitempty" jsonschema:"description=Interest keywords to target"`
	AgeMin      int      `json:"age_min,omitempty"`
	AgeMax      int      `json:"age_max,omitempty"`
}

type SuggestInterestsArgs struct {
	Seed string `json:"seed" jsonschema:"description=Seed topic to expand into interest suggestions"`
}

type SetLocationsArgs struct {
	Locations []string `json:"locations" jsonschema:"description=Location names or postal codes to target"`
	RadiusKM  int      `json:"radius_km,omitempty" jsonschema:"description=Radius around each location"`
}

type UpdateCreativeArgs struct {
	Headline     string `json:"headline,omitempty"`
	PrimaryText  string `json:"primary_text,omitempty"`
	CallToAction string `json:"call_to_action,omitempty"`
}

type SwapCreativeImageArgs struct {
	ImageURL string `json:"image_url" jsonschema:"description=Replacement image URL"`
}

type DeleteAdArgs struct {
	AdID string `json:"ad_id" jsonschema:"description=Identifier of the ad to delete"`
}

type ClearCampaignArgs struct {
	Confirm bool `json:"confirm,omitempty" jsonschema:"description=Acknowledgement flag"`
}

type PublishCampaignArgs struct{}

// catalogEntry pairs a descriptor with its gating preconditions.
type catalogEntry struct {
	Descriptor    Descriptor
	step          workflow.Step // non-empty = only offered during this step
	editScoped    bool          // only offered with a resolved edit reference
	locationSetup bool          // only offered in location setup mode
}

var catalog = []catalogEntry{
	{
		Descriptor: Descriptor{
			Name:        "set_campaign_goal",
			Description: "Set the campaign objective (leads, sales, traffic, awareness, calls).",
			Parameters:  llm.GenerateSchema[SetCampaignGoalArgs](),
			AutoExecute: true,
			validate:    validateAs[SetCampaignGoalArgs],
		},
		step: workflow.StepGoal,
	},
	{
		Descriptor: Descriptor{
			Name:        "update_campaign_name",
			Description: "Rename the campaign under construction.",
			Parameters:  llm.GenerateSchema[UpdateCampaignNameArgs](),
			AutoExecute: true,
			validate:    validateAs[UpdateCampaignNameArgs],
		},
	},
	{
		Descriptor: Descriptor{
			Name:        "set_budget",
			Description: "Set the campaign's daily budget.",
			Parameters:  llm.GenerateSchema[SetBudgetArgs](),
			AutoExecute: true,
			validate:    validateAs[SetBudgetArgs],
		},
		step: workflow.StepBudget,
	},
	{
		Descriptor: Descriptor{
			Name:        "set_schedule",
			Description: "Set the campaign's start and optional end date.",
			Parameters:  llm.GenerateSchema[SetScheduleArgs](),
			AutoExecute: true,
			validate:    validateAs[SetScheduleArgs],
		},
		step: workflow.StepBudget,
	},
	{
		Descriptor: Descriptor{
			Name:        "generate_ad_copy",
			Description: "Generate ad copy variants from the campaign's offer and audience.",
			Parameters:  llm.GenerateSchema[GenerateAdCopyArgs](),
			AutoExecute: true,
			validate:    validateAs[GenerateAdCopyArgs],
		},
		step: workflow.StepCreative,
	},
	{
		Descriptor: Descriptor{
			Name:        "update_offer",
			Description: "Update the offer text the campaign advertises.",
			Parameters:  llm.GenerateSchema[UpdateOfferArgs](),
			AutoExecute: true,
			validate:    validateAs[UpdateOfferArgs],
		},
	},
	{
		Descriptor: Descriptor{
			Name:        "set_audience",
			Description: "Define the target audience for the campaign.",
			Parameters:  llm.GenerateSchema[SetAudienceArgs](),
			AutoExecute: true,
			validate:    validateAs[SetAudienceArgs],
		},
		step: workflow.StepAudience,
	},
	{
		Descriptor: Descriptor{
			Name:        "suggest_interests",
			Description: "Suggest interest keywords related to a seed topic.",
			Parameters:  llm.GenerateSchema[SuggestInterestsArgs](),
			AutoExecute: true,
			validate:    validateAs[SuggestInterestsArgs],
		},
		step: workflow.StepAudience,
	},
	{
		Descriptor: Descriptor{
			Name:        "set_locations",
			Description: "Set the geographic locations the campaign targets.",
			Parameters:  llm.GenerateSchema[SetLocationsArgs](),
			AutoExecute: true,
			validate:    validateAs[SetLocationsArgs],
		},
		locationSetup: true,
	},
	{
		Descriptor: Descriptor{
			Name:        "update_creative",
			Description: "Edit the referenced ad creative's headline, text or call to action.",
			Parameters:  llm.GenerateSchema[UpdateCreativeArgs](),
			AutoExecute: true,
			validate:    validateAs[UpdateCreativeArgs],
		},
		editScoped: true,
	},
	{
		Descriptor: Descriptor{
			Name:        "swap_creative_image",
			Description: "Replace the referenced ad creative's image.",
			Parameters:  llm.GenerateSchema[SwapCreativeImageArgs](),
			AutoExecute: true,
			validate:    validateAs[SwapCreativeImageArgs],
		},
		editScoped: true,
	},
	{
		Descriptor: Descriptor{
			Name:        "delete_ad",
			Description: "Delete an ad from the campaign. Requires user confirmation.",
			Parameters:  llm.GenerateSchema[DeleteAdArgs](),
			AutoExecute: false,
			validate:    validateAs[DeleteAdArgs],
		},
	},
	{
		Descriptor: Descriptor{
			Name:        "clear_campaign",
			Description: "Clear the entire campaign draft. Requires user confirmation.",
			Parameters:  llm.GenerateSchema[ClearCampaignArgs](),
			AutoExecute: false,
			validate:    validateAs[ClearCampaignArgs],
		},
	},
	{
		Descriptor: Descriptor{
			Name:        "publish_campaign",
			Description: "Submit the campaign for publishing. Requires user confirmation.",
			Parameters:  llm.GenerateSchema[PublishCampaignArgs](),
			AutoExecute: false,
			validate:    validateAs[PublishCampaignArgs],
		},
		step: workflow.StepReview,
	},
}
