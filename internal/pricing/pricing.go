package pricing

import "github.com/maeum-ai/maeum-api/internal/llm"

// Descriptor is one entry of the static model table: how a gateway model id
// maps to a vendor family, the vendor's own technical identifier, and USD
// pricing per million tokens. Defined at process start, never mutated.
type Descriptor struct {
	ID                  string
	Name                string
	Family              llm.Family
	UpstreamID          string
	InputUSDPerMillion  float64
	OutputUSDPerMillion float64
}

// Registry resolves gateway model ids to descriptors.
type Registry struct {
	models map[string]Descriptor
}

// defaultModels is the compiled-in table. Prices are USD per million tokens,
// standard tier.
var defaultModels = []Descriptor{
	{
		ID:                  "gpt-4o-mini",
		Name:                "GPT-4o mini",
		Family:              llm.FamilyOpenAI,
		UpstreamID:          "gpt-4o-mini",
		InputUSDPerMillion:  0.15,
		OutputUSDPerMillion: 0.60,
	},
	{
		ID:                  "gpt-4o",
		Name:                "GPT-4o",
		Family:              llm.FamilyOpenAI,
		UpstreamID:          "gpt-4o",
		InputUSDPerMillion:  2.50,
		OutputUSDPerMillion: 10.00,
	},
	{
		ID:                  "claude-3-5-sonnet",
		Name:                "Claude 3.5 Sonnet",
		Family:              llm.FamilyAnthropic,
		UpstreamID:          "claude-3-5-sonnet-20241022",
		InputUSDPerMillion:  3.00,
		OutputUSDPerMillion: 15.00,
	},
	{
		ID:                  "claude-3-haiku",
		Name:                "Claude 3 Haiku",
		Family:              llm.FamilyAnthropic,
		UpstreamID:          "claude-3-haiku-20240307",
		InputUSDPerMillion:  0.25,
		OutputUSDPerMillion: 1.25,
	},
	{
		ID:                  "gemini-1.5-flash",
		Name:                "Gemini 1.5 Flash",
		Family:              llm.FamilyGoogle,
		UpstreamID:          "gemini-1.5-flash",
		InputUSDPerMillion:  0.075,
		OutputUSDPerMillion: 0.30,
	},
	{
		ID:                  "gemini-1.5-pro",
		Name:                "Gemini 1.5 Pro",
		Family:              llm.FamilyGoogle,
		UpstreamID:          "gemini-1.5-pro",
		InputUSDPerMillion:  1.25,
		OutputUSDPerMillion: 5.00,
	},
}

// NewRegistry builds the registry from the compiled-in table.
func NewRegistry() *Registry {
	models := make(map[string]Descriptor, len(defaultModels))
	for _, d := range defaultModels {
		models[d.ID] = d
	}
	return &Registry{models: models}
}

// Lookup returns the descriptor for a model id. Unknown ids report ok=false
// rather than failing; downstream cost computation treats them as "cost
// unknown".
func (r *Registry) Lookup(modelID string) (Descriptor, bool) {
	d, ok := r.models[modelID]
	return d, ok
}

// List returns all descriptors in table order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.models))
	for _, d := range defaultModels {
		out = append(out, r.models[d.ID])
	}
	return out
}

// Cost meters token usage into USD. The result is nil (unknown) when the
// model id is not in the table or when either token count is absent; unknown
// is a distinct outcome from zero and is never defaulted.
func (r *Registry) Cost(modelID string, inputTokens, outputTokens *int) *float64 {
	d, ok := r.models[modelID]
	if !ok {
		return nil
	}
	if inputTokens == nil || outputTokens == nil {
		return nil
	}

	cost := float64(*inputTokens)/1_000_000*d.InputUSDPerMillion +
		float64(*outputTokens)/1_000_000*d.OutputUSDPerMillion
	return &cost
}
