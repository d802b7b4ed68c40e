package domain

// DefaultModelID is used when a chat request does not name a model.
const DefaultModelID = "deepseek-r1"

// Models is the static model catalog.
var Models = []ModelInfo{
	{ID: "gpt-5", Name: "GPT-5", Provider: "openai", Tier: TierPremium, DailyLimit: 5, Description: "Flagship GPT-5 model"},
	{ID: "gpt-4o", Name: "GPT-4o", Provider: "openai", Tier: TierPremium, DailyLimit: 5, Description: "Multimodal GPT-4o model"},
	{ID: "gpt-4.1", Name: "GPT-4.1", Provider: "openai", Tier: TierPremium, DailyLimit: 5, Description: "Upgraded GPT-4.1"},
	{ID: "deepseek-r1", Name: "DeepSeek R1", Provider: "deepseek", Tier: TierStandard, DailyLimit: 30, Description: "Deep reasoning model", SupportsReasoning: true},
	{ID: "deepseek-v3", Name: "DeepSeek V3", Provider: "deepseek", Tier: TierStandard, DailyLimit: 30, Description: "Third generation DeepSeek model"},
	{ID: "deepseek-v3-2-exp", Name: "DeepSeek V3.2 Exp", Provider: "deepseek", Tier: TierStandard, DailyLimit: 30, Description: "Experimental DeepSeek V3.2"},
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: "openai", Tier: TierBasic, DailyLimit: 200, Description: "Lightweight GPT-4o"},
	{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Provider: "openai", Tier: TierBasic, DailyLimit: 200, Description: "Classic GPT-3.5"},
	{ID: "gpt-4.1-mini", Name: "GPT-4.1 Mini", Provider: "openai", Tier: TierBasic, DailyLimit: 200, Description: "Lightweight GPT-4.1"},
	{ID: "gpt-4.1-nano", Name: "GPT-4.1 Nano", Provider: "openai", Tier: TierBasic, DailyLimit: 200, Description: "Ultra light GPT-4.1"},
	{ID: "gpt-5-mini", Name: "GPT-5 Mini", Provider: "openai", Tier: TierBasic, DailyLimit: 200, Description: "Lightweight GPT-5"},
	{ID: "gpt-5-nano", Name: "GPT-5 Nano", Provider: "openai", Tier: TierBasic, DailyLimit: 200, Description: "Ultra light GPT-5"},
}

// FindModel looks up a catalog entry by id.
func FindModel(id string) (ModelInfo, bool) {
	for _, m := range Models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}
