package gate

// RuleSet holds the static matching tables. Phrase tables match as
// substrings of the normalized text; term tables match against the token
// set. A RuleSet is read-only after construction and safe to share
// across sessions.
type RuleSet struct {
	// AcceptPhrases are literal multi-word phrases that put a request in
	// scope regardless of individual tokens.
	AcceptPhrases []string

	// CoreTokens are single words that put a request in scope.
	CoreTokens []string

	// SensitiveTopics are in-domain but safety-laden terms. They accept a
	// request only alongside a SafetyQualifier, and redirect it without one.
	SensitiveTopics []string

	// SafetyQualifiers signal the user is asking about safe/lawful
	// handling rather than misuse.
	SafetyQualifiers []string

	// HardBlockPhrases always redirect; no qualifier rescues them.
	HardBlockPhrases []string

	// RiskyTerms redirect unless a SafetyQualifier is present.
	RiskyTerms []string
}

// DefaultRuleSet returns the preparedness-domain tables.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		AcceptPhrases: []string{
			"first aid", "go bag", "go-bag", "bug out", "power bank",
			"72-hour", "72 hour", "water storage", "emergency kit",
			"weather alert", "storm prep",
		},
		CoreTokens: []string{
			// hazards & scenarios
			"blackout", "power", "outage", "storm", "hurricane", "tornado",
			"earthquake", "wildfire", "evacuate", "evacuation", "shelter",
			"blizzard", "heatwave", "flood", "disaster", "emergency",
			// essentials & gear
			"water", "food", "lighting", "lantern", "battery", "batteries",
			"radio", "bandage", "trauma", "ifak", "generator", "charger",
			"filter", "purifier", "noaa", "flashlight",
			// planning
			"gobag", "checklist", "kit", "preparedness", "survival",
			"responder",
		},
		SensitiveTopics: []string{
			"weapon", "weapons", "gun", "guns", "firearm", "firearms",
			"ammo", "ammunition", "knife", "knives", "machete",
			"medication", "medications", "antibiotics", "painkillers",
			"insulin", "iodine", "radiation", "fallout",
			"gasoline", "fuel", "propane", "chainsaw",
		},
		SafetyQualifiers: []string{
			"safe", "safely", "safety", "legal", "legally", "license",
			"licensed", "storage", "store", "storing", "stored",
			"training", "trained", "secure", "securely", "locked",
			"prescription", "prescribed", "responsibly",
		},
		HardBlockPhrases: []string{
			"make a bomb", "build a bomb", "make explosives",
			"homemade explosive", "homemade explosives", "make a weapon",
			"build a gun", "3d print a gun", "print a gun",
			"make napalm", "make thermite", "poison someone",
			"hurt someone",
		},
		RiskyTerms: []string{
			"explosive", "explosives", "detonator", "dynamite",
			"gunpowder", "thermite", "napalm", "silencer", "suppressor",
			"grenade", "landmine", "molotov", "tannerite",
		},
	}
}
