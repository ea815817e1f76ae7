package gate

import "strings"

// NudgeText is shown when the scope check rejects a request.
func NudgeText() string {
	return "I'm here to help with emergency *preparedness*.\n\n" +
		"Try something like:\n" +
		"• *3-day power outage for a family of 4—what do we need?*\n" +
		"• *What should go in a basic go-bag?*\n" +
		"• *How much water should I store for two adults and a dog?*\n\n" +
		"You can also send /topics to see examples, or /buy radio for quick links."
}

// RedirectText is shown when the redirect check steers an accepted
// request away from the model.
func RedirectText() string {
	return "I can't help with that one. I stick to preparedness and safety: " +
		"storing supplies, planning for outages and storms, first aid basics, " +
		"and handling gear safely and legally.\n\n" +
		"If you're asking about safe storage or lawful handling, say so and " +
		"I'll do my best — or send /topics for examples."
}

// TopicExample pairs a scenario title with a sample prompt.
type TopicExample struct {
	Title   string
	Example string
}

// TopicExamples lists the scenarios surfaced by /topics.
var TopicExamples = []TopicExample{
	{"Blackout (72 hours)", "3-day power outage, two adults + one child, budget $150"},
	{"Go-bag (24–72h)", "What goes in a basic go-bag for two adults?"},
	{"Water planning", "How much water should I store for 3 people and a dog?"},
	{"First aid basics", "What should I keep for bleeding control at home?"},
	{"Storm prep", "Storm incoming this weekend—what should I do today?"},
	{"Communications", "How do I get NOAA weather alerts without internet?"},
}

// TopicsText renders the /topics listing.
func TopicsText() string {
	var b strings.Builder
	b.WriteString("*Common scenarios I can help with:*")
	for _, t := range TopicExamples {
		b.WriteString("\n• *")
		b.WriteString(t.Title)
		b.WriteString("*: _")
		b.WriteString(t.Example)
		b.WriteString("_")
	}
	b.WriteString("\n\nTip: try /buy radio or /buy first aid for quick links.")
	return b.String()
}
