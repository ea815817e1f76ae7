// Package catalog holds the static gear catalog and the keyword matcher
// behind the /buy command and post-reply suggestions. Matching is
// deliberately simple: rank items by how many of their tags appear in
// the user's text.
package catalog

import (
	"sort"
	"strings"
)

// Item is one recommendable product.
type Item struct {
	Title string
	URL   string
	Tags  []string // keywords matched against user text
	Notes string   // optional blurb
}

// Catalog is a read-only item list with scenario presets.
type Catalog struct {
	items []Item
}

// New builds a catalog over the given items.
func New(items []Item) *Catalog {
	return &Catalog{items: items}
}

// Default returns the built-in preparedness gear catalog.
func Default() *Catalog {
	return New([]Item{
		{
			Title: "Survival Vegetable Seeds Kit (35 varieties, Non-GMO Heirloom)",
			URL:   "https://amzn.to/4nOGOUw",
			Tags:  []string{"seed", "garden", "gardening", "food", "grow", "homestead"},
			Notes: "Long-term food security; store cool/dry.",
		},
		{
			Title: "NOAA/Solar/Crank Emergency Weather Radio (5000mAh, flashlight, charger)",
			URL:   "https://amzn.to/4714QVe",
			Tags:  []string{"radio", "noaa", "crank", "weather", "blackout", "storm", "hurricane", "tornado", "power", "outage", "emergency"},
			Notes: "Weather alerts + phone charging during outages.",
		},
		{
			Title: `6" Israeli-Style Emergency Bandage (5 pack)`,
			URL:   "https://amzn.to/3IIbl7t",
			Tags:  []string{"bandage", "trauma", "first aid", "ifak", "wound", "bleeding", "tourniquet", "medical"},
			Notes: "Compression bandage for serious bleeding.",
		},
		{
			Title: "Straw Water Filter (5 pack) – personal emergency water purifier",
			URL:   "https://amzn.to/3J3wkS4",
			Tags:  []string{"water", "filter", "purifier", "drink", "hydration", "camping", "hiking", "boil", "contamination"},
			Notes: "Compact filtration for on-the-go water.",
		},
		{
			Title: "13-in-1 Survival Multitool Hammer",
			URL:   "https://amzn.to/42Gwh5w",
			Tags:  []string{"multitool", "tool", "hammer", "pliers", "knife", "camping", "repair", "kit"},
			Notes: "Handy do-everything tool for kits.",
		},
		{
			Title: `Emergency Fire Blanket 40"x40"`,
			URL:   "https://amzn.to/4mZ4ww3",
			Tags:  []string{"fire", "blanket", "kitchen", "grease", "electrical", "safety"},
			Notes: "Smothers small kitchen/electrical fires fast.",
		},
	})
}

// FindMatches ranks items by tag-overlap count against the user text and
// returns at most max of them, best first. Ties keep catalog order.
func (c *Catalog) FindMatches(userText string, max int) []Item {
	if max <= 0 {
		return nil
	}
	text := strings.ToLower(userText)

	type scored struct {
		idx  int
		hits int
	}
	var ranked []scored
	for i, item := range c.items {
		hits := 0
		for _, tag := range item.Tags {
			if strings.Contains(text, tag) {
				hits++
			}
		}
		if hits > 0 {
			ranked = append(ranked, scored{idx: i, hits: hits})
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].hits > ranked[b].hits })

	if len(ranked) > max {
		ranked = ranked[:max]
	}
	out := make([]Item, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, c.items[s.idx])
	}
	return out
}

// PresetForScenario returns a curated bundle when the text names a known
// scenario, or nil.
func (c *Catalog) PresetForScenario(scenario string) []Item {
	sc := strings.ToLower(scenario)
	switch {
	case containsAny(sc, "blackout", "power", "outage"):
		return []Item{c.items[1], c.items[3], c.items[5]} // radio, water filter, fire blanket
	case containsAny(sc, "first aid", "trauma", "bleeding", "ifak"):
		return []Item{c.items[2], c.items[4]}
	case containsAny(sc, "garden", "food", "seed"):
		return []Item{c.items[0]}
	}
	return nil
}

// Suggest merges keyword matches with scenario presets, deduplicated by
// URL in ranking order, capped at max items.
func (c *Catalog) Suggest(userText string, max int) []Item {
	if max <= 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var out []Item
	for _, item := range append(c.FindMatches(userText, max), c.PresetForScenario(userText)...) {
		if _, dup := seen[item.URL]; dup {
			continue
		}
		seen[item.URL] = struct{}{}
		out = append(out, item)
		if len(out) == max {
			break
		}
	}
	return out
}

func containsAny(text string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
