// Package category holds the fixed set of event categories and their display
// metadata. Categories colour and group events; they never affect layout.
package category

import "strings"

// Descriptor is the presentational metadata of one category.
type Descriptor struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`

	// Visual roles, as CSS hex colours.
	Fill      string `json:"fill"`
	LightFill string `json:"light_fill"`
	Text      string `json:"text"`
	Border    string `json:"border"`
}

// DefaultKey is the catch-all category for missing or unknown keys.
const DefaultKey = "general"

// registry is in declaration order; that order breaks ties wherever the
// calendar must pick one category over another.
var registry = []Descriptor{
	{Key: "academic", Name: "Academic", ShortName: "ACAD", Fill: "#2563eb", LightFill: "#dbeafe", Text: "#1e3a8a", Border: "#1d4ed8"},
	{Key: "exam", Name: "Examinations", ShortName: "EXAM", Fill: "#dc2626", LightFill: "#fee2e2", Text: "#7f1d1d", Border: "#b91c1c"},
	{Key: "deadline", Name: "Deadlines", ShortName: "DUE", Fill: "#ea580c", LightFill: "#ffedd5", Text: "#7c2d12", Border: "#c2410c"},
	{Key: "holiday", Name: "Holidays", ShortName: "HOL", Fill: "#16a34a", LightFill: "#dcfce7", Text: "#14532d", Border: "#15803d"},
	{Key: "seminar", Name: "Seminars & Talks", ShortName: "SEM", Fill: "#7c3aed", LightFill: "#ede9fe", Text: "#4c1d95", Border: "#6d28d9"},
	{Key: "meeting", Name: "Meetings", ShortName: "MTG", Fill: "#0891b2", LightFill: "#cffafe", Text: "#164e63", Border: "#0e7490"},
	{Key: "cultural", Name: "Cultural & Sports", ShortName: "CULT", Fill: "#db2777", LightFill: "#fce7f3", Text: "#831843", Border: "#be185d"},
	{Key: DefaultKey, Name: "General", ShortName: "GEN", Fill: "#6b7280", LightFill: "#f3f4f6", Text: "#1f2937", Border: "#4b5563"},
}

var byKey = func() map[string]int {
	m := make(map[string]int, len(registry))
	for i, d := range registry {
		m[d.Key] = i
	}
	return m
}()

// Lookup returns the descriptor for key. Unknown or empty keys resolve to
// the default descriptor; Lookup never fails.
func Lookup(key string) Descriptor {
	if i, ok := byKey[Normalize(key)]; ok {
		return registry[i]
	}
	return registry[byKey[DefaultKey]]
}

// Normalize maps key onto a registered key, falling back to DefaultKey.
func Normalize(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if _, ok := byKey[k]; ok {
		return k
	}
	return DefaultKey
}

// Match maps a free-form label onto a registered key. Keys, display names
// and short names are all accepted, case-insensitively.
func Match(label string) (string, bool) {
	l := strings.TrimSpace(label)
	if l == "" {
		return "", false
	}
	for _, d := range registry {
		if strings.EqualFold(l, d.Key) || strings.EqualFold(l, d.Name) || strings.EqualFold(l, d.ShortName) {
			return d.Key, true
		}
	}
	return "", false
}

// Default returns the catch-all descriptor.
func Default() Descriptor {
	return registry[byKey[DefaultKey]]
}

// All returns every descriptor in registry order.
func All() []Descriptor {
	out := make([]Descriptor, len(registry))
	copy(out, registry)
	return out
}

// Rank is the registry position of key (after normalization).
func Rank(key string) int {
	return byKey[Normalize(key)]
}

// Predominant returns the key with the highest count. Ties go to the key
// declared first in the registry. An empty or all-zero count map yields
// DefaultKey.
func Predominant(counts map[string]int) string {
	best, bestN := DefaultKey, 0
	for _, d := range registry {
		if n := counts[d.Key]; n > bestN {
			best, bestN = d.Key, n
		}
	}
	return best
}
