package provider

import "strings"

// ModelDescriptor describes a model offered by a provider.
type ModelDescriptor struct {
	ID              string `json:"id" yaml:"id"`
	DisplayName     string `json:"name" yaml:"name"`
	Provider        string `json:"provider" yaml:"provider"`
	ContextWindow   int    `json:"contextWindow" yaml:"context_window"`
	KnowledgeCutoff string `json:"knowledgeCutoff" yaml:"knowledge_cutoff"`
	ImageSupport    bool   `json:"imageSupport" yaml:"image_support"`
	Preferred       bool   `json:"preferred" yaml:"preferred"`
	Deprecated      bool   `json:"deprecated" yaml:"deprecated"`
}

// Match selects model ids. By default any listed substring matches; Exact
// requires equality with one entry and Fold compares case-insensitively.
type Match struct {
	Any   []string `yaml:"any"`
	Exact bool     `yaml:"exact"`
	Fold  bool     `yaml:"fold"`
}

// Matches reports whether id is selected by m.
func (m Match) Matches(id string) bool {
	if m.Fold {
		id = strings.ToLower(id)
	}
	for _, s := range m.Any {
		if m.Fold {
			s = strings.ToLower(s)
		}
		if m.Exact {
			if id == s {
				return true
			}
			continue
		}
		if strings.Contains(id, s) {
			return true
		}
	}
	return false
}

// Rule assigns Value to every id selected by Match.
type Rule[T any] struct {
	Match `yaml:",inline"`
	Value T `yaml:"value"`
}

// firstMatch returns the value of the first rule matching id, or def.
func firstMatch[T any](rules []Rule[T], id string, def T) T {
	for _, r := range rules {
		if r.Matches(id) {
			return r.Value
		}
	}
	return def
}

// CapabilityTable holds the ordered inference rules for one vendor.
// For each field the first matching rule wins.
type CapabilityTable struct {
	ContextWindow          []Rule[int]    `yaml:"context_window"`
	DefaultContextWindow   int            `yaml:"default_context_window"`
	KnowledgeCutoff        []Rule[string] `yaml:"knowledge_cutoff"`
	DefaultKnowledgeCutoff string         `yaml:"default_knowledge_cutoff"`
	ImageSupport           []Rule[bool]   `yaml:"image_support"`
	Preferred              []Rule[bool]   `yaml:"preferred"`
	Deprecated             []Rule[bool]   `yaml:"deprecated"`
}

// Describe infers a descriptor for id using only the table's rules.
func (t CapabilityTable) Describe(vendor, id string) ModelDescriptor {
	def := t.DefaultContextWindow
	if def == 0 {
		def = defaultContextWindow
	}
	cutoff := t.DefaultKnowledgeCutoff
	if cutoff == "" {
		cutoff = defaultKnowledgeCutoff
	}
	return ModelDescriptor{
		ID:              id,
		DisplayName:     id,
		Provider:        vendor,
		ContextWindow:   firstMatch(t.ContextWindow, id, def),
		KnowledgeCutoff: firstMatch(t.KnowledgeCutoff, id, cutoff),
		ImageSupport:    firstMatch(t.ImageSupport, id, false),
		Preferred:       firstMatch(t.Preferred, id, false),
		Deprecated:      firstMatch(t.Deprecated, id, false),
	}
}

// Infer derives capability metadata for a model from its vendor and id.
// Unknown vendors get the generic defaults.
func Infer(vendor, modelID string) ModelDescriptor {
	return TableFor(vendor).Describe(vendor, modelID)
}

// TableFor returns the built-in capability table of a vendor, or an empty
// table for vendors without one.
func TableFor(vendor string) CapabilityTable {
	if v, ok := builtinVendors[vendor]; ok {
		return v.Table
	}
	return CapabilityTable{}
}
