package clean

import (
	"fmt"
	"strings"
)

// Stats captures metrics about what a cleaning pass did.
type Stats struct {
	InputBytes  int `json:"input_bytes"`
	OutputBytes int `json:"output_bytes"`

	// ElementsRemoved counts removals by tag name.
	ElementsRemoved map[string]int `json:"elements_removed"`

	// SelectorMatches counts removals by noise selector.
	SelectorMatches map[string]int `json:"selector_matches"`

	AttributesRemoved    int `json:"attributes_removed"`
	CommentRemovals      int `json:"comment_removals"`
	BoilerplateRemovals  int `json:"boilerplate_removals"`
	EmptyElementRemovals int `json:"empty_element_removals"`
}

// NewStats creates a Stats with initialized maps.
func NewStats() *Stats {
	return &Stats{
		ElementsRemoved: make(map[string]int),
		SelectorMatches: make(map[string]int),
	}
}

// RecordRemoval records that an element was removed.
func (s *Stats) RecordRemoval(tag string) {
	s.ElementsRemoved[strings.ToLower(tag)]++
}

// RecordSelectorMatch records that a noise selector matched.
func (s *Stats) RecordSelectorMatch(selector string, count int) {
	s.SelectorMatches[selector] += count
}

// TotalElementsRemoved returns the sum of all removed elements.
func (s *Stats) TotalElementsRemoved() int {
	total := 0
	for _, count := range s.ElementsRemoved {
		total += count
	}
	return total
}

// ReductionPercent returns the percentage reduction in size.
func (s *Stats) ReductionPercent() float64 {
	if s.InputBytes == 0 {
		return 0
	}
	return float64(s.InputBytes-s.OutputBytes) / float64(s.InputBytes) * 100
}

// String returns a human-readable summary.
func (s *Stats) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Size: %d -> %d bytes (%.1f%% reduction)\n",
		s.InputBytes, s.OutputBytes, s.ReductionPercent()))
	sb.WriteString(fmt.Sprintf("Elements removed: %d\n", s.TotalElementsRemoved()))
	if s.AttributesRemoved > 0 {
		sb.WriteString(fmt.Sprintf("Attributes removed: %d\n", s.AttributesRemoved))
	}
	if s.BoilerplateRemovals > 0 {
		sb.WriteString(fmt.Sprintf("Boilerplate removals: %d\n", s.BoilerplateRemovals))
	}
	if s.EmptyElementRemovals > 0 {
		sb.WriteString(fmt.Sprintf("Empty element removals: %d\n", s.EmptyElementRemovals))
	}
	return sb.String()
}
