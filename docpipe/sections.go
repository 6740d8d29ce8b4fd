package docpipe

import (
	"regexp"
	"sort"
)

// Section detection constants (defaults for DetectorConfig).
const (
	// DefaultHeadingLead is how far a span extends before its heading
	// match, to keep lead-in context.
	DefaultHeadingLead = 50

	// DefaultSpanCap bounds a section when no later heading closes it.
	DefaultSpanCap = 3000

	// DefaultMinSectionLength discards spans too short to carry content.
	DefaultMinSectionLength = 100

	// DefaultOverlapTolerance is how many characters two adjacent spans
	// may share before the later one is dropped.
	DefaultOverlapTolerance = 200
)

// DetectorConfig overrides the section detection constants. Zero values
// fall back to the defaults above.
type DetectorConfig struct {
	HeadingLead      int `json:"heading_lead" yaml:"heading_lead"`
	SpanCap          int `json:"span_cap" yaml:"span_cap"`
	MinSectionLength int `json:"min_section_length" yaml:"min_section_length"`
	OverlapTolerance int `json:"overlap_tolerance" yaml:"overlap_tolerance"`
}

func (c *DetectorConfig) defaults() {
	if c.HeadingLead <= 0 {
		c.HeadingLead = DefaultHeadingLead
	}
	if c.SpanCap <= 0 {
		c.SpanCap = DefaultSpanCap
	}
	if c.MinSectionLength <= 0 {
		c.MinSectionLength = DefaultMinSectionLength
	}
	if c.OverlapTolerance <= 0 {
		c.OverlapTolerance = DefaultOverlapTolerance
	}
}

// patternFamily groups the heading regexes that identify one IEP section
// type. Families are ranked: when two headings claim the same offset the
// lower rank wins.
type patternFamily struct {
	tag      SectionTag
	patterns []*regexp.Regexp
}

// sectionCatalogue is compiled once at init and never mutated. The heading
// vocabulary follows IDEA terminology as it appears in district-generated
// IEP paperwork; all matching is case-insensitive.
var sectionCatalogue = []patternFamily{
	{TagPresentLevels, compileAll(
		`PRESENT\s+LEVELS?\s+(OF\s+)?(ACADEMIC\s+ACHIEVEMENT|PERFORMANCE)`,
		`PLAAFP`,
		`SUMMARY\s+OF\s+PRESENT\s+LEVEL`,
	)},
	{TagGoals, compileAll(
		`ANNUAL\s+GOALS?`,
		`MEASURABLE\s+(ANNUAL\s+)?GOALS?`,
		`IEP\s+GOALS?`,
		`SHORT[- ]TERM\s+OBJECTIVES?`,
	)},
	{TagServices, compileAll(
		`SPECIAL\s+EDUCATION.*?SERVICES?`,
		`SPECIALLY\s+DESIGNED\s+INSTRUCTION`,
		`RELATED\s+SERVICES?`,
		`SUPPLEMENTARY\s+AIDS`,
	)},
	{TagAccommodations, compileAll(
		`TESTING\s+ACCOMMODATIONS?`,
		`ACCOMMODATIONS?`,
		`MODIFICATIONS?`,
	)},
	{TagLRE, compileAll(
		`LEAST\s+RESTRICTIVE\s+ENVIRONMENT`,
		`\bLRE\b`,
		`PLACEMENT\s+(DECISION|DETERMINATION)`,
		`EDUCATIONAL\s+PLACEMENT`,
	)},
	{TagTransition, compileAll(
		`TRANSITION\s+(PLAN|GOALS?|SERVICES?)`,
		`POST[- ]?SECONDARY\s+GOALS?`,
		`COORDINATED\s+ACTIVIT`,
	)},
	{TagESY, compileAll(
		`EXTENDED\s+SCHOOL\s+YEAR`,
		`\bESY\b`,
	)},
	{TagAssessment, compileAll(
		`STATE.*?ASSESSMENT`,
		`TESTING\s+(PARTICIPATION|PROGRAM)`,
	)},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// headingMatch is one heading occurrence before span resolution.
type headingMatch struct {
	offset int
	rank   int
	tag    SectionTag
}

// DetectSections locates tagged IEP sections in normalized text. Untagged
// spans fill the gaps so the returned slice covers the whole document.
// Detection is deterministic: equal input yields equal output.
func DetectSections(text string, cfg DetectorConfig) []Section {
	cfg.defaults()
	if text == "" {
		return nil
	}

	var matches []headingMatch
	for rank, fam := range sectionCatalogue {
		for _, re := range fam.patterns {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				matches = append(matches, headingMatch{offset: loc[0], rank: rank, tag: fam.tag})
			}
		}
	}
	if len(matches) == 0 {
		return []Section{{Tag: TagUntagged, Start: 0, End: len(text), Text: text}}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].offset != matches[j].offset {
			return matches[i].offset < matches[j].offset
		}
		return matches[i].rank < matches[j].rank
	})

	// A span runs from just before its heading to the next heading of any
	// family, capped at SpanCap.
	var spans []Section
	for i, m := range matches {
		start := m.offset - cfg.HeadingLead
		if start < 0 {
			start = 0
		}
		end := m.offset + cfg.SpanCap
		for j := i + 1; j < len(matches); j++ {
			if matches[j].offset > m.offset {
				if matches[j].offset < end {
					end = matches[j].offset
				}
				break
			}
		}
		if end > len(text) {
			end = len(text)
		}
		if end-start < cfg.MinSectionLength {
			continue
		}
		spans = append(spans, Section{Tag: m.tag, Start: start, End: end})
	}

	// First-found wins: a span overlapping an accepted one by more than
	// the tolerance is dropped.
	var kept []Section
	for _, s := range spans {
		ok := true
		for _, k := range kept {
			if overlap(k, s) > cfg.OverlapTolerance {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, s)
		}
	}

	// Fill gaps with Untagged so every byte belongs to a section.
	var out []Section
	cursor := 0
	for _, s := range kept {
		if s.Start > cursor {
			out = append(out, Section{Tag: TagUntagged, Start: cursor, End: s.Start})
		}
		out = append(out, s)
		if s.End > cursor {
			cursor = s.End
		}
	}
	if cursor < len(text) {
		out = append(out, Section{Tag: TagUntagged, Start: cursor, End: len(text)})
	}

	for i := range out {
		out[i].Text = text[out[i].Start:out[i].End]
	}
	return out
}

func overlap(a, b Section) int {
	lo := a.Start
	if b.Start > lo {
		lo = b.Start
	}
	hi := a.End
	if b.End < hi {
		hi = b.End
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}
