package docpipe

import (
	"strings"
	"testing"
)

// iepFixture builds a plausible normalized IEP body with the given
// headings, each followed by enough filler to clear the minimum span.
func iepFixture(headings ...string) string {
	var sb strings.Builder
	sb.WriteString("Student: Jordan A. Date of meeting: March 3. ")
	for _, h := range headings {
		sb.WriteString(h)
		sb.WriteString(" ")
		sb.WriteString(strings.Repeat("The team reviewed current data and progress reports in this area. ", 4))
	}
	return sb.String()
}

func TestDetectSections_Tags(t *testing.T) {
	// WHAT: Each heading family resolves to its tag.
	// WHY: Downstream retrieval filters on these exact tag values.
	tests := []struct {
		heading string
		tag     SectionTag
	}{
		{"PRESENT LEVELS OF ACADEMIC ACHIEVEMENT", TagPresentLevels},
		{"PLAAFP", TagPresentLevels},
		{"Measurable Annual Goals", TagGoals},
		{"Short-Term Objectives", TagGoals},
		{"Related Services", TagServices},
		{"Specially Designed Instruction", TagServices},
		{"Testing Accommodations", TagAccommodations},
		{"Least Restrictive Environment", TagLRE},
		{"Transition Plan", TagTransition},
		{"Extended School Year", TagESY},
		{"State Assessment", TagAssessment},
	}
	for _, tt := range tests {
		text := iepFixture(tt.heading)
		sections := DetectSections(text, DetectorConfig{})
		found := false
		for _, s := range sections {
			if s.Tag == tt.tag {
				found = true
			}
		}
		if !found {
			t.Errorf("heading %q: tag %s not found in %v", tt.heading, tt.tag, tags(sections))
		}
	}
}

func TestDetectSections_CaseInsensitive(t *testing.T) {
	lower := iepFixture("annual goals")
	upper := iepFixture("ANNUAL GOALS")
	a := DetectSections(lower, DetectorConfig{})
	b := DetectSections(upper, DetectorConfig{})
	if len(a) != len(b) {
		t.Fatalf("case sensitivity changed section count: %d vs %d", len(a), len(b))
	}
}

func TestDetectSections_NoHeadings(t *testing.T) {
	// WHAT: Text without IEP headings is one Untagged section covering it all.
	text := "A letter from the district about bus schedules and lunch menus."
	sections := DetectSections(text, DetectorConfig{})
	if len(sections) != 1 || sections[0].Tag != TagUntagged {
		t.Fatalf("got %v", tags(sections))
	}
	if sections[0].Start != 0 || sections[0].End != len(text) {
		t.Fatalf("untagged span should cover the document: [%d,%d)", sections[0].Start, sections[0].End)
	}
}

func TestDetectSections_Empty(t *testing.T) {
	if got := DetectSections("", DetectorConfig{}); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
}

func TestDetectSections_SpanBoundaries(t *testing.T) {
	// WHAT: A span starts HeadingLead before its heading and ends at the
	// next heading of any family.
	pad := strings.Repeat("intro text before any heading. ", 10)
	goals := "ANNUAL GOALS " + strings.Repeat("Jordan will decode grade-level text with 80 percent accuracy. ", 4)
	services := "RELATED SERVICES " + strings.Repeat("Speech therapy twice weekly for thirty minutes. ", 4)
	text := pad + goals + services

	sections := DetectSections(text, DetectorConfig{})

	var goalSec *Section
	for i := range sections {
		if sections[i].Tag == TagGoals {
			goalSec = &sections[i]
		}
	}
	if goalSec == nil {
		t.Fatalf("no Goals section: %v", tags(sections))
	}
	headingAt := strings.Index(text, "ANNUAL GOALS")
	if goalSec.Start != headingAt-DefaultHeadingLead {
		t.Errorf("Goals start = %d, want %d", goalSec.Start, headingAt-DefaultHeadingLead)
	}
	nextAt := strings.Index(text, "RELATED SERVICES")
	if goalSec.End != nextAt {
		t.Errorf("Goals end = %d, want next heading at %d", goalSec.End, nextAt)
	}
}

func TestDetectSections_SpanCap(t *testing.T) {
	// WHAT: Without a following heading, a span caps at SpanCap.
	text := "ANNUAL GOALS " + strings.Repeat("Jordan will master multi-step word problems with support. ", 200)
	sections := DetectSections(text, DetectorConfig{})
	for _, s := range sections {
		if s.Tag == TagGoals && s.End-s.Start > DefaultSpanCap+DefaultHeadingLead {
			t.Errorf("Goals span too long: %d", s.End-s.Start)
		}
	}
}

func TestDetectSections_MinLength(t *testing.T) {
	// WHAT: A heading with almost no content under it is discarded.
	text := "ANNUAL GOALS end."
	sections := DetectSections(text, DetectorConfig{})
	for _, s := range sections {
		if s.Tag == TagGoals {
			t.Errorf("short span should be discarded, got [%d,%d)", s.Start, s.End)
		}
	}
}

func TestDetectSections_Coverage(t *testing.T) {
	// WHAT: Tagged and untagged spans together cover every byte once
	// (overlaps bounded by the tolerance).
	// WHY: Chunking consumes sections; gaps would silently drop text.
	text := iepFixture("PRESENT LEVELS OF PERFORMANCE", "ANNUAL GOALS", "RELATED SERVICES", "ACCOMMODATIONS")
	sections := DetectSections(text, DetectorConfig{})
	if len(sections) == 0 {
		t.Fatal("no sections")
	}
	if sections[0].Start != 0 {
		t.Errorf("first section starts at %d, want 0", sections[0].Start)
	}
	if last := sections[len(sections)-1]; last.End != len(text) {
		t.Errorf("last section ends at %d, want %d", last.End, len(text))
	}
	for i := 1; i < len(sections); i++ {
		gap := sections[i].Start - sections[i-1].End
		if gap > 0 {
			t.Errorf("gap of %d bytes between sections %d and %d", gap, i-1, i)
		}
		if -gap > DefaultOverlapTolerance {
			t.Errorf("overlap of %d bytes exceeds tolerance", -gap)
		}
	}
}

func TestDetectSections_Deterministic(t *testing.T) {
	// WHAT: Same text, same output, across repeated runs.
	text := iepFixture("PLAAFP", "MEASURABLE ANNUAL GOALS", "EXTENDED SCHOOL YEAR", "LEAST RESTRICTIVE ENVIRONMENT")
	first := DetectSections(text, DetectorConfig{})
	for run := 0; run < 5; run++ {
		again := DetectSections(text, DetectorConfig{})
		if len(again) != len(first) {
			t.Fatalf("run %d: %d sections, want %d", run, len(again), len(first))
		}
		for i := range again {
			if again[i] != first[i] {
				t.Fatalf("run %d: section %d differs: %+v vs %+v", run, i, again[i], first[i])
			}
		}
	}
}

func TestDetectSections_ConfigOverride(t *testing.T) {
	// WHAT: Custom detector constants are honored.
	text := "ANNUAL GOALS short body here."
	strict := DetectSections(text, DetectorConfig{MinSectionLength: 500})
	for _, s := range strict {
		if s.Tag == TagGoals {
			t.Error("MinSectionLength override ignored")
		}
	}
	loose := DetectSections(text, DetectorConfig{MinSectionLength: 5})
	found := false
	for _, s := range loose {
		if s.Tag == TagGoals {
			found = true
		}
	}
	if !found {
		t.Error("expected Goals section with low MinSectionLength")
	}
}

func tags(sections []Section) []SectionTag {
	out := make([]SectionTag, len(sections))
	for i, s := range sections {
		out[i] = s.Tag
	}
	return out
}
