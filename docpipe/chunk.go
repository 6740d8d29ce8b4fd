package docpipe

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

// TokenEstimator converts a text fragment to an approximate token count.
// Swappable so callers can plug a real tokenizer without touching the
// chunking logic.
type TokenEstimator func(text string) int

// EstimateTokens is the default estimator: one token per four characters,
// rounded up.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

var sentenceEndRe = regexp.MustCompile(`[.!?]+`)

// SplitSentences breaks text on terminal punctuation runs. Terminators
// are consumed by the split; the chunker re-joins sentences with ". ".
// Empty fragments are dropped.
func SplitSentences(text string) []string {
	var out []string
	for _, part := range sentenceEndRe.Split(text, -1) {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ChunkText greedily packs sentences into chunks under the token budget.
// The budget is soft: a single sentence over budget becomes its own chunk.
// Text without sentence boundaries comes back as one chunk.
func ChunkText(text string, budget int, estimate TokenEstimator) []string {
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	if estimate == nil {
		estimate = EstimateTokens
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	for _, s := range sentences {
		if cur.Len() == 0 {
			cur.WriteString(s)
			continue
		}
		candidate := cur.String() + ". " + s
		if estimate(candidate) > budget {
			chunks = append(chunks, cur.String())
			cur.Reset()
			cur.WriteString(s)
			continue
		}
		cur.Reset()
		cur.WriteString(candidate)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// BuildChunks runs the chunker over each detected section and decorates
// the output with tags, hashes and quality scores. PageIndex stays 0:
// byte-level extraction carries no page coordinates.
func BuildChunks(sections []Section, budget int, estimate TokenEstimator) []Chunk {
	if estimate == nil {
		estimate = EstimateTokens
	}
	var out []Chunk
	for _, sec := range sections {
		for _, content := range ChunkText(sec.Text, budget, estimate) {
			sum := md5.Sum([]byte(content))
			out = append(out, Chunk{
				Content:      content,
				SectionTag:   sec.Tag,
				PageIndex:    0,
				ChunkHash:    hex.EncodeToString(sum[:]),
				QualityScore: Score(content),
				Tokens:       estimate(content),
			})
		}
	}
	return out
}
