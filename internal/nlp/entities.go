package nlp

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/godilite/ticket-triage/internal/service"
)

const (
	LabelPerson  = "PERSON"
	LabelOrg     = "ORG"
	LabelProduct = "PRODUCT"
	LabelEmail   = "EMAIL"
	LabelMoney   = "MONEY"
	LabelDate    = "DATE"
)

var genericProductNouns = []string{"widget", "app", "software", "service"}

// namePattern matches one to three capitalised words.
const namePattern = `[A-Z][a-z]+(?:[ '-][A-Z][a-z]+){0,2}`

type rule struct {
	label      string
	re         *regexp.Regexp
	group      int
	confidence float64
}

var defaultRules = []rule{
	{LabelEmail, regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`), 0, 0.99},
	{LabelMoney, regexp.MustCompile(`(?:[$€£]\s?\d[\d,]*(?:\.\d{2})?|\d[\d,]*(?:\.\d{2})?\s?(?:USD|EUR|GBP|dollars))`), 0, 0.95},
	{LabelDate, regexp.MustCompile(`\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\.? \d{1,2}(?:st|nd|rd|th)?(?:,? \d{4})?|(?:Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday|yesterday|today|tomorrow))\b`), 0, 0.9},
	{LabelOrg, regexp.MustCompile(`\b((?:[A-Z][A-Za-z0-9&]*\s){0,3}[A-Z][A-Za-z0-9&]*\s(?:Inc|Corp|Corporation|LLC|Ltd|GmbH|Co|Company|Technologies|Solutions|Systems|Labs|Group)\b\.?)`), 1, 0.8},
	{LabelOrg, regexp.MustCompile(`\b(?:work (?:at|for)|from|at|with) (?:the )?((?:[A-Z][a-z]*[A-Z][A-Za-z]*|[A-Z]{2,})(?: [A-Z][A-Za-z]+)?)\b`), 1, 0.6},
	{LabelPerson, regexp.MustCompile(`(?:[Mm]y name is|I am|I'm|This is) (` + namePattern + `)`), 1, 0.85},
	{LabelPerson, regexp.MustCompile(`(?m)(?:Regards|Thanks|Thank you|Best|Cheers|Sincerely|Sent by)[,!.]?\s*\n?\s*-?\s*(` + namePattern + `)\s*$`), 1, 0.8},
	{LabelPerson, regexp.MustCompile(`(?m)^\s*-\s*(` + namePattern + `)\s*$`), 1, 0.7},
	{LabelPerson, regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Prof)\.? (` + namePattern + `)`), 1, 0.85},
	{LabelProduct, regexp.MustCompile(`\b([A-Z][A-Za-z]*-[A-Z0-9][A-Za-z0-9]*|[A-Z][a-z]+[A-Z][A-Za-z]+(?: ?(?:Pro|Plus|Max|\d+))?)\b`), 1, 0.75},
}

// RuleExtractor is a pattern-based named entity extractor. It is safe for
// concurrent use.
type RuleExtractor struct {
	rules   []rule
	catalog []string
}

type ExtractorOption func(*RuleExtractor)

// WithProductCatalog adds known product names, matched case-insensitively on
// word boundaries and labelled PRODUCT.
func WithProductCatalog(products ...string) ExtractorOption {
	return func(e *RuleExtractor) {
		for _, p := range products {
			if p = strings.TrimSpace(p); p != "" {
				e.catalog = append(e.catalog, p)
			}
		}
	}
}

func NewRuleExtractor(opts ...ExtractorOption) *RuleExtractor {
	e := &RuleExtractor{rules: defaultRules}
	for _, opt := range opts {
		opt(e)
	}
	for _, p := range e.catalog {
		e.rules = append(e.rules, rule{
			label:      LabelProduct,
			re:         regexp.MustCompile(`(?i)\b(` + regexp.QuoteMeta(p) + `)\b`),
			group:      1,
			confidence: 0.95,
		})
	}
	return e
}

// ExtractEntities returns non-overlapping entities ordered by position.
func (e *RuleExtractor) ExtractEntities(ctx context.Context, text string) ([]service.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var candidates []service.Entity
	for _, r := range e.rules {
		for _, m := range r.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2*r.group], m[2*r.group+1]
			if start < 0 {
				continue
			}
			span := strings.TrimRight(text[start:end], ". ")
			if span == "" || isStopword(span) {
				continue
			}
			candidates = append(candidates, service.Entity{
				Text:       span,
				Label:      r.label,
				Start:      runeOffset(text, start),
				End:        runeOffset(text, start) + len([]rune(span)),
				Confidence: r.confidence,
			})
		}
	}
	return resolveOverlaps(candidates), nil
}

// ExtractProductMentions returns PRODUCT and ORG entity texts plus generic
// product nouns, de-duplicated in order of first appearance. PERSON entities
// are never product mentions.
func (e *RuleExtractor) ExtractProductMentions(ctx context.Context, text string) ([]string, error) {
	entities, err := e.ExtractEntities(ctx, text)
	if err != nil {
		return nil, err
	}

	type mention struct {
		text  string
		start int
	}
	var mentions []mention
	var covered []service.Entity
	for _, ent := range entities {
		if ent.Label == LabelProduct || ent.Label == LabelOrg {
			mentions = append(mentions, mention{ent.Text, ent.Start})
			covered = append(covered, ent)
		}
	}
	for _, w := range words(text) {
		if within(w.start, covered) {
			continue
		}
		for _, noun := range genericProductNouns {
			if strings.EqualFold(w.text, noun) {
				mentions = append(mentions, mention{w.text, w.start})
			}
		}
	}
	sort.SliceStable(mentions, func(i, j int) bool { return mentions[i].start < mentions[j].start })

	seen := make(map[string]bool, len(mentions))
	out := make([]string, 0, len(mentions))
	for _, m := range mentions {
		if !seen[m.text] {
			seen[m.text] = true
			out = append(out, m.text)
		}
	}
	return out, nil
}

// resolveOverlaps keeps, for overlapping spans, the one that starts first; on
// equal starts the longer span, then the more confident one, wins.
func resolveOverlaps(candidates []service.Entity) []service.Entity {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End-a.Start != b.End-b.Start {
			return a.End-a.Start > b.End-b.Start
		}
		return a.Confidence > b.Confidence
	})

	out := make([]service.Entity, 0, len(candidates))
	lastEnd := -1
	for _, c := range candidates {
		if c.Start < lastEnd {
			continue
		}
		out = append(out, c)
		lastEnd = c.End
	}
	return out
}

func within(offset int, spans []service.Entity) bool {
	for _, e := range spans {
		if offset >= e.Start && offset < e.End {
			return true
		}
	}
	return false
}

var stopwords = map[string]bool{
	"I": true, "Hi": true, "Hello": true, "Dear": true, "Thanks": true, "Thank": true,
	"Please": true, "The": true, "This": true, "Regards": true, "Best": true, "Team": true,
	"Support": true, "Sorry": true, "Cheers": true, "Sincerely": true,
}

func isStopword(s string) bool {
	return stopwords[s]
}

type word struct {
	text  string
	start int
}

var wordRe = regexp.MustCompile(`[A-Za-z]+`)

func words(text string) []word {
	idx := wordRe.FindAllStringIndex(text, -1)
	out := make([]word, len(idx))
	for i, m := range idx {
		out[i] = word{text: text[m[0]:m[1]], start: runeOffset(text, m[0])}
	}
	return out
}

// runeOffset converts a byte offset into a character offset.
func runeOffset(text string, byteOffset int) int {
	return len([]rune(text[:byteOffset]))
}
