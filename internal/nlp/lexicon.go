package nlp

import (
	"context"
	"strings"

	"github.com/godilite/ticket-triage/internal/service"
)

var defaultPositiveWords = []string{
	"good", "great", "excellent", "amazing", "awesome", "love", "loved", "like",
	"happy", "pleased", "glad", "thanks", "thank", "appreciate", "helpful",
	"wonderful", "fantastic", "perfect", "works", "working", "resolved", "fixed",
	"smooth", "easy", "satisfied", "recommend", "nice", "best",
}

var defaultNegativeWords = []string{
	"bad", "terrible", "awful", "horrible", "hate", "angry", "frustrated",
	"frustrating", "disappointed", "disappointing", "unacceptable", "broken",
	"down", "crash", "crashes", "crashing", "error", "errors", "bug", "bugs",
	"fail", "failed", "failing", "failure", "problem", "issue", "wrong", "slow",
	"worst", "useless", "annoying", "upset", "lost", "stuck", "urgent", "refund",
	"charged", "overcharged", "cancel", "complaint", "poor", "unhappy",
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "don't": true, "doesn't": true,
	"didn't": true, "isn't": true, "wasn't": true, "can't": true, "cannot": true,
	"won't": true, "aren't": true, "hardly": true,
}

// Lexicon is a word-list sentiment analyzer. A negator immediately before a
// sentiment word flips its polarity.
type Lexicon struct {
	positive map[string]bool
	negative map[string]bool
}

type LexiconOption func(*Lexicon)

// WithWords adds words to the positive and negative lists.
func WithWords(positive, negative []string) LexiconOption {
	return func(l *Lexicon) {
		for _, w := range positive {
			l.positive[strings.ToLower(w)] = true
		}
		for _, w := range negative {
			l.negative[strings.ToLower(w)] = true
		}
	}
}

func NewLexicon(opts ...LexiconOption) *Lexicon {
	l := &Lexicon{
		positive: toSet(defaultPositiveWords),
		negative: toSet(defaultNegativeWords),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AnalyzeSentiment labels text by the balance of positive and negative hits.
// No hits or a tie is neutral with confidence 0.5.
func (l *Lexicon) AnalyzeSentiment(ctx context.Context, text string) (service.SentimentResult, error) {
	if err := ctx.Err(); err != nil {
		return service.SentimentResult{}, err
	}

	pos, neg := l.count(text)
	if pos == neg {
		return service.SentimentResult{
			Sentiment:  service.SentimentNeutral,
			Confidence: 0.5,
			Scores: map[service.Sentiment]float64{
				service.SentimentPositive: 0.25,
				service.SentimentNeutral:  0.5,
				service.SentimentNegative: 0.25,
			},
		}, nil
	}

	total := float64(pos + neg)
	diff := float64(pos - neg)
	if diff < 0 {
		diff = -diff
	}
	confidence := min(0.95, 0.5+0.5*diff/total)

	res := service.SentimentResult{Confidence: confidence}
	if pos > neg {
		res.Sentiment = service.SentimentPositive
		res.Scores = map[service.Sentiment]float64{
			service.SentimentPositive: confidence,
			service.SentimentNeutral:  0,
			service.SentimentNegative: 1 - confidence,
		}
	} else {
		res.Sentiment = service.SentimentNegative
		res.Scores = map[service.Sentiment]float64{
			service.SentimentPositive: 1 - confidence,
			service.SentimentNeutral:  0,
			service.SentimentNegative: confidence,
		}
	}
	return res, nil
}

func (l *Lexicon) count(text string) (pos, neg int) {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r == '\'' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
	for i, tok := range tokens {
		var polarity int
		switch {
		case l.positive[tok]:
			polarity = 1
		case l.negative[tok]:
			polarity = -1
		default:
			continue
		}
		if i > 0 && negators[tokens[i-1]] {
			polarity = -polarity
		}
		if polarity > 0 {
			pos++
		} else {
			neg++
		}
	}
	return pos, neg
}

func toSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
