package nlp

import (
	"context"
	"testing"

	"github.com/godilite/ticket-triage/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexicon_AnalyzeSentiment(t *testing.T) {
	cases := []struct {
		name       string
		text       string
		sentiment  service.Sentiment
		confidence float64
	}{
		{"all positive", "I love this product, it works great", service.SentimentPositive, 0.95},
		{"negation flips", "This is not good", service.SentimentNegative, 0.95},
		{"not working", "The export is not working", service.SentimentNegative, 0.95},
		{"mixed leans negative", "The app is broken and I am frustrated but support was helpful", service.SentimentNegative, 0.5 + 0.5/3},
		{"no hits", "Please send the invoice", service.SentimentNeutral, 0.5},
		{"tie", "good and bad", service.SentimentNeutral, 0.5},
		{"empty", "", service.SentimentNeutral, 0.5},
	}

	l := NewLexicon()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := l.AnalyzeSentiment(context.Background(), tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.sentiment, got.Sentiment)
			assert.InDelta(t, tc.confidence, got.Confidence, 1e-9)
			assert.InDelta(t, got.Confidence, got.Scores[got.Sentiment], 1e-9)
		})
	}
}

func TestLexicon_WithWords(t *testing.T) {
	l := NewLexicon(WithWords([]string{"Stellar"}, []string{"meh"}))

	got, err := l.AnalyzeSentiment(context.Background(), "stellar release")
	require.NoError(t, err)
	assert.Equal(t, service.SentimentPositive, got.Sentiment)

	got, err = l.AnalyzeSentiment(context.Background(), "meh")
	require.NoError(t, err)
	assert.Equal(t, service.SentimentNegative, got.Sentiment)
}

func TestLexicon_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLexicon().AnalyzeSentiment(ctx, "great")
	assert.ErrorIs(t, err, context.Canceled)
}
