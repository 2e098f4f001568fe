package nlp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	maxSeqLen      = 256
	maxWordRunes   = 100
	subwordPrefix  = "##"
	unknownToken   = "[UNK]"
	classToken     = "[CLS]"
	separatorToken = "[SEP]"
	paddingToken   = "[PAD]"
)

// wordPiece is an uncased BERT WordPiece tokenizer. Token IDs are line
// numbers in vocab.txt.
type wordPiece struct {
	ids map[string]int64
	unk int64
	cls int64
	sep int64
	pad int64
}

func loadWordPiece(path string) (*wordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()
	return readWordPiece(f)
}

func readWordPiece(r io.Reader) (*wordPiece, error) {
	ids := make(map[string]int64, 30522)
	scanner := bufio.NewScanner(r)
	var n int64
	for scanner.Scan() {
		ids[strings.TrimRight(scanner.Text(), "\r")] = n
		n++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("vocab: empty")
	}

	wp := &wordPiece{ids: ids}
	for tok, dest := range map[string]*int64{
		unknownToken:   &wp.unk,
		classToken:     &wp.cls,
		separatorToken: &wp.sep,
		paddingToken:   &wp.pad,
	} {
		id, ok := ids[tok]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special token %s", tok)
		}
		*dest = id
	}
	return wp, nil
}

// encode returns input IDs and attention mask for text, wrapped in [CLS] and
// [SEP] and truncated to maxSeqLen. No padding is added.
func (wp *wordPiece) encode(text string) (inputIDs, attentionMask []int64) {
	var pieces []int64
	for _, word := range basicTokens(text) {
		pieces = append(pieces, wp.split(word)...)
	}
	if len(pieces) > maxSeqLen-2 {
		pieces = pieces[:maxSeqLen-2]
	}

	inputIDs = make([]int64, 0, len(pieces)+2)
	inputIDs = append(inputIDs, wp.cls)
	inputIDs = append(inputIDs, pieces...)
	inputIDs = append(inputIDs, wp.sep)

	attentionMask = make([]int64, len(inputIDs))
	for i := range attentionMask {
		attentionMask[i] = 1
	}
	return inputIDs, attentionMask
}

// split greedily matches the longest vocabulary prefix. A word that cannot be
// fully decomposed maps to [UNK].
func (wp *wordPiece) split(word string) []int64 {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []int64{wp.unk}
	}

	var out []int64
	for start := 0; start < len(runes); {
		end := len(runes)
		var id int64 = -1
		for ; end > start; end-- {
			sub := string(runes[start:end])
			if start > 0 {
				sub = subwordPrefix + sub
			}
			if v, ok := wp.ids[sub]; ok {
				id = v
				break
			}
		}
		if id < 0 {
			return []int64{wp.unk}
		}
		out = append(out, id)
		start = end
	}
	return out
}

// basicTokens lowercases, strips accents and splits on whitespace and
// punctuation, keeping punctuation marks as tokens.
func basicTokens(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(strings.ToLower(text)) {
		switch {
		case r == 0 || r == unicode.ReplacementChar || unicode.Is(unicode.Mn, r):
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.IsControl(r):
		case isBertPunct(r):
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Fields(b.String())
}

func isBertPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}
