package matcher

import (
	"math"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap/tokenizer"
)

const (
	contentWeight = 0.4
	urlWeight     = 0.6
	phraseBonus   = 0.3

	highThreshold   = 0.7
	mediumThreshold = 0.4
)

// CandidateScore is the score of one page against one query.
type CandidateScore struct {
	ContentScore     float64 `json:"content_score"`
	URLScore         float64 `json:"url_score"`
	CombinedScore    float64 `json:"combined_score"`
	ContentTokenHits int     `json:"content_token_hits"`
	URLTokenHits     int     `json:"url_token_hits"`
	PhraseInURL      bool    `json:"phrase_in_url"`
}

// indexedPage caches a page's token sets for the duration of a run.
type indexedPage struct {
	page    gap.ContentPage
	content map[string]struct{}
	url     map[string]struct{}
	// phraseURL is the lower-cased URL with path separators turned into
	// spaces, searched for the whole query phrase.
	phraseURL string
}

func indexPages(pages []gap.ContentPage) []indexedPage {
	indexed := make([]indexedPage, len(pages))
	for i, p := range pages {
		indexed[i] = indexedPage{
			page:      p,
			content:   tokenizer.Set(tokenizer.Tokenize(p.Text)),
			url:       tokenizer.Set(tokenizer.URLTokens(p.URL)),
			phraseURL: tokenizer.NormalizeURL(p.URL),
		}
	}
	return indexed
}

// preparedQuery holds a query's tokens and the phrase used for the URL
// bonus.
type preparedQuery struct {
	tokens []string
	phrase string
}

func prepareQuery(text string) preparedQuery {
	tokens := tokenizer.Tokenize(text)
	return preparedQuery{tokens: tokens, phrase: tokenizer.Phrase(tokens)}
}

// ScorePair scores a single page against a single query text.
func ScorePair(queryText string, page gap.ContentPage) CandidateScore {
	return score(prepareQuery(queryText), indexPages([]gap.ContentPage{page})[0])
}

func score(q preparedQuery, p indexedPage) CandidateScore {
	var s CandidateScore
	if len(q.tokens) == 0 {
		return s
	}
	for _, t := range q.tokens {
		if _, ok := p.content[t]; ok {
			s.ContentTokenHits++
		}
		if _, ok := p.url[t]; ok {
			s.URLTokenHits++
		}
	}
	n := float64(len(q.tokens))
	s.ContentScore = float64(s.ContentTokenHits) / n
	s.URLScore = float64(s.URLTokenHits) / n
	// No FMA: tied scores must compare equal on every GOARCH.
	s.CombinedScore = float64(contentWeight*s.ContentScore) + float64(urlWeight*s.URLScore)
	if strings.Contains(p.phraseURL, q.phrase) {
		s.PhraseInURL = true
		s.CombinedScore += phraseBonus
	}
	return s
}

// beats reports whether candidate should replace the current best. Equal
// scores fall back to URL token hits; a full tie keeps the earlier page.
func (s CandidateScore) beats(best CandidateScore) bool {
	if s.CombinedScore > best.CombinedScore {
		return true
	}
	return s.CombinedScore == best.CombinedScore && s.URLTokenHits > best.URLTokenHits
}

// Quality buckets a combined score.
func Quality(combined float64) gap.MatchQuality {
	switch {
	case combined <= 0:
		return gap.QualityNone
	case combined > highThreshold:
		return gap.QualityHigh
	case combined > mediumThreshold:
		return gap.QualityMedium
	default:
		return gap.QualityLow
	}
}

// Relevance converts a combined score to a percentage rounded to two
// decimals.
func Relevance(combined float64) float64 {
	return math.Round(combined*100*100) / 100
}
