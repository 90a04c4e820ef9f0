package classifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/arpitjain2323/buddyguard/internal/capture"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Default per-category phrase blocklist; extended or replaced via
// classifier.keywords in the configuration.
var defaultKeywords = map[Category][]string{
	CategoryInappropriate: {"porn", "xxx", "adult only", "nsfw", "nude", "naked"},
	CategoryViolence:      {"kill yourself", "murder", "shoot them", "bomb", "terrorist"},
	CategorySelfHarm:      {"suicide", "cut myself", "self harm", "end my life", "kill myself"},
	CategoryBullyingHate:  {"hate you", "kill yourself", "die", "ugly", "stupid", "hate speech", "racist"},
}

// keywordClassifier matches the snapshot's visible text (window title and
// application name) against per-category phrase blocklists. It never makes
// a network call, so it cannot fail or time out.
type keywordClassifier struct {
	keywords map[Category][]string
}

func newKeywordClassifier(cfg Config) *keywordClassifier {
	keywords := make(map[Category][]string)
	if len(cfg.Keywords) > 0 {
		for category, phrases := range cfg.Keywords {
			lowered := make([]string, 0, len(phrases))
			for _, phrase := range phrases {
				lowered = append(lowered, strings.ToLower(phrase))
			}
			keywords[Category(strings.ToLower(category))] = lowered
		}
	} else {
		for category, phrases := range defaultKeywords {
			keywords[category] = phrases
		}
	}

	return &keywordClassifier{keywords: keywords}
}

func (k *keywordClassifier) Classify(_ context.Context, snapshot *capture.Snapshot) (Result, error) {
	result := Result{
		SnapshotTimestamp: snapshot.Timestamp,
		Scores:            make(map[Category]float64),
	}

	text := deriveText(snapshot)
	if text == "" {
		return result, nil
	}

	for category, phrases := range k.keywords {
		for _, phrase := range phrases {
			if strings.Contains(text, phrase) {
				result.Scores[category] = keywordMatchScore
				break
			}
		}
	}

	return result, nil
}

// deriveText builds the lowercase, whitespace-normalized text a snapshot
// exposes without OCR: the window title plus the foreground app name.
func deriveText(snapshot *capture.Snapshot) string {
	text := strings.TrimSpace(snapshot.WindowTitle + " " + snapshot.ForegroundApp)
	if text == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(strings.ToLower(text), " ")
}
