package meta

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// detectSampleLen bounds the text handed to the language detector; a few
// kilobytes of prose is plenty for a confident classification.
const detectSampleLen = 4096

// detectorLanguages covers the languages the detector distinguishes
// between. Building the detector is expensive, so it is created lazily and
// shared.
var detectorLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Russian,
	lingua.Japanese,
	lingua.Chinese,
	lingua.Korean,
	lingua.Arabic,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectLanguage returns the ISO 639-1 code of the dominant language in
// text, or "" when the text is too short or ambiguous.
func DetectLanguage(text string) string {
	text = strings.TrimSpace(text)
	if len(text) < 40 {
		return ""
	}
	if len(text) > detectSampleLen {
		cut := detectSampleLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectorLanguages...).
			Build()
	})

	lang, ok := detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
