package clean

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mdistill/mdistill/internal/logger"
)

// FilterOptions selects which content kinds survive filtering.
type FilterOptions struct {
	IncludeImages bool
	IncludeLinks  bool
	IncludeTables bool
}

// Filter removes images, links, or tables per the caller's options.
// Links are unwrapped to their text rather than deleted. Parse failures
// return the input unchanged.
func Filter(rawHTML string, opts FilterOptions) (string, error) {
	if opts.IncludeImages && opts.IncludeLinks && opts.IncludeTables {
		return rawHTML, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		logger.Warn("html parse failed, skipping content filter", "error", err)
		return rawHTML, nil
	}

	if !opts.IncludeImages {
		doc.Find("img, picture, figure").Remove()
	}
	if !opts.IncludeTables {
		doc.Find("table").Remove()
	}
	if !opts.IncludeLinks {
		doc.Find("a").Each(func(_ int, s *goquery.Selection) {
			s.ReplaceWithSelection(s.Contents())
		})
	}

	out, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(out) == "" {
		out, err = doc.Html()
		if err != nil {
			return rawHTML, nil
		}
	}
	return out, nil
}
