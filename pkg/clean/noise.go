package clean

// noiseSelectors is the curated noise taxonomy removed in aggressive mode:
// navigation, page chrome, ads, social widgets, comment sections, modals,
// and cookie/newsletter banners. Selectors run before attribute stripping
// because most of them depend on class, id, or role values.
var noiseSelectors = []string{
	// Navigation and page chrome
	"nav",
	"aside",
	"[role='navigation']",
	"[role='banner']",
	"[role='complementary']",
	"[role='contentinfo']",
	"[role='search']",
	"[class*='breadcrumb']",
	"[class*='sidebar']",
	"[id*='sidebar']",
	"[class*='site-header']",
	"[class*='site-footer']",
	"[class*='page-footer']",
	"[id*='footer']",
	"[class*='skip-link']",

	// Ads and sponsorship
	"ins.adsbygoogle",
	"[class*='advert']",
	"[class*='ad-container']",
	"[class*='ad-wrapper']",
	"[class*='ad-slot']",
	"[class*='ad-banner']",
	"[class*='sponsored']",
	"[id*='google_ads']",
	"[data-ad-client]",
	"[data-ad-slot]",

	// Social widgets and sharing
	"[class*='social']",
	"[class*='share-button']",
	"[class*='sharing']",
	"[class*='follow-us']",

	// Comment sections
	"[class*='comment-section']",
	"[class*='comments-area']",
	"[id*='comments']",
	"[id*='disqus']",

	// Modals, popups, overlays
	"[role='dialog']",
	"[role='alertdialog']",
	"[class*='modal']",
	"[class*='popup']",
	"[class*='overlay']",
	"[class*='lightbox']",

	// Cookie and newsletter banners
	"[class*='cookie']",
	"[id*='cookie']",
	"[class*='gdpr']",
	"[class*='consent']",
	"[class*='newsletter']",
	"[class*='subscribe-banner']",

	// Related / recirculation blocks
	"[class*='related-posts']",
	"[class*='related-articles']",
	"[class*='recommended']",
	"[class*='trending']",
	"[class*='read-next']",
}

// boilerplateMaxLen guards phrase-based removal: elements at or above this
// text length are never removed by phrase match, so long-form content that
// quotes a boilerplate phrase survives.
const boilerplateMaxLen = 200

// boilerplatePhrases are matched case-insensitively against short elements.
var boilerplatePhrases = []string{
	"accept cookies",
	"accept all cookies",
	"we use cookies",
	"cookie policy",
	"cookie settings",
	"privacy policy",
	"terms of service",
	"subscribe to our newsletter",
	"sign up for our newsletter",
	"join our mailing list",
	"follow us on",
	"share this article",
	"share on facebook",
	"share on twitter",
	"advertisement",
	"sponsored content",
	"skip to content",
	"skip to main content",
	"back to top",
	"read more articles",
	"related articles",
	"you may also like",
	"recommended for you",
	"leave a comment",
	"log in to comment",
	"all rights reserved",
}
