package seo

import (
	"strings"
)

// aiCrawlers are user agents blocked when AI crawling is disallowed.
var aiCrawlers = []string{
	"GPTBot",
	"ChatGPT-User",
	"OAI-SearchBot",
	"ClaudeBot",
	"anthropic-ai",
	"CCBot",
	"Google-Extended",
	"PerplexityBot",
	"Bytespider",
	"Applebot-Extended",
	"meta-externalagent",
}

// privatePaths never belong in a search index.
var privatePaths = []string{
	"/*/*/cart",
	"/*/*/checkout",
	"/*/*/account",
	"/*/*/order-placed",
	"/api/",
}

// Robots renders robots.txt.
func Robots(publicURL string, disallowAI bool) string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	for _, path := range privatePaths {
		b.WriteString("Disallow: " + path + "\n")
	}
	b.WriteString("Allow: /\n")

	if disallowAI {
		for _, agent := range aiCrawlers {
			b.WriteString("\nUser-agent: " + agent + "\nDisallow: /\n")
		}
	}

	b.WriteString("\nSitemap: " + strings.TrimRight(publicURL, "/") + "/sitemap.xml\n")
	return b.String()
}
