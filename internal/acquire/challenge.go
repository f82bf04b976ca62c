package acquire

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var challengeTitles = []string{
	"just a moment",
	"un momento",
	"attention required",
	"checking your browser",
	"ddos-guard",
	"access denied",
}

var challengeSelectors = []string{
	"#challenge-form",
	"#challenge-running",
	"#cf-challenge-running",
	"#cf-wrapper",
	"script[src*='/cdn-cgi/challenge-platform/']",
	"iframe[src*='_Incapsula_Resource']",
}

// DetectChallenge reports whether body looks like an anti-bot interstitial page
// rather than the data that was asked for.
func DetectChallenge(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] == '[' || trimmed[0] == '{' {
		return false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(trimmed))
	if err != nil {
		return false
	}

	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	for _, marker := range challengeTitles {
		if strings.Contains(title, marker) {
			return true
		}
	}
	for _, sel := range challengeSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

func isChallengeStatus(status int) bool {
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}
