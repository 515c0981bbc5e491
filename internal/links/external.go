package links

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

// ExternalChecker fetches http(s) targets and verifies them. Requests share
// a rate limiter so a large toolkit tree does not hammer external hosts.
type ExternalChecker struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewExternalChecker builds a checker issuing at most ratePerSec requests
// per second with the given per-request timeout.
func NewExternalChecker(ratePerSec float64, burst int, timeout time.Duration) *ExternalChecker {
	if ratePerSec <= 0 {
		ratePerSec = 2
	}
	if burst <= 0 {
		burst = 1
	}
	return &ExternalChecker{
		Client:  &http.Client{Timeout: timeout},
		Limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// CheckExternal validates each external link: the URL must respond with a
// non-error status, and when it carries a fragment the fetched HTML must
// contain a matching anchor.
func (c *ExternalChecker) CheckExternal(ctx context.Context, links []Link) ([]Broken, error) {
	var broken []Broken
	for _, link := range links {
		if err := c.Limiter.Wait(ctx); err != nil {
			return broken, err
		}
		if reason := c.checkOne(ctx, link.Target); reason != "" {
			broken = append(broken, Broken{Link: link, Reason: reason})
		}
	}
	return broken, nil
}

func (c *ExternalChecker) checkOne(ctx context.Context, target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Sprintf("invalid URL: %v", err)
	}
	fragment := u.Fragment
	u.Fragment = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Sprintf("build request: %v", err)
	}
	req.Header.Set("User-Agent", "opencheck-link-validator")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Sprintf("fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	if fragment == "" {
		return ""
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return ""
	}
	if !anchorExists(resp, fragment) {
		return fmt.Sprintf("anchor #%s not found", fragment)
	}
	return ""
}

// anchorExists tokenizes the response body looking for an element whose id
// (or a legacy <a name=...>) matches the fragment.
func anchorExists(resp *http.Response, fragment string) bool {
	tokenizer := html.NewTokenizer(resp.Body)
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			tagName, hasAttr := tokenizer.TagName()
			isAnchor := len(tagName) == 1 && tagName[0] == 'a'
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = tokenizer.TagAttr()
				if string(key) == "id" && string(val) == fragment {
					return true
				}
				if isAnchor && string(key) == "name" && string(val) == fragment {
					return true
				}
			}
		}
	}
}
