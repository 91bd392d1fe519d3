// Package url classifies external links: redirect resolution, registrable
// domain extraction, list checks, and heuristics, with a TTL verdict cache
// keyed by final URL.
package url

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"vigil/internal/threshold"
	pstrings "vigil/pkg/platform/strings"
)

// Classification is the classifier output for one URL.
type Classification struct {
	FinalURL          string            `json:"final_url"`
	RegistrableDomain string            `json:"registrable_domain"`
	Verdict           string            `json:"verdict"`
	Lists             []string          `json:"lists,omitempty"`
	Details           map[string]string `json:"details,omitempty"`
}

// Classifier is the pluggable verdict source. The input URL has already
// been through redirect resolution.
type Classifier interface {
	Classify(ctx context.Context, finalURL string) (*Classification, error)
}

// Default heuristics. Deployments extend these through the
// HeuristicClassifier options.
var (
	defaultShorteners = []string{
		"bit.ly", "tinyurl.com", "t.co", "goo.gl", "is.gd", "ow.ly", "buff.ly", "rb.gy",
	}
	defaultRiskyTLDs = []string{
		"zip", "mov", "top", "gq", "tk", "ml", "cf", "work", "click",
	}
	trackingParams = []string{
		"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
		"fbclid", "gclid", "msclkid",
	}
)

// HeuristicClassifier is the built-in Classifier: explicit deny and allow
// lists by registrable domain, then shortener, tracking-parameter, scheme,
// and TLD heuristics. It never errors; a URL it cannot parse is denied.
type HeuristicClassifier struct {
	deny       map[string]struct{}
	allow      map[string]struct{}
	shorteners map[string]struct{}
	riskyTLDs  map[string]struct{}
}

// HeuristicOption configures a HeuristicClassifier.
type HeuristicOption func(*HeuristicClassifier)

// WithDenyList adds registrable domains that are always denied.
func WithDenyList(domains []string) HeuristicOption {
	return func(c *HeuristicClassifier) { addAll(c.deny, domains) }
}

// WithAllowList adds registrable domains that are always allowed.
func WithAllowList(domains []string) HeuristicOption {
	return func(c *HeuristicClassifier) { addAll(c.allow, domains) }
}

// WithShorteners replaces the default shortener domain set.
func WithShorteners(domains []string) HeuristicOption {
	return func(c *HeuristicClassifier) {
		c.shorteners = make(map[string]struct{}, len(domains))
		addAll(c.shorteners, domains)
	}
}

// NewHeuristicClassifier creates the built-in classifier.
func NewHeuristicClassifier(opts ...HeuristicOption) *HeuristicClassifier {
	c := &HeuristicClassifier{
		deny:       map[string]struct{}{},
		allow:      map[string]struct{}{},
		shorteners: map[string]struct{}{},
		riskyTLDs:  map[string]struct{}{},
	}
	addAll(c.shorteners, defaultShorteners)
	addAll(c.riskyTLDs, defaultRiskyTLDs)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func addAll(set map[string]struct{}, items []string) {
	for _, item := range pstrings.DedupeAndTrimLower(items) {
		set[item] = struct{}{}
	}
}

func (c *HeuristicClassifier) Classify(_ context.Context, finalURL string) (*Classification, error) {
	out := &Classification{FinalURL: finalURL, Details: map[string]string{}}

	parsed, err := url.Parse(finalURL)
	if err != nil || parsed.Host == "" {
		out.Verdict = threshold.VerdictDenied
		out.Details["reason"] = "unparseable"
		return out, nil
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		out.Verdict = threshold.VerdictDenied
		out.Details["reason"] = "non_http_scheme"
		out.Details["scheme"] = scheme
		return out, nil
	}

	host := strings.ToLower(parsed.Hostname())
	out.RegistrableDomain = registrableDomain(host)

	if _, denied := c.deny[out.RegistrableDomain]; denied {
		out.Verdict = threshold.VerdictDenied
		out.Lists = append(out.Lists, "deny")
		return out, nil
	}
	if _, allowed := c.allow[out.RegistrableDomain]; allowed {
		out.Verdict = threshold.VerdictAllowed
		out.Lists = append(out.Lists, "allow")
		return out, nil
	}

	if _, shortener := c.shorteners[out.RegistrableDomain]; shortener {
		// Still a shortener after redirect resolution means the chain did
		// not terminate; treat the destination as hidden.
		out.Verdict = threshold.VerdictSuspicious
		out.Details["reason"] = "unresolved_shortener"
		return out, nil
	}

	if param := firstTrackingParam(parsed); param != "" {
		out.Verdict = threshold.VerdictSuspicious
		out.Details["reason"] = "tracking_params"
		out.Details["param"] = param
		return out, nil
	}

	if tld := lastLabel(host); tld != "" {
		if _, risky := c.riskyTLDs[tld]; risky {
			out.Verdict = threshold.VerdictSuspicious
			out.Details["reason"] = "risky_tld"
			out.Details["tld"] = tld
			return out, nil
		}
	}

	out.Verdict = threshold.VerdictUnknown
	return out, nil
}

// registrableDomain computes eTLD+1, falling back to the raw host for IPs
// and single-label hosts.
func registrableDomain(host string) string {
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

func firstTrackingParam(u *url.URL) string {
	query := u.Query()
	for _, param := range trackingParams {
		if query.Has(param) {
			return param
		}
	}
	return ""
}

func lastLabel(host string) string {
	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return host[i+1:]
	}
	return ""
}
