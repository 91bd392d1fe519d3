package models

import "regexp"

// WriteContext travels with a single write attempt through the gate. The
// gate mutates it and hands it back; the calling domain uses the mutated
// copy to decide how to fan the content out.
type WriteContext struct {
	// Body is the raw content under gating, scanned for external links
	// when a link cooloff is active.
	Body string `json:"body"`

	// CaptchaOK is set by the caller when the actor solved a captcha on
	// this attempt.
	CaptchaOK bool `json:"captcha_ok"`

	// HoneyTripped is set by the caller when a hidden trap field came
	// back populated. Only automated abuse fills those in.
	HoneyTripped bool `json:"honey_tripped"`

	// Band is the caller's cached reputation band, if it has one. Empty
	// means the gate resolves it fresh.
	Band string `json:"band,omitempty"`

	// Shadow is set by the gate: the write proceeds but must not be
	// fanned out to other users.
	Shadow bool `json:"shadow"`

	// StripLinks is set by the gate: external links must be removed from
	// the content before persisting.
	StripLinks bool `json:"strip_links"`

	// Meta carries gate annotations back to the caller.
	Meta map[string]string `json:"meta,omitempty"`
}

// Annotate records a gate decision detail on the context.
func (c *WriteContext) Annotate(key, value string) {
	if c.Meta == nil {
		c.Meta = make(map[string]string)
	}
	c.Meta[key] = value
}

var linkPattern = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)

// ContainsLink reports whether the body carries an external link.
func (c *WriteContext) ContainsLink() bool {
	return linkPattern.MatchString(c.Body)
}
