// Package security strips markup from untrusted text before it is stored
// or echoed to other participants.
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer cleans player-provided strings (nicknames, crowdsourced
// question text) and host-authored prompts.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New returns a strict sanitizer that allows no HTML at all.
func New() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean strips markup and trims surrounding whitespace.
func (s *Sanitizer) Clean(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}

// CleanNickname additionally bounds length; display names longer than 24
// runes break roster layouts.
func (s *Sanitizer) CleanNickname(input string) string {
	cleaned := s.Clean(input)
	runes := []rune(cleaned)
	if len(runes) > 24 {
		return string(runes[:24])
	}
	return cleaned
}
