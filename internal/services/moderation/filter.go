package moderation

import (
	"regexp"
	"strings"
)

// trailingJunk strips the characters clients tend to append to chat
// payloads (control garbage, dangling punctuation runs)
var trailingJunk = regexp.MustCompile(`[^A-Za-z0-9_!$%*()@./#&+\-|]*$`)

// nonWord matches everything outside the word character class
var nonWord = regexp.MustCompile(`[^0-9A-Za-z_]`)

// whitespace matches any run of whitespace
var whitespace = regexp.MustCompile(`\s+`)

// DefaultWords is the default blocked-word list. Swearing is tolerated in
// the space; slurs are not.
var DefaultWords = []string{
	"chink", "cunt", "cunts", "fag", "fagging", "faggitt", "faggot",
	"faggs", "fagot", "fagots", "fags", "jap", "homo", "nigger",
	"niggers", "n1gger", "nigg3r",
}

// Filter is the chat moderation collaborator: it cleans raw chat payloads
// and renders an "is objectionable" verdict. The relay drops messages on a
// positive verdict rather than relaying them.
type Filter struct {
	words []string
}

// New creates a Filter blocking the given words. With no words the default
// list is used.
func New(words ...string) *Filter {
	if len(words) == 0 {
		words = DefaultWords
	}
	lowered := make([]string, len(words))
	for i, w := range words {
		lowered[i] = strings.ToLower(w)
	}
	return &Filter{words: lowered}
}

// Clean normalizes a raw payload for relay: trailing junk and surrounding
// whitespace are stripped and any blocked word token is masked with
// asterisks
func (f *Filter) Clean(s string) string {
	s = trailingJunk.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	tokens := strings.Split(s, " ")
	for i, tok := range tokens {
		if f.isBlockedToken(tok) {
			tokens[i] = strings.Repeat("*", len(tok))
		}
	}
	return strings.Join(tokens, " ")
}

// IsObjectionable tests the message and its evasion variants against the
// blocked list: spaces removed ("f u c k"), repeated characters collapsed
// ("fffffuuuuck"), and non-word characters removed ("f*u*c*k"). A message
// that is empty once whitespace is removed is also objectionable.
func (f *Filter) IsObjectionable(s string) bool {
	collapsed := whitespace.ReplaceAllString(s, "")
	if collapsed == "" {
		return true
	}

	lowered := strings.ToLower(collapsed)
	for _, w := range f.words {
		if strings.Contains(lowered, w) {
			return true
		}
	}

	for _, variant := range []string{s, collapsed, dedupeRunes(s), nonWord.ReplaceAllString(s, "")} {
		if f.hasBlockedToken(variant) {
			return true
		}
	}
	return false
}

func (f *Filter) hasBlockedToken(s string) bool {
	for _, tok := range strings.Fields(s) {
		if f.isBlockedToken(tok) {
			return true
		}
	}
	return false
}

func (f *Filter) isBlockedToken(tok string) bool {
	tok = strings.ToLower(strings.Trim(tok, ".,!?;:'\"()"))
	for _, w := range f.words {
		if tok == w {
			return true
		}
	}
	return false
}

// dedupeRunes drops every rune that occurs again later in the string, so
// stretched spellings collapse onto their plain form
func dedupeRunes(s string) string {
	runes := []rune(s)
	var out []rune
	for i, r := range runes {
		again := false
		for _, later := range runes[i+1:] {
			if later == r {
				again = true
				break
			}
		}
		if !again {
			out = append(out, r)
		}
	}
	return string(out)
}
