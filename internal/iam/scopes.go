package iam

import "strings"

// splitScopes splits a space-delimited token list, dropping empty tokens
// produced by repeated or leading/trailing spaces.
func splitScopes(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(s, " ") {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// NegotiateScopes intersects the resource owner's granted scope string with
// the client's requested scope string. Both are space-delimited,
// case-sensitive token lists with no wildcard semantics.
//
// The result is ordered by the owner's list (the owner decides precedence,
// not the requester) and deduplicated. An empty intersection is a valid
// outcome, not an error: it yields an authorization with no effective scope
// and downstream code decides whether that is acceptable.
func NegotiateScopes(userScopes, requestedScopes string) string {
	requested := make(map[string]struct{})
	for _, s := range splitScopes(requestedScopes) {
		requested[s] = struct{}{}
	}

	var allowed []string
	seen := make(map[string]struct{})
	for _, s := range splitScopes(userScopes) {
		if _, ok := requested[s]; !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		allowed = append(allowed, s)
	}

	return strings.Join(allowed, " ")
}
