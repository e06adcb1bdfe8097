package auth

import (
	"sort"
	"strings"
)

// AdminPolicy is the explicit whitelist of administrator emails.
// The zero value admits nobody.
type AdminPolicy struct {
	emails map[string]struct{}
}

// NewAdminPolicy builds a policy from emails. Entries are trimmed and compared
// case-insensitively; blanks are ignored.
func NewAdminPolicy(emails []string) AdminPolicy {
	p := AdminPolicy{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if e = normalizeEmail(e); e != "" {
			p.emails[e] = struct{}{}
		}
	}
	return p
}

// IsAdmin reports whether email is whitelisted.
func (p AdminPolicy) IsAdmin(email string) bool {
	if email = normalizeEmail(email); email == "" {
		return false
	}
	_, ok := p.emails[email]
	return ok
}

// Allows reports whether the token holder may use admin operations.
func (p AdminPolicy) Allows(c *Claims) bool {
	return c != nil && p.IsAdmin(c.Email)
}

// Emails returns the whitelist in sorted order.
func (p AdminPolicy) Emails() []string {
	out := make([]string, 0, len(p.emails))
	for e := range p.emails {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
