package contact

import (
	"regexp"
	"sort"
	"strings"
)

// Extraction utilities: pure functions that pull contact fields out of
// unstructured search text. Kept free of I/O so the resolution engine
// can run them over any source.

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)

	// "Contact: Jane Doe", "Leasing Agent Jane Doe"
	nameAfterRole = regexp.MustCompile(`(?i)(?:contact|manager|agent|realtor|leasing agent)[:\s]+([A-Z][a-z]+ [A-Z][a-z]+)`)
	// "Jane Doe is the manager"
	nameBeforeRole = regexp.MustCompile(`([A-Z][a-z]+ [A-Z][a-z]+)\s+is the\s+(?:manager|agent|realtor|broker)`)
)

// knownTitles are recognized in source text, longest match first so
// "Leasing Manager" beats "Manager".
var knownTitles = []string{
	"Senior Property Manager",
	"Property Management",
	"Real Estate Agent",
	"Building Manager",
	"Leasing Manager",
	"Property Manager",
	"Leasing Agent",
	"Realtor",
	"Broker",
}

func init() {
	sort.Slice(knownTitles, func(i, j int) bool {
		return len(knownTitles[i]) > len(knownTitles[j])
	})
}

// ExtractEmails returns all email addresses in text, lowercased, in
// order of first appearance, without duplicates.
func ExtractEmails(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range emailPattern.FindAllString(text, -1) {
		m = strings.ToLower(m)
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// ExtractPhone returns the first North American phone number in text,
// or "" when none is present.
func ExtractPhone(text string) string {
	return strings.TrimSpace(phonePattern.FindString(text))
}

// ExtractName looks for a person's name near a contact role mention.
func ExtractName(text string) string {
	if m := nameAfterRole.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := nameBeforeRole.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// ExtractTitle returns the longest known contact title mentioned in
// text, or "" when none is.
func ExtractTitle(text string) string {
	lower := strings.ToLower(text)
	for _, title := range knownTitles {
		if strings.Contains(lower, strings.ToLower(title)) {
			return title
		}
	}
	return ""
}

// PrioritizeEmails picks the best outreach email from candidates.
// Preference order: a leasing or rentals mailbox on the company's own
// domain, then any address on the company domain, then any leasing or
// rentals mailbox, then the first candidate. Deterministic for a
// given input order.
func PrioritizeEmails(emails []string, companyDomain string) string {
	if len(emails) == 0 {
		return ""
	}
	companyDomain = strings.ToLower(strings.TrimPrefix(companyDomain, "www."))

	onDomain := func(email string) bool {
		if companyDomain == "" {
			return false
		}
		at := strings.LastIndex(email, "@")
		return at >= 0 && strings.HasSuffix(email[at+1:], companyDomain)
	}
	leasing := func(email string) bool {
		at := strings.LastIndex(email, "@")
		if at < 0 {
			return false
		}
		local := email[:at]
		return strings.Contains(local, "leasing") || strings.Contains(local, "rentals")
	}

	for _, e := range emails {
		if leasing(e) && onDomain(e) {
			return e
		}
	}
	for _, e := range emails {
		if onDomain(e) {
			return e
		}
	}
	for _, e := range emails {
		if leasing(e) {
			return e
		}
	}
	return emails[0]
}

// DomainOf extracts the bare host from a website URL for email-domain
// matching.
func DomainOf(website string) string {
	website = strings.TrimSpace(strings.ToLower(website))
	website = strings.TrimPrefix(website, "https://")
	website = strings.TrimPrefix(website, "http://")
	website = strings.TrimPrefix(website, "www.")
	if idx := strings.IndexAny(website, "/?#"); idx >= 0 {
		website = website[:idx]
	}
	return website
}
