package crawler

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
)

// ContactHints are href substrings that mark an anchor as a contact/about
// page. Matching is case-insensitive.
var ContactHints = []string{
	"/contact",
	"/contact-us",
	"/about",
	"/team",
	"/author",
	"/bio",
	"/profile",
	"/get-in-touch",
}

// mailtoPrefix is the scheme prefix of mail links.
const mailtoPrefix = "mailto:"

// emailRegex matches email-shaped substrings: alnum plus "._%+-" in the
// local part, alnum plus ".-" in the domain, and a TLD of two or more letters.
var emailRegex = regexp.MustCompile(`(?i)[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// hintFolder folds hrefs before hint matching.
var hintFolder = cases.Fold()

// ExtractEmails returns the lowercased, deduplicated email addresses found in
// text, in order of first appearance. The text is matched as-is, so markup
// and attribute values are searched too.
func ExtractEmails(text string) []string {
	matches := emailRegex.FindAllString(text, -1)

	seen := make(map[string]bool, len(matches))
	unique := make([]string, 0, len(matches))
	for _, email := range matches {
		lower := strings.ToLower(email)
		if !seen[lower] {
			seen[lower] = true
			unique = append(unique, lower)
		}
	}

	return unique
}

// FindContactLinks returns the contact/about links and mailto addresses of a
// page, deduplicated in document order.
//
// Hint links are resolved against baseURL with their fragment removed.
// Mail links are returned as "mailto:<address>" with anything after "?"
// dropped and the address case preserved. Unparseable HTML yields no links.
func FindContactLinks(htmlText, baseURL string) []string {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return []string{}
	}

	links := make([]string, 0)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if link := contactLink(n, baseURL); link != "" {
				links = append(links, link)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return dedupePreserveOrder(links)
}

// contactLink classifies one anchor, returning "" when it is neither a mail
// link nor a hinted contact link.
func contactLink(n *html.Node, baseURL string) string {
	href, ok := getAttr(n, "href")
	if !ok {
		return ""
	}
	href = strings.TrimSpace(href)
	folded := hintFolder.String(href)

	if strings.HasPrefix(folded, mailtoPrefix) {
		address := href[len(mailtoPrefix):]
		if i := strings.Index(address, "?"); i >= 0 {
			address = address[:i]
		}
		address = strings.TrimSpace(address)
		if address == "" {
			return ""
		}
		return mailtoPrefix + address
	}

	for _, hint := range ContactHints {
		if strings.Contains(folded, hint) {
			return CanonicalizeURL(href, baseURL)
		}
	}
	return ""
}

// MailtoAddress returns the address of a "mailto:" link produced by
// FindContactLinks, or false for any other link.
func MailtoAddress(link string) (string, bool) {
	if !strings.HasPrefix(link, mailtoPrefix) {
		return "", false
	}
	address := link[len(mailtoPrefix):]
	if i := strings.Index(address, "?"); i >= 0 {
		address = address[:i]
	}
	return address, address != ""
}

// dedupePreserveOrder drops repeated links; the dedup key ignores fragments.
func dedupePreserveOrder(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key, _, _ := strings.Cut(item, "#")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
