// Package crawler extracts email addresses from web pages.
//
// It provides the pure extraction functions (email matching, contact-link
// discovery, URL normalization) and the PageProcessor, which fetches a
// candidate page and the contact pages it links to and turns them into
// email observations.
package crawler
