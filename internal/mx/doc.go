// Package mx checks whether an email address's domain can receive mail.
//
// A domain passes when it publishes MX records. When the domain does not
// exist, has no MX answer, or every nameserver refuses the query, the checker
// falls back to a plain host lookup so that domains relying on an implicit MX
// (an A or AAAA record) still pass. Any other DNS failure, such as a timeout,
// fails the check.
package mx
