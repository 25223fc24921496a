// Package hunter is a small client for the Hunter email-intelligence API.
//
// Two endpoints are used: domain search, which lists the addresses Hunter
// knows for a domain, and email verification, which returns a deliverability
// verdict for one address. Neither call returns an error. Domain search
// degrades to an empty list, and verification degrades to an error-shaped
// payload, so a failing provider can never abort a harvest run.
//
// Verification may answer 202 Accepted while Hunter is still checking the
// address. With polling enabled the client retries on a fixed interval until
// a deadline, then reports a "timeout" status.
package hunter
