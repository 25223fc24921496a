// Package main provides the entry point for the emailharvester CLI.
//
// emailharvester discovers business contact addresses: it finds candidate
// pages through search providers (or a seed list), extracts addresses from
// them and their contact pages, optionally verifies them with Hunter.io,
// checks MX records and exports scored rows.
//
// Usage:
//
//	emailharvester harvest --categories "plumbers denver"
//	emailharvester harvest --seeds-file seeds.txt --format json -o emails.json
//
// See --help for all available options.
package main

func main() {
	Execute()
}
