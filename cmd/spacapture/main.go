// Package main provides the spacapture CLI.
//
// spacapture renders a client-side application in a headless browser and
// writes a single self-contained HTML file that crawlers can read without
// running JavaScript.
//
// Usage:
//
//	spacapture <url> [--output path] [--open]
//
// See --help for all available options.
package main

import "os"

func main() {
	os.Exit(Execute())
}
