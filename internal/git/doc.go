// Package git keeps local checkouts of shared material (snippets,
// bibliographies) current by pulling from their origin remote.
package git
