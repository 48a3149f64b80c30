// Package storage lays feed files out on disk for transfer into an isolated
// network.
//
// The tree is exactly two levels deep:
//
//	AirgapIntel_Feeds/
//	    CIRCL Feeds/
//	        5f0e-aaaa.json
//	    MISP Site Feeds (Others)/
//	        Feodo IP Blocklist.csv
//
// Writes go through a temporary file and a rename, so an interrupted run never
// leaves a truncated feed behind. A second feed that sanitizes to the same
// name replaces the first.
package storage
