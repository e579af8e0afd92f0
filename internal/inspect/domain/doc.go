// Package domain holds the pure value types of the inspection pipeline:
// records, decisions, outcomes and traffic snapshots. It has no dependencies
// on other rr-inspect packages.
package domain
