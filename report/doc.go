// Package report builds the four report-family models from classified
// definition elements: searches, list reports, audit reports and aggregate
// reports. Embedded filter logic is delegated to the criteria parsers; a
// report missing its mandatory payload is emitted with an incomplete marker
// rather than dropped.
package report
