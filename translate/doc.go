// Package translate resolves extracted raw code references against a
// mapping-table snapshot and deduplicates the results. Resolution never
// drops anything: misses become explicit unmatched records so success-rate
// statistics stay honest. Deduplication is a pure function over the
// undeduplicated set, so switching policy is always re-derivable.
package translate
