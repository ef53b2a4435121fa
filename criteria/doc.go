// Package criteria parses EMIS criterion subtrees into typed criteria,
// restriction clauses ("latest N where ..."), and linked cross-table
// criterion pairs. Report parsers reuse this package for every embedded
// filter they decode.
package criteria
