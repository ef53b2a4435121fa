// Package lookup holds the raw-identifier to SNOMED mapping table consumed
// by the translation engine. A Table is an immutable snapshot: it is built
// once from its source and only ever read afterwards, so a single snapshot
// can safely serve concurrent processing requests.
package lookup
