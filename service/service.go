// Package service defines the collaborator interfaces the processing core
// consumes but does not implement: terminology expansion and mapping-table
// provision. Implementations live with the caller; the core only forwards
// resolved codes and document-declared flags.
package service

import (
	"context"
	"errors"

	"github.com/triplebob/emis-xml-convertor/lookup"
	"github.com/triplebob/emis-xml-convertor/translate"
)

// ErrNotFound is returned when a code or snapshot cannot be found.
var ErrNotFound = errors.New("not found")

// ExpansionRequest asks the terminology collaborator for the descendants of
// one resolved code. The include-descendants flag is forwarded verbatim from
// the document.
type ExpansionRequest struct {
	Code               string
	IncludeDescendants bool
}

// ExpansionService expands a resolved code into its descendant codes.
// The core never performs expansion itself.
type ExpansionService interface {
	Expand(ctx context.Context, req ExpansionRequest) ([]string, error)
}

// MappingProvider supplies the immutable mapping-table snapshot a processing
// request reads from.
type MappingProvider interface {
	Snapshot(ctx context.Context) (*lookup.Table, error)
}

// StaticMapping is a MappingProvider over one fixed table.
type StaticMapping struct {
	Table *lookup.Table
}

func (s StaticMapping) Snapshot(context.Context) (*lookup.Table, error) {
	if s.Table == nil {
		return nil, ErrNotFound
	}
	return s.Table, nil
}

// ExpansionRequests derives the expansion work a translation set implies:
// one request per matched, directly usable result that declared
// include-descendants.
func ExpansionRequests(set *translate.Set) []ExpansionRequest {
	if set == nil {
		return nil
	}
	var reqs []ExpansionRequest
	seen := make(map[string]bool)
	for _, r := range set.Results {
		if !r.Matched() || !r.DirectlyUsable || !r.IncludeChildren {
			continue
		}
		if r.SNOMEDCode == "" || seen[r.SNOMEDCode] {
			continue
		}
		seen[r.SNOMEDCode] = true
		reqs = append(reqs, ExpansionRequest{Code: r.SNOMEDCode, IncludeDescendants: true})
	}
	return reqs
}
