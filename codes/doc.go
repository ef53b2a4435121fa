// Package codes walks the criterion trees of parsed searches and reports and
// pulls out every raw code reference with full source attribution: the owning
// search or report, the criterion, the value set and the table/column context
// at the point of reference. Include-descendants flags are carried verbatim;
// descendant discovery belongs to the terminology-expansion collaborator.
package codes
