// Package document classifies the top-level definition elements of an EMIS
// clinical-search document into report families and builds the folder
// hierarchy. Classification is a single traversal of the document; everything
// downstream reads the classified element lists instead of re-walking the
// tree.
package document
