// Package emisconv provides the shared types for the EMIS XML convertor:
// the issue taxonomy, the per-request processing result, configuration
// options, and performance metrics.
//
// The processing pipeline itself lives in the engine package, which parses
// an EMIS enquiry document, classifies its definition elements into the
// four report families, extracts every clinical code reference with full
// source attribution, and translates the references to SNOMED CT against a
// mapping-table snapshot.
//
// Basic usage:
//
//	table, err := lookup.LoadFile("mappings.json")
//	if err != nil {
//		return err
//	}
//	proc, err := engine.New(table, emisconv.WithDedupPolicy(emisconv.DedupUniqueByCode))
//	if err != nil {
//		return err
//	}
//	out, err := proc.Process(ctx, xmlBytes)
//	if err != nil {
//		return err // fatal-input: document root unparseable
//	}
//	for _, w := range out.Result.Warnings() {
//		fmt.Println(w)
//	}
package emisconv
