// Package xmlq provides namespace-tolerant element lookup over an EMIS
// enquiry document tree.
//
// EMIS documents mix namespaced (emis:criterion) and unprefixed (criterion)
// forms of the same element names, sometimes within a single document. Every
// lookup in this package tries the unprefixed form first, then any
// namespaced form, and returns nil (or a caller-supplied default) when the
// element is absent. Isolating that dual lookup here lets every parser stay
// agnostic to which dialect it is reading.
package xmlq
