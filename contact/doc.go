// Package contact defines the contact data model and the iterators that turn
// raw per-bin record sources into one ordered stream of contacts.
//
// A Record is one (binX, binY, count) observation at a fixed resolution. A
// Contact is the chromosome-tagged, resolution-scaled view of a Record that
// iterators hand to consumers.
//
// Two iterator variants are provided:
//   - PairIterator wraps a single record stream for one chromosome pair.
//   - GenomeIterator walks the whole-genome streams of several datasets in order,
//     tagging every contact with chromosome 0.
//
// Iterators are forward-only and single-consumer. They are not safe for
// concurrent use.
package contact
