// Package aggregate bins contacts into an upper-triangular sparse matrix.
//
// An Accumulator sums contact scores per (binX, binY) cell. When the number of
// distinct cells held in memory passes a limit, the cells are written out as a
// sorted run through a spill session and memory is cleared. Records merges the
// spilled runs with the cells still in memory into one sorted, de-duplicated
// sequence, and Matrix turns that sequence into a balance.SparseMatrix.
//
// Positions can be jittered before binning by a Randomizer chosen at
// construction: NoRandomization keeps positions, a FragmentRandomizer draws a
// uniform position inside the restriction fragment containing the original
// one, and a MultiFragmentRandomizer does the same with the shortest matching
// fragment across several maps.
package aggregate
