package aggregate

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/arloliu/hicnorm/errs"
)

// Randomizer maps a contact position to the position used for binning.
type Randomizer interface {
	Position(chr, pos int) int
}

// FragmentMap holds restriction site positions per chromosome, strictly
// increasing and positive. Fragment n spans [site[n-1], site[n]), the first
// one starting at 0.
type FragmentMap map[int][]int

// Validate checks site ordering for every chromosome.
func (f FragmentMap) Validate() error {
	for chr, sites := range f {
		for n, s := range sites {
			if s <= 0 || (n > 0 && s <= sites[n-1]) {
				return fmt.Errorf("%w: chr %d, site %d at %d", errs.ErrInvalidSites, chr, n, s)
			}
		}
	}

	return nil
}

// fragment returns the bounds of the fragment containing pos. Positions past
// the last site, and chromosomes without sites, have no fragment.
func (f FragmentMap) fragment(chr, pos int) (int, int, bool) {
	sites := f[chr]
	idx, found := slices.BinarySearch(sites, pos)
	if found {
		idx++
	}
	if pos < 0 || idx >= len(sites) {
		return 0, 0, false
	}

	lo := 0
	if idx > 0 {
		lo = sites[idx-1]
	}

	return lo, sites[idx], true
}

type noRandomization struct{}

func (noRandomization) Position(_, pos int) int { return pos }

// NoRandomization keeps positions unchanged.
var NoRandomization Randomizer = noRandomization{}

// FragmentRandomizer replaces a position with a uniform draw from its
// restriction fragment. Positions outside every fragment are kept.
//
// Note: a FragmentRandomizer is NOT thread-safe.
type FragmentRandomizer struct {
	sites FragmentMap
	rng   *rand.Rand
}

var _ Randomizer = (*FragmentRandomizer)(nil)

// NewFragmentRandomizer creates a randomizer over one fragment map. The same
// seed reproduces the same positions.
func NewFragmentRandomizer(sites FragmentMap, seed uint64) (*FragmentRandomizer, error) {
	if err := sites.Validate(); err != nil {
		return nil, err
	}

	return &FragmentRandomizer{sites: sites, rng: newRand(seed)}, nil
}

func (r *FragmentRandomizer) Position(chr, pos int) int {
	lo, hi, ok := r.sites.fragment(chr, pos)
	if !ok {
		return pos
	}

	return lo + r.rng.IntN(hi-lo)
}

// MultiFragmentRandomizer looks a position up in several fragment maps and
// draws from the shortest fragment containing it. Ties go to the earlier map.
//
// Note: a MultiFragmentRandomizer is NOT thread-safe.
type MultiFragmentRandomizer struct {
	maps []FragmentMap
	rng  *rand.Rand
}

var _ Randomizer = (*MultiFragmentRandomizer)(nil)

// NewMultiFragmentRandomizer creates a randomizer over maps, for example one
// per restriction enzyme.
func NewMultiFragmentRandomizer(maps []FragmentMap, seed uint64) (*MultiFragmentRandomizer, error) {
	for _, m := range maps {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}

	return &MultiFragmentRandomizer{maps: maps, rng: newRand(seed)}, nil
}

func (r *MultiFragmentRandomizer) Position(chr, pos int) int {
	bestLo, bestHi, found := 0, 0, false
	for _, m := range r.maps {
		lo, hi, ok := m.fragment(chr, pos)
		if ok && (!found || hi-lo < bestHi-bestLo) {
			bestLo, bestHi, found = lo, hi, true
		}
	}
	if !found {
		return pos
	}

	return bestLo + r.rng.IntN(bestHi-bestLo)
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb)) //nolint:gosec
}
