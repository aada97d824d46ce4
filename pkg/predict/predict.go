// Package predict implements pluggable branch-direction predictors.
//
// A Predictor is queried with Predict before a branch is resolved and
// informed of the real outcome with Update afterward. Implementations
// must be total: Predict and Update never fail and never block.
package predict

import "math/bits"

// Outcome is a resolved or predicted branch direction.
type Outcome bool

// The two possible outcomes.
const (
	NotTaken Outcome = false
	Taken    Outcome = true
)

// Predictor is the polymorphic branch-direction predictor contract.
// Predict must be called exactly once per dynamic branch before the
// branch is resolved; Update must be called exactly once after, with
// the same pc.
type Predictor interface {
	// Predict returns the predicted direction of the branch at pc.
	Predict(pc uint32) Outcome

	// Update reports the resolved direction of the branch at pc.
	Update(pc uint32, actual Outcome)

	// Close releases any resources held by the predictor.
	Close()
}

// Stats is the mutable hit/miss tally the interpreter fills in as it
// drives a Predictor. Mispredictions never exceeds TotalBranches.
type Stats struct {
	TotalBranches  int64
	Mispredictions int64
}

// Record tallies one resolved branch against its prediction.
func (s *Stats) Record(predicted, actual Outcome) {
	s.TotalBranches++
	if predicted != actual {
		s.Mispredictions++
	}
}

// --- Never-taken -----------------------------------------------------------

// neverTaken always predicts NotTaken and carries no state.
type neverTaken struct{}

// NewNeverTaken returns a predictor that always predicts NotTaken.
func NewNeverTaken() Predictor { return neverTaken{} }

func (neverTaken) Predict(uint32) Outcome       { return NotTaken }
func (neverTaken) Update(uint32, Outcome) {}
func (neverTaken) Close()                 {}

var _ Predictor = neverTaken{}

// TargetAware is implemented by predictors whose prediction depends on
// the branch's target address rather than (or in addition to) its pc.
// The interpreter calls PredictTarget instead of Predict when a
// predictor implements this interface.
type TargetAware interface {
	Predictor
	PredictTarget(pc, target uint32) Outcome
}

// --- Backward-taken / forward-not-taken -------------------------------------

// backwardTaken predicts Taken iff the branch target is behind the
// branch itself. It carries no state and ignores Update.
type backwardTaken struct{}

// NewBackwardTaken returns a static predictor that predicts Taken for
// backward branches (loops) and NotTaken for forward branches.
func NewBackwardTaken() Predictor { return backwardTaken{} }

// PredictTarget is the BTFNT-specific entry point: the simulator knows
// the branch target address (computed from the B-immediate) before it
// asks for a prediction, and BTFNT needs the target, not just the pc,
// to decide. Predict (to satisfy Predictor) always returns NotTaken
// since it has no target to compare against; callers that can supply
// the target should call PredictTarget instead.
func (backwardTaken) PredictTarget(pc, target uint32) Outcome {
	return Outcome(target < pc)
}

func (backwardTaken) Predict(uint32) Outcome { return NotTaken }
func (backwardTaken) Update(uint32, Outcome) {}
func (backwardTaken) Close()                 {}

var _ Predictor = backwardTaken{}
var _ TargetAware = backwardTaken{}

// --- Shared 2-bit saturating counter table ----------------------------------

// counterTable is a power-of-two-sized table of 2-bit saturating
// counters, initialized to 2 (weakly taken). It backs both Bimodal
// and GShare, which differ only in how they compute the table index.
type counterTable struct {
	counters []uint8
	mask     uint32
}

func newCounterTable(size int) (*counterTable, bool) {
	if size <= 0 || (size&(size-1)) != 0 {
		return nil, false
	}
	t := &counterTable{
		counters: make([]uint8, size),
		mask:     uint32(size - 1),
	}
	for i := range t.counters {
		t.counters[i] = 2
	}
	return t, true
}

func (t *counterTable) predict(index uint32) Outcome {
	return Outcome(t.counters[index&t.mask] >= 2)
}

func (t *counterTable) update(index uint32, actual Outcome) {
	idx := index & t.mask
	ctr := t.counters[idx]
	if actual == Taken {
		if ctr < 3 {
			ctr++
		}
	} else {
		if ctr > 0 {
			ctr--
		}
	}
	t.counters[idx] = ctr
}

// --- Bimodal -----------------------------------------------------------------

// Bimodal is a table of 2-bit saturating counters indexed by the
// branch's own pc, with no history component.
type Bimodal struct {
	table *counterTable
}

// NewBimodal builds a Bimodal predictor with the given table size,
// which must be a power of two. It returns false on an invalid size,
// matching the "no predictor" construction-failure contract.
func NewBimodal(size int) (*Bimodal, bool) {
	t, ok := newCounterTable(size)
	if !ok {
		return nil, false
	}
	return &Bimodal{table: t}, true
}

func (b *Bimodal) index(pc uint32) uint32 { return pc >> 2 }

// Predict implements Predictor.
func (b *Bimodal) Predict(pc uint32) Outcome { return b.table.predict(b.index(pc)) }

// Update implements Predictor.
func (b *Bimodal) Update(pc uint32, actual Outcome) { b.table.update(b.index(pc), actual) }

// Close implements Predictor.
func (b *Bimodal) Close() {}

var _ Predictor = &Bimodal{}

// --- GShare ------------------------------------------------------------------

// GShare indexes the same kind of counter table as Bimodal, but XORs
// the pc with a global history register of recent branch outcomes,
// so correlated branches share table entries.
type GShare struct {
	table   *counterTable
	ghr     uint32
	ghrBits uint
}

// NewGShare builds a GShare predictor with the given table size, which
// must be a power of two. It returns false on an invalid size.
func NewGShare(size int) (*GShare, bool) {
	t, ok := newCounterTable(size)
	if !ok {
		return nil, false
	}
	return &GShare{table: t, ghrBits: uint(bits.Len(uint(size)) - 1)}, true
}

func (g *GShare) index(pc uint32) uint32 {
	return (pc >> 2) ^ (g.ghr & g.table.mask)
}

// Predict implements Predictor.
func (g *GShare) Predict(pc uint32) Outcome { return g.table.predict(g.index(pc)) }

// Update implements Predictor.
func (g *GShare) Update(pc uint32, actual Outcome) {
	g.table.update(g.index(pc), actual)
	g.ghr <<= 1
	if actual == Taken {
		g.ghr |= 1
	}
	g.ghr &= (uint32(1) << g.ghrBits) - 1
}

// Close implements Predictor.
func (g *GShare) Close() {}

var _ Predictor = &GShare{}

// Kind names the four predictor variants the CLI exposes via -b.
type Kind string

// The four supported predictor kinds, matching the -b CLI flag.
const (
	KindNeverTaken    Kind = "nt"
	KindBackwardTaken Kind = "btfnt"
	KindBimodal       Kind = "bimodal"
	KindGShare        Kind = "gshare"
)

// New constructs a predictor by kind. size is only consulted for the
// sized variants (bimodal, gshare) and must be a power of two for
// those. New returns (nil, false) on an unknown kind or a bad size —
// the interpreter tolerates a missing predictor by skipping all
// prediction work and leaving the statistics untouched.
func New(kind Kind, size int) (Predictor, bool) {
	switch kind {
	case KindNeverTaken:
		return NewNeverTaken(), true
	case KindBackwardTaken:
		return NewBackwardTaken(), true
	case KindBimodal:
		if b, ok := NewBimodal(size); ok {
			return b, true
		}
		return nil, false
	case KindGShare:
		if g, ok := NewGShare(size); ok {
			return g, true
		}
		return nil, false
	default:
		return nil, false
	}
}
