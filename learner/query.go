package learner

import (
	"math/rand"
	"sort"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/pkg/errors"
	"github.com/atomlearn/atomlearn/trainer"
)

// QueryStrategy selects which candidate configurations from a round's
// trajectory get labeled by the parent calculator. Candidates arrive
// deduplicated; Select must return at most n images, in the order they
// should be appended to the training set.
type QueryStrategy interface {
	Select(candidates []atoms.Image, n int) ([]atoms.Image, error)
}

// RandomQuery picks n candidates uniformly without replacement. It is the
// default strategy; the seeded source makes runs reproducible.
type RandomQuery struct {
	rng *rand.Rand
}

// NewRandomQuery creates a RandomQuery with the given seed.
func NewRandomQuery(seed int64) *RandomQuery {
	return &RandomQuery{rng: rand.New(rand.NewSource(seed))}
}

// Select implements QueryStrategy.
func (q *RandomQuery) Select(candidates []atoms.Image, n int) ([]atoms.Image, error) {
	if len(candidates) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyDataset, "RandomQuery.Select")
	}
	if n >= len(candidates) {
		out := make([]atoms.Image, len(candidates))
		copy(out, candidates)
		return out, nil
	}
	idx := q.rng.Perm(len(candidates))[:n]
	// Keep trajectory order so training-set append order stays
	// deterministic and meaningful.
	sort.Ints(idx)
	out := make([]atoms.Image, 0, n)
	for _, i := range idx {
		out = append(out, candidates[i])
	}
	return out, nil
}

// SpacedQuery picks n candidates evenly spaced along the trajectory,
// always including the final geometry.
type SpacedQuery struct{}

// Select implements QueryStrategy.
func (q SpacedQuery) Select(candidates []atoms.Image, n int) ([]atoms.Image, error) {
	if len(candidates) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyDataset, "SpacedQuery.Select")
	}
	if n >= len(candidates) {
		out := make([]atoms.Image, len(candidates))
		copy(out, candidates)
		return out, nil
	}
	out := make([]atoms.Image, 0, n)
	last := len(candidates) - 1
	for k := 0; k < n; k++ {
		// Spread over [0, last], landing exactly on the final image.
		i := last * (k + 1) / n
		out = append(out, candidates[i])
	}
	return out, nil
}

// MaxUncertaintyQuery picks the n candidates the model is least certain
// about, in trajectory order. It requires a trainer that can attach
// uncertainties to predictions.
type MaxUncertaintyQuery struct {
	p trainer.UncertaintyPredictor
}

// NewMaxUncertaintyQuery creates a MaxUncertaintyQuery backed by p.
func NewMaxUncertaintyQuery(p trainer.UncertaintyPredictor) *MaxUncertaintyQuery {
	return &MaxUncertaintyQuery{p: p}
}

// Select implements QueryStrategy.
func (q *MaxUncertaintyQuery) Select(candidates []atoms.Image, n int) ([]atoms.Image, error) {
	if len(candidates) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyDataset, "MaxUncertaintyQuery.Select")
	}
	if n >= len(candidates) {
		out := make([]atoms.Image, len(candidates))
		copy(out, candidates)
		return out, nil
	}

	type scored struct {
		idx int
		std float64
	}
	scores := make([]scored, len(candidates))
	for i, img := range candidates {
		_, std, err := q.p.PredictWithStd(img.Atoms)
		if err != nil {
			return nil, errors.Wrap(err, "MaxUncertaintyQuery.Select")
		}
		scores[i] = scored{idx: i, std: std}
	}
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].std > scores[b].std })
	idx := make([]int, n)
	for k := 0; k < n; k++ {
		idx[k] = scores[k].idx
	}
	sort.Ints(idx)

	out := make([]atoms.Image, 0, n)
	for _, i := range idx {
		out = append(out, candidates[i])
	}
	return out, nil
}

// dedupe drops candidates whose geometry fingerprint was already seen,
// preserving order. It guarantees a round's batch never labels the same
// geometry twice.
func dedupe(candidates []atoms.Image) []atoms.Image {
	seen := make(map[uint64]struct{}, len(candidates))
	out := make([]atoms.Image, 0, len(candidates))
	for _, img := range candidates {
		fp := atoms.Fingerprint(img.Atoms)
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, img)
	}
	return out
}
