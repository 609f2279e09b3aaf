package symptomrx

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Split shuffles n sample indices with the split stream of seed and holds out
// ceil(testSize·n) of them for evaluation. Both sides are returned sorted.
func Split(n int, testSize float64, seed Seed) (train, test []int, err error) {
	if !(testSize > 0 && testSize < 1) {
		return nil, nil, fmt.Errorf("%w: test size must be in (0, 1), got %v", ErrInvalidParams, testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if n == 0 || nTest >= n {
		return nil, nil, fmt.Errorf("%w: %d samples cannot be split with test size %v", ErrNoSamples, n, testSize)
	}
	perm := seed.Stream(streamSplit).Perm(n)
	test = append([]int(nil), perm[:nTest]...)
	train = append([]int(nil), perm[nTest:]...)
	sort.Ints(test)
	sort.Ints(train)
	return train, test, nil
}

// Fold is one train/validation partition of a KFold.
type Fold struct {
	Train []int
	Test  []int
}

// KFold shuffles n indices and cuts them into k contiguous validation folds.
// The first n%k folds hold one extra sample so sizes differ by at most one.
func KFold(n, k int, rng *rand.Rand) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("%w: need at least 2 folds, got %d", ErrInvalidParams, k)
	}
	if n < k {
		return nil, fmt.Errorf("%w: %d samples for %d folds", ErrNoSamples, n, k)
	}
	perm := rng.Perm(n)
	folds := make([]Fold, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		end := start + size
		test := append([]int(nil), perm[start:end]...)
		train := make([]int, 0, n-size)
		train = append(train, perm[:start]...)
		train = append(train, perm[end:]...)
		sort.Ints(test)
		sort.Ints(train)
		folds[f] = Fold{Train: train, Test: test}
		start = end
	}
	return folds, nil
}

func pick[T any](xs []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = xs[j]
	}
	return out
}
