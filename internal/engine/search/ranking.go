package search

import (
	"cmp"
	"slices"

	"github.com/rendis/templestay/internal/model"
)

// Rank stable-sorts venues in place by key. Equal keys keep their input order,
// so re-ranking an already distance-sorted list by popularity is deterministic.
func Rank(venues []model.Venue, key model.SortKey) {
	slices.SortStableFunc(venues, compareBy(key))
}

// Ranked returns a sorted copy, leaving venues untouched.
func Ranked(venues []model.Venue, key model.SortKey) []model.Venue {
	out := slices.Clone(venues)
	Rank(out, key)
	return out
}

func compareBy(key model.SortKey) func(a, b model.Venue) int {
	switch key {
	case model.SortPopularity:
		return func(a, b model.Venue) int {
			return cmp.Compare(b.PopularityScore, a.PopularityScore)
		}
	case model.SortDistance:
		return func(a, b model.Venue) int {
			return compareMissingLast(a.DistanceKm, b.DistanceKm)
		}
	case model.SortRecency:
		return func(a, b model.Venue) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		}
	case model.SortPriceAscending:
		return func(a, b model.Venue) int {
			return compareMissingLast(a.PriceTier, b.PriceTier)
		}
	}
	return func(a, b model.Venue) int { return 0 }
}

// compareMissingLast orders ascending with nil treated as larger than any value.
func compareMissingLast[T cmp.Ordered](a, b *T) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}
