package domain

import "fmt"

// KarmaDelta maps a review rating to the karma change applied to the host.
//
//	5, 4 -> +10
//	3    -> +5
//	2    ->  0
//	1    -> -1
//
// Any other rating returns ErrInvalidRating.
func KarmaDelta(rating int) (int, error) {
	switch rating {
	case 5, 4:
		return 10, nil
	case 3:
		return 5, nil
	case 2:
		return 0, nil
	case 1:
		return -1, nil
	}
	return 0, fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
}

// ValidRating reports whether rating is in 1..5.
func ValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}

// Badge returns the leaderboard badge for a karma total.
func Badge(karma int) string {
	switch {
	case karma >= 500:
		return "Master"
	case karma >= 200:
		return "Legend"
	case karma >= 100:
		return "Adventurer"
	case karma >= 50:
		return "Explorer"
	default:
		return "Beginner"
	}
}
