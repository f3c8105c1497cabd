package models

// ContestResult is one entry of an AtCoder rating history, in the order
// the provider returns it (assumed chronological).
type ContestResult struct {
	IsRated           bool
	Place             int
	OldRating         int
	NewRating         int
	Diff              int
	Performance       int
	ContestScreenName string
	ContestName       string
	EndTime           string
}

// RatingHistory holds both contest categories for one AtCoder account.
type RatingHistory struct {
	Algo []ContestResult
	Heur []ContestResult
}

// LatestRating returns the rating after the most recent contest, or 0 for
// an account that has not played any rated contest in the category.
func LatestRating(history []ContestResult) int {
	if len(history) == 0 {
		return 0
	}
	return history[len(history)-1].NewRating
}
