package models

// User is the persisted row of the merged rating table, one per member
// known to the linkage source. Pointer fields map to nullable columns:
// rating fields are set only when an AtCoder account is linked, roster
// fields only when a matching traQ member exists.
type User struct {
	TrapAccountName string  `json:"trapAccountName"`
	AtCoderName     *string `json:"atcoderAccountName"`
	AtCoderRating   *int    `json:"atcoderRating"`
	HeuristicRating *int    `json:"heuristicRating"`
	IsAlgoTeam      *bool   `json:"isAlgoTeam"`
	IsActive        *bool   `json:"isActive"`
	Grade           *string `json:"grade"`
}
