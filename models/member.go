package models

// Member is a traQ roster entry. Rebuilt from scratch on every sync run,
// never persisted directly.
type Member struct {
	TrapAccountName string
	IsActive        bool
	IsAlgoTeam      bool
	Grade           *string
}

// LinkedAccount maps a traQ member to their AtCoder account, if any.
// AtCoderName stays nil for members without a registered account.
type LinkedAccount struct {
	TrapAccountName string
	AtCoderName     *string
}
