package auth

// User is the capability record the workspace core consumes. It is loaded by
// the caller and passed in explicitly; core packages never read entitlement
// state from globals.
type User struct {
	ID      uint64
	Email   string
	Name    string
	Picture string

	IsPremium             bool
	IsAdmin               bool
	HasAdSupportedPremium bool

	// SaveHistory gates project persistence entirely.
	SaveHistory bool
}

// EffectivePremium reports whether the user holds a paid premium entitlement
// (ad-supported premium does not count for gated actions).
func (u User) EffectivePremium() bool {
	return u.IsPremium && !u.HasAdSupportedPremium
}
