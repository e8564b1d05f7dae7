package contracts

// Principal is an authenticated caller identity. The host environment (API
// layer, test harness) authenticates the caller; engines only compare
// principals for ownership and authorization checks.
type Principal string

// Valid reports whether the principal carries an identity at all.
func (p Principal) Valid() bool { return p != "" }
