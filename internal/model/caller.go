package model

// Caller identifies the authenticated principal on whose behalf a core
// operation runs.  It is resolved by the request layer and passed to
// every service call explicitly.
type Caller struct {
	UserID uint64
	Role   Role
}

// Is reports whether the caller holds any of the given roles.
func (c Caller) Is(roles ...Role) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}
