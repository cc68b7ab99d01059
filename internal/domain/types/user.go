package types

// User is a profile registered on the remote service for an address.
type User struct {
	Address  Address `json:"address"`
	Name     string  `json:"name"`
	Email    string  `json:"email,omitempty"`
	Avatar   string  `json:"avatar,omitempty"`
	LinkedIn string  `json:"linkedin,omitempty"`
	GiverID  int64   `json:"giverId,omitempty"`
}

// HasProfile reports whether the user has filled in the minimum profile.
func (u *User) HasProfile() bool { return u != nil && u.Name != "" }

// Session is the resolved result of the session stage.
//
// CurrentUser is nil for anonymous visitors (no wallet account).
type Session struct {
	CurrentUser *User `json:"currentUser,omitempty"`
	// FromCache is set when the profile was served from the preference store
	// because the remote service could not be reached.
	FromCache bool `json:"fromCache,omitempty"`
}

// IsOwner reports whether user owns an entity owned by owner.
func IsOwner(owner Address, user *User) bool {
	return user != nil && owner.Equal(user.Address)
}
