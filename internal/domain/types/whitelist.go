package types

// Whitelist lists the addresses allowed to create DACs, review campaigns and
// own projects, plus the fiat currencies offered for conversion.
//
// When Enforced is false every address passes every check.
type Whitelist struct {
	Enforced      bool      `json:"enforced"`
	Delegates     []Address `json:"delegateWhitelist"`
	Reviewers     []Address `json:"reviewerWhitelist"`
	ProjectOwners []Address `json:"projectOwnerWhitelist"`
	FiatWhitelist []string  `json:"fiatWhitelist"`
}

// IsDelegate reports whether addr may create and manage DACs.
func (w Whitelist) IsDelegate(addr Address) bool { return w.allowed(w.Delegates, addr) }

// IsReviewer reports whether addr may review campaigns and milestones.
func (w Whitelist) IsReviewer(addr Address) bool { return w.allowed(w.Reviewers, addr) }

// IsProjectOwner reports whether addr may create campaigns.
func (w Whitelist) IsProjectOwner(addr Address) bool { return w.allowed(w.ProjectOwners, addr) }

func (w Whitelist) allowed(list []Address, addr Address) bool {
	if addr.IsZero() {
		return false
	}
	if !w.Enforced {
		return true
	}
	for _, a := range list {
		if a.Equal(addr) {
			return true
		}
	}
	return false
}
