package admin

import (
	"sort"
	"strings"

	"github.com/mbolis/surveydesk/model"
	"github.com/mbolis/surveydesk/store"
)

// Capability names a permission carried in the access token.
type Capability string

const (
	AccessAdmin      Capability = "admin.access"
	ManageSurveys    Capability = "surveys.manage"
	ViewAllResponses Capability = "responses.view_all"
)

// CapabilitiesFor derives a user's capabilities from their account flags.
func CapabilitiesFor(u model.User) []Capability {
	switch {
	case u.IsSuperuser:
		return []Capability{AccessAdmin, ManageSurveys, ViewAllResponses}
	case u.IsStaff:
		return []Capability{AccessAdmin, ManageSurveys}
	}
	return nil
}

// Principal is the authenticated caller.
type Principal struct {
	UserID   int
	Username string
	Caps     map[Capability]bool
}

func NewPrincipal(userID int, username string, caps ...Capability) Principal {
	p := Principal{UserID: userID, Username: username, Caps: map[Capability]bool{}}
	for _, c := range caps {
		p.Caps[c] = true
	}
	return p
}

func (p Principal) Can(c Capability) bool {
	return p.Caps[c]
}

// EncodeCaps and ParseCaps convert capabilities to and from the comma separated
// token claim.
func EncodeCaps(caps []Capability) string {
	names := make([]string, 0, len(caps))
	for _, c := range caps {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func ParseCaps(claim string) []Capability {
	var caps []Capability
	for _, name := range strings.Split(claim, ",") {
		if name = strings.TrimSpace(name); name != "" {
			caps = append(caps, Capability(name))
		}
	}
	return caps
}

// ScopeResponses restricts a response listing to what p may see: everything with
// ViewAllResponses, otherwise only p's own responses.
func ScopeResponses(p Principal, f store.ResponseFilter) store.ResponseFilter {
	if p.Can(ViewAllResponses) {
		f.OwnerID = nil
		return f
	}
	owner := p.UserID
	f.OwnerID = &owner
	return f
}

// CanSeeResponse applies the same rule to a single response.
func CanSeeResponse(p Principal, r model.Response) bool {
	return p.Can(ViewAllResponses) || r.UserID == p.UserID
}
