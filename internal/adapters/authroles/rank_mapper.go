package authroles

import (
	"slices"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
)

// RankMapper maps Discord guild role IDs to a clan rank by fixed precedence:
// HighStaff > Main > Test > Newbie. Empty configured IDs never match.
type RankMapper struct {
	HighStaff string
	Main      string
	Test      string
	Newbie    string
}

// Map returns the highest rank present in roleIDs. The boolean is false when none match.
// IsAdmin is true exactly when the HighStaff role is held.
func (m RankMapper) Map(roleIDs []string) (domainauth.RankAssignment, bool) {
	for _, c := range m.precedence() {
		if c.roleID != "" && slices.Contains(roleIDs, c.roleID) {
			return domainauth.RankAssignment{
				Rank:    c.rank,
				IsAdmin: c.rank == domainauth.RankHighStaff,
			}, true
		}
	}
	return domainauth.RankAssignment{Rank: domainauth.RankNone}, false
}

type rankRole struct {
	rank   domainauth.Rank
	roleID string
}

func (m RankMapper) precedence() [4]rankRole {
	return [4]rankRole{
		{domainauth.RankHighStaff, m.HighStaff},
		{domainauth.RankMain, m.Main},
		{domainauth.RankTest, m.Test},
		{domainauth.RankNewbie, m.Newbie},
	}
}
