package authroles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
)

func testMapper() RankMapper {
	return RankMapper{HighStaff: "100", Main: "200", Test: "300", Newbie: "400"}
}

func TestRankMapper_Map(t *testing.T) {
	tests := []struct {
		name    string
		roles   []string
		want    domainauth.RankAssignment
		matched bool
	}{
		{"high staff with newbie", []string{"400", "100"}, domainauth.RankAssignment{Rank: domainauth.RankHighStaff, IsAdmin: true}, true},
		{"main over test", []string{"300", "200"}, domainauth.RankAssignment{Rank: domainauth.RankMain}, true},
		{"test only", []string{"300"}, domainauth.RankAssignment{Rank: domainauth.RankTest}, true},
		{"newbie only", []string{"400"}, domainauth.RankAssignment{Rank: domainauth.RankNewbie}, true},
		{"unrelated roles", []string{"999", "888"}, domainauth.RankAssignment{}, false},
		{"no roles", nil, domainauth.RankAssignment{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := testMapper().Map(tt.roles)
			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRankMapper_AdminIffHighStaff(t *testing.T) {
	all := []string{"100", "200", "300", "400"}
	for i := range all {
		roles := all[i:]
		got, ok := testMapper().Map(roles)
		assert.True(t, ok)
		assert.Equal(t, got.Rank == domainauth.RankHighStaff, got.IsAdmin, "roles %v", roles)
	}
}

func TestRankMapper_EmptyConfiguredIDsNeverMatch(t *testing.T) {
	m := RankMapper{Main: "200"}
	_, ok := m.Map([]string{""})
	assert.False(t, ok)

	got, ok := m.Map([]string{"", "200"})
	assert.True(t, ok)
	assert.Equal(t, domainauth.RankMain, got.Rank)
}

func TestRankMapper_OrderIndependent(t *testing.T) {
	a, _ := testMapper().Map([]string{"100", "200", "300"})
	b, _ := testMapper().Map([]string{"300", "200", "100"})
	assert.Equal(t, a, b)
}
