package testutil

import (
	"testing"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
)

func TestDefaultTestDBConfig(t *testing.T) {
	t.Run("defaults to local test database port 55432", func(t *testing.T) {
		for _, k := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME"} {
			t.Setenv(k, "")
		}
		cfg := DefaultTestDBConfig()
		want := TestDBConfig{Host: "localhost", Port: "55432", User: "gatekeeper", Password: "gatekeeper", DBName: "gatekeeper"}
		if cfg != want {
			t.Errorf("expected %+v, got %+v", want, cfg)
		}
	})

	t.Run("respects CI overrides", func(t *testing.T) {
		t.Setenv("TEST_DB_HOST", "postgres")
		t.Setenv("TEST_DB_PORT", "5432")
		cfg := DefaultTestDBConfig()
		if cfg.Host != "postgres" || cfg.Port != "5432" {
			t.Errorf("expected postgres:5432, got %s:%s", cfg.Host, cfg.Port)
		}
	})
}

func TestProfileInputBuilder(t *testing.T) {
	in := NewProfileInput("42").WithRank(domainauth.RankHighStaff).WithAvatar("abc").Build()
	if in.ExternalID != "42" || in.AvatarHandle != "abc" {
		t.Fatalf("unexpected input: %+v", in)
	}
	if !in.Assignment.IsAdmin || in.Assignment.Rank != domainauth.RankHighStaff {
		t.Fatalf("HighStaff must imply admin: %+v", in.Assignment)
	}
	if in.NextRankDeadline.IsZero() {
		t.Fatal("expected default deadline")
	}
}
