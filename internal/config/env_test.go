package config

import "testing"

func TestEnv(t *testing.T) {
	t.Run("set to yes", func(t *testing.T) {
		t.Setenv("CHATLOAD_TEST_VAR", "yes")
		if !Env("CHATLOAD_TEST_VAR") {
			t.Fatal("expected true")
		}
	})

	t.Run("set to other value", func(t *testing.T) {
		t.Setenv("CHATLOAD_TEST_VAR", "no")
		if Env("CHATLOAD_TEST_VAR") {
			t.Fatal("expected false")
		}
	})

	t.Run("unset", func(t *testing.T) {
		if Env("CHATLOAD_NONEXISTENT_VAR") {
			t.Fatal("expected false for unset var")
		}
	})
}

func TestEnvOrDefault(t *testing.T) {
	t.Run("uses env value when set", func(t *testing.T) {
		t.Setenv("CHATLOAD_TEST_PATH", "/tmp/custom")
		if got := EnvOrDefault("CHATLOAD_TEST_PATH", "/tmp/default"); got != "/tmp/custom" {
			t.Fatalf("got %q, want /tmp/custom", got)
		}
	})

	t.Run("falls back to default when unset", func(t *testing.T) {
		if got := EnvOrDefault("CHATLOAD_TEST_PATH_UNSET", "/tmp/default"); got != "/tmp/default" {
			t.Fatalf("got %q, want /tmp/default", got)
		}
	})
}
