package env

import "testing"

func TestGetTrimsAndFallsBack(t *testing.T) {
	t.Setenv("CATALOG_ENV_TEST", "  value ")
	t.Setenv("CATALOG_ENV_BLANK", "   ")

	if got := Get("CATALOG_ENV_TEST", "x"); got != "value" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if got := Get("CATALOG_ENV_BLANK", "x"); got != "x" {
		t.Fatalf("blank should fall back, got %q", got)
	}
}

func TestFirst(t *testing.T) {
	t.Setenv("CATALOG_ENV_A", "")
	t.Setenv("CATALOG_ENV_B", "b")
	if got := First("CATALOG_ENV_A", "CATALOG_ENV_B"); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
	if got := First("CATALOG_ENV_A"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
