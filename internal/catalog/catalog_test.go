package catalog

import "testing"

func TestGetKnownPackages(t *testing.T) {
	cases := []struct {
		id     string
		tokens int64
		price  int64
	}{
		{"basic", 10_000, 49_900},
		{"pro", 30_000, 129_900},
		{"elite", 100_000, 349_900},
	}
	for _, tc := range cases {
		pkg, ok := Get(tc.id)
		if !ok {
			t.Fatalf("expected package %q", tc.id)
		}
		if pkg.Tokens != tc.tokens {
			t.Fatalf("package %q tokens = %d, want %d", tc.id, pkg.Tokens, tc.tokens)
		}
		if pkg.PriceMinor != tc.price {
			t.Fatalf("package %q price = %d, want %d", tc.id, pkg.PriceMinor, tc.price)
		}
		if pkg.Currency != "INR" {
			t.Fatalf("package %q currency = %q, want INR", tc.id, pkg.Currency)
		}
	}
}

func TestGetUnknownPackage(t *testing.T) {
	if _, ok := Get("platinum"); ok {
		t.Fatal("expected miss for unknown package")
	}
	if _, ok := Get(""); ok {
		t.Fatal("expected miss for empty package id")
	}
}

func TestAllIsCopy(t *testing.T) {
	all := All()
	if len(all) != 3 {
		t.Fatalf("expected 3 packages, got %d", len(all))
	}
	all[0].Tokens = 0
	if pkg, _ := Get(all[0].ID); pkg.Tokens == 0 {
		t.Fatal("All must not expose internal state")
	}
}
