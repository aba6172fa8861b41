package feed

import (
	"errors"
	"testing"
)

func TestProviderID(t *testing.T) {
	cases := []struct {
		chain string
		want  string
	}{
		{"ethereum", "ethereum"},
		{"polygon", "matic-network"},
		{"bitcoin", "bitcoin"},
		{"solana", "solana"},
		{"ETHEREUM", "ethereum"},
		{"Polygon", "matic-network"},
	}

	for _, tc := range cases {
		got, err := ProviderID(tc.chain)
		if err != nil {
			t.Fatalf("ProviderID(%q): %v", tc.chain, err)
		}
		if got != tc.want {
			t.Fatalf("ProviderID(%q) = %q, want %q", tc.chain, got, tc.want)
		}
	}
}

func TestProviderIDUnsupported(t *testing.T) {
	if _, err := ProviderID("dogecoin"); !errors.Is(err, ErrUnsupportedChain) {
		t.Fatalf("expected ErrUnsupportedChain, got %v", err)
	}
}

func TestSupported(t *testing.T) {
	if !Supported("Bitcoin") {
		t.Fatal("bitcoin should be supported regardless of case")
	}
	if Supported("dogecoin") {
		t.Fatal("dogecoin should not be supported")
	}
}
