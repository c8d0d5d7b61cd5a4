package nonce

import (
	"strings"
	"testing"
)

func TestGenerateFormat(t *testing.T) {
	tok := Generate("eu")
	if len(tok) != TokenLen {
		t.Fatalf("len = %d, want %d", len(tok), TokenLen)
	}
	if !strings.HasPrefix(tok, "eu") {
		t.Fatalf("token %q no tiene el prefijo de pool", tok)
	}
	if Pool(tok) != "eu" {
		t.Fatalf("Pool(%q) = %q", tok, Pool(tok))
	}
	// resto es hex
	for _, c := range tok[2:] {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Fatalf("caracter no-hex %q en %q", c, tok)
		}
	}
}

func TestGenerateInvalidPoolFallsBack(t *testing.T) {
	for _, pool := range []string{"", "e", "europe"} {
		if got := Generate(pool); !strings.HasPrefix(got, "xx") {
			t.Fatalf("Generate(%q) = %q, esperaba prefijo xx", pool, got)
		}
	}
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok := Generate("xx")
		if seen[tok] {
			t.Fatalf("token repetido: %s", tok)
		}
		seen[tok] = true
	}
}

func TestPoolFromHint(t *testing.T) {
	cases := []struct {
		hint string
		want string
	}{
		{"eu", "eu"},
		{"na", "na"},
		{"", "xx"},
	}
	for _, tc := range cases {
		if got := PoolFromHint(tc.hint); got != tc.want {
			t.Errorf("PoolFromHint(%q) = %q, want %q", tc.hint, got, tc.want)
		}
	}

	// hints arbitrarios: determinístico y de 2 letras
	a := PoolFromHint("us-east-1")
	b := PoolFromHint("us-east-1")
	if a != b {
		t.Fatalf("PoolFromHint no es determinístico: %q vs %q", a, b)
	}
	if len(a) != 2 || !isLowerAlpha(a) {
		t.Fatalf("pool derivado inválido: %q", a)
	}
}
