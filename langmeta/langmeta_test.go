package langmeta

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "cs_cz", want: "cs-CZ"},
		{in: " EN-us ", want: "en-US"},
		{in: "ru", want: "ru"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		got := canonicalize(tc.in)
		if got != tc.want {
			t.Fatalf("canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		got := Resolve("en-GB")
		if got.Name != "English (UK)" || got.Flag == "" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("normalized match", func(t *testing.T) {
		got := Resolve("de_at")
		if got.Name != "Deutsch (Österreich)" || got.Flag == "" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("base fallback", func(t *testing.T) {
		got := Resolve("cs-SK")
		if got.Name != "Čeština" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("unknown passthrough", func(t *testing.T) {
		got := Resolve("tlh")
		if got.Name != "tlh" || got.Flag != "" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})
}

func TestPairLabel(t *testing.T) {
	if got := PairLabel("cs-en"); got != "🇨🇿 Čeština → 🇺🇸 English" {
		t.Fatalf("PairLabel(cs-en) = %q", got)
	}
	if got := PairLabel("weird"); got != "weird" {
		t.Fatalf("PairLabel(weird) = %q", got)
	}
}
