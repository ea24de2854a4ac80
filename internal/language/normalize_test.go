package language

import "testing"

func TestNormalizeTag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
	}{
		{raw: "en", want: "en"},
		{raw: " EN-us ", want: "en-us"},
		{raw: "zh_Hans", want: "zh-hans"},
		{raw: "pt-BR", want: "pt-br"},
		{raw: "", want: ""},
		{raw: "  ", want: ""},
		{raw: "en--us", want: "en-us"},
		{raw: "e1", want: ""},
		{raw: "en us", want: ""},
	}

	for _, tc := range cases {
		if got := NormalizeTag(tc.raw); got != tc.want {
			t.Errorf("NormalizeTag(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
	}{
		{raw: "en-US", want: "en"},
		{raw: "zh-hant", want: "zh"},
		{raw: "fr", want: "fr"},
		{raw: "", want: ""},
	}

	for _, tc := range cases {
		if got := NormalizeCode(tc.raw); got != tc.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
