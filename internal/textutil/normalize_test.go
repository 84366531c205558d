package textutil

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "AI is great", "ai is great"},
		{"strips tags", "<p>Hello <b>World</b></p>", "hello world"},
		{"collapses punctuation", "breaking: AI -- again!!", "breaking ai again"},
		{"collapses whitespace", "  a\t\nb   c ", "a b c"},
		{"keeps digits", "GPT-4 turbo v2.1", "gpt 4 turbo v2 1"},
		{"only punctuation", "?!...---", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	input := "<h1>Some  TITLE, with <em>markup</em></h1>"
	once := Normalize(input)
	if twice := Normalize(once); twice != once {
		t.Fatalf("expected normalization to be idempotent, got %q then %q", once, twice)
	}
}
