package security

import "testing"

func TestTextSanitizer_RemovesAllHTML(t *testing.T) {
	s := NewTextSanitizer()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"プレーンテキストはそのまま", "Fresh produce and local delicacies", "Fresh produce and local delicacies"},
		{"scriptタグは内容ごと除去", `before<script>alert("xss")</script>after`, "beforeafter"},
		{"許可タグなし", "<p>Nutmeg and <strong>local snacks</strong></p>", "Nutmeg and local snacks"},
		{"イベント属性付きタグ", `<img src="x" onerror="alert(1)">morning market`, "morning market"},
		{"空文字列", "", ""},
		{"前後の空白を除去", "  pasar pagi  ", "pasar pagi"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.Sanitize(tc.in); got != tc.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTextSanitizer_Idempotent(t *testing.T) {
	s := NewTextSanitizer()
	in := `<b>Chowrasta</b> market <script>x()</script>specialties`

	once := s.Sanitize(in)
	twice := s.Sanitize(once)
	if once != twice {
		t.Errorf("sanitize not idempotent: %q vs %q", once, twice)
	}
}

func TestTextSanitizer_SanitizeMarketText(t *testing.T) {
	s := NewTextSanitizer()

	desc, spec, high := s.SanitizeMarketText(
		"<p>Heritage wet market</p>",
		"nutmeg, <em>pickles</em>",
		`<script>bad()</script>rooftop view`,
	)

	if desc != "Heritage wet market" {
		t.Errorf("description = %q", desc)
	}
	if spec != "nutmeg, pickles" {
		t.Errorf("specialties = %q", spec)
	}
	if high != "rooftop view" {
		t.Errorf("highlights = %q", high)
	}
}
