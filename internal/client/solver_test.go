package client

import "testing"

func TestSolve(t *testing.T) {
	cases := []struct {
		prompt string
		want   int64
	}{
		{"2 + 3", 5},
		{"4 * 6", 24},
		{"3 - 9", -6},
		{"24 / 6", 4},
		{"0 * 100", 0},
	}
	for _, tc := range cases {
		got, err := Solve(tc.prompt)
		if err != nil {
			t.Fatalf("Solve(%q): %v", tc.prompt, err)
		}
		if got != tc.want {
			t.Fatalf("Solve(%q) = %d, want %d", tc.prompt, got, tc.want)
		}
	}
}

func TestSolveRejectsMalformedPrompts(t *testing.T) {
	for _, prompt := range []string{"", "2 +", "2 + 3 + 4", "x + y", "2 ^ 3", "1 / 0"} {
		if _, err := Solve(prompt); err == nil {
			t.Fatalf("expected error for %q", prompt)
		}
	}
}
