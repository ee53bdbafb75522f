// File path: internal/llm/parse_test.go
package llm

import "testing"

func TestParseIndexSet(t *testing.T) {
	cases := []struct {
		name     string
		response string
		limit    int
		want     []int
	}{
		{"plain list", "0, 2, 5", 6, []int{0, 2, 5}},
		{"prose around numbers", "Keep items 1 and 3.", 5, []int{1, 3}},
		{"bracketed", "[0] (2)", 3, []int{0, 2}},
		{"out of range discarded", "1, 7, -2", 4, []int{1}},
		{"none keyword", "none", 4, nil},
		{"empty response", "", 4, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseIndexSet(tc.response, tc.limit)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for _, idx := range tc.want {
				if _, ok := got[idx]; !ok {
					t.Fatalf("missing index %d in %v", idx, got)
				}
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" token refresh , oauth ,, expiry \n")
	want := []string{"token refresh", "oauth", "expiry"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
