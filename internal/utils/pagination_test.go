package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		// empty -> default
		{"", 10, 10},
		// valid ints
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		// invalid -> default (no trim)
		{"x", 5, 5},
		{" 42", 7, 7},
		// overflow -> default
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestClampAndPageParams(t *testing.T) {
	if Clamp(-1, 0, 5) != 0 || Clamp(9, 0, 5) != 5 || Clamp(3, 0, 5) != 3 {
		t.Fatalf("Clamp bounds broken")
	}
	cases := []struct {
		page, limit         string
		wantPage, wantLimit int
	}{
		{"", "", 1, 12},
		{"0", "-4", 1, 12},
		{"3", "500", 3, 100},
		{"x", "20", 1, 20},
	}
	for _, tc := range cases {
		p, l := PageParams(tc.page, tc.limit, 12, 100)
		if p != tc.wantPage || l != tc.wantLimit {
			t.Fatalf("PageParams(%q, %q) = %d, %d; want %d, %d", tc.page, tc.limit, p, l, tc.wantPage, tc.wantLimit)
		}
	}
}
