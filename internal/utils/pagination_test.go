package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 10, 10},
		{"42", 0, 42},
		{"-13", 1, -13},
		{"x", 5, 5},
		{" 42", 7, 7},
		{"999999999999999999999999", -1, -1},
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestParsePage(t *testing.T) {
	cases := []struct {
		page, size string
		want       Page
	}{
		{"", "", Page{1, DefaultPageSize}},
		{"3", "10", Page{3, 10}},
		{"0", "0", Page{1, 1}},
		{"-2", "-5", Page{1, 1}},
		{"x", "y", Page{1, DefaultPageSize}},
		{"2", "1000", Page{2, MaxPageSize}},
	}
	for _, tc := range cases {
		if got := ParsePage(tc.page, tc.size); got != tc.want {
			t.Fatalf("ParsePage(%q, %q) = %+v; want %+v", tc.page, tc.size, got, tc.want)
		}
	}
}

func TestNewPage_DefaultsZeroSize(t *testing.T) {
	if got := NewPage(0, 0); got != (Page{1, DefaultPageSize}) {
		t.Fatalf("got %+v", got)
	}
}

func TestPageWindow(t *testing.T) {
	p := NewPage(3, 20)
	if p.Offset() != 40 {
		t.Fatalf("offset=%d", p.Offset())
	}
	if p.TotalPages(41) != 3 || p.HasNext(41) {
		t.Fatalf("41 rows: pages=%d next=%v", p.TotalPages(41), p.HasNext(41))
	}
	if p.TotalPages(61) != 4 || !p.HasNext(61) {
		t.Fatalf("61 rows: pages=%d next=%v", p.TotalPages(61), p.HasNext(61))
	}
	if p.TotalPages(0) != 0 || p.HasNext(0) {
		t.Fatal("empty result has no pages")
	}
}
