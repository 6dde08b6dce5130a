package vinyl

import "testing"

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("33T"); err != nil || f != Format33 {
		t.Fatalf("ParseFormat(33T) = %v, %v", f, err)
	}
	if _, err := ParseFormat("8-track"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNormalizeGuess(t *testing.T) {
	tests := []struct {
		raw  string
		want Format
	}{
		{"33T", Format33},
		{"LP, Album", Format33},
		{"vinyl lp", Format33},
		{"7\" single", Format45},
		{"12\" maxi single", FormatMaxi45},
		{"Maxi 45 tours", FormatMaxi45},
		{"78 rpm shellac", Format78},
		{"mixed speeds", FormatMixed},
		{"", FormatUnknown},
		{"cassette", FormatUnknown},
	}
	for _, tc := range tests {
		if got := NormalizeGuess(tc.raw); got != tc.want {
			t.Errorf("NormalizeGuess(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestFromDiscogs(t *testing.T) {
	tests := []struct {
		descs []string
		want  Format
	}{
		{[]string{"Vinyl", "LP", "Album"}, Format33},
		{[]string{"Vinyl", "7\"", "45 RPM", "Single"}, Format45},
		{[]string{"Vinyl", "12\"", "45 RPM", "Maxi-Single"}, FormatMaxi45},
		{[]string{"Shellac", "10\"", "78 RPM"}, Format78},
		{nil, FormatUnknown},
	}
	for _, tc := range tests {
		if got := FromDiscogs(tc.descs); got != tc.want {
			t.Errorf("FromDiscogs(%v) = %v, want %v", tc.descs, got, tc.want)
		}
	}
}
