package discogs

import "testing"

func TestScoreCandidate(t *testing.T) {
	tests := []struct {
		name      string
		candidate Candidate
		want      int
	}{
		{
			name: "exact both with year",
			candidate: Candidate{
				ArtistName: "Daft Punk",
				Title:      "Discovery",
				Years:      []string{"2001"},
			},
			want: scoreExact + scoreExact + scoreHasYear,
		},
		{
			name: "prefix artist substring title",
			candidate: Candidate{
				ArtistName: "Daft Punk Orchestra",
				Title:      "The Best of Discovery",
			},
			want: scorePrefix + scoreSubstring,
		},
		{
			name:      "no match",
			candidate: Candidate{ArtistName: "Air", Title: "Moon Safari"},
			want:      0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := scoreCandidate(tc.candidate, "daft punk", "discovery")
			if got != tc.want {
				t.Fatalf("score = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestScoreCandidateIgnoresDiacritics(t *testing.T) {
	candidate := Candidate{ArtistName: "Café Del Mar", Title: "Volumen Uno"}
	got := scoreCandidate(candidate, "cafe del mar", "volumen uno")
	if got != scoreExact*2 {
		t.Fatalf("score = %d, want %d", got, scoreExact*2)
	}
}
