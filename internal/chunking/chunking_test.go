package chunking

import (
	"reflect"
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"hello world", 3},
	}
	for _, tc := range cases {
		if got := EstimateTokens(tc.text); got != tc.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestChunkEmptyInput(t *testing.T) {
	if got := Chunk(nil, Options{ChunkSize: 100, ChunkOverlap: 10}); got != nil {
		t.Fatalf("expected nil for empty input, got %+v", got)
	}
}

func TestChunkBoundarySplitWithOverlap(t *testing.T) {
	segments := []Segment{
		{Text: "a", StartTime: 0, EndTime: 2},
		{Text: "b", StartTime: 2, EndTime: 4},
		{Text: "c", StartTime: 4, EndTime: 6},
	}

	pieces := Chunk(segments, Options{ChunkSize: 2, ChunkOverlap: 1})
	if len(pieces) != 2 {
		t.Fatalf("got %d pieces, want 2: %+v", len(pieces), pieces)
	}

	first := pieces[0]
	if first.Text != "a b" || first.StartTime != 0 || first.EndTime != 4 || first.Ordinal != 0 {
		t.Fatalf("first chunk = %+v", first)
	}
	second := pieces[1]
	if second.Text != "b c" || second.StartTime != 2 || second.EndTime != 6 || second.Ordinal != 1 {
		t.Fatalf("second chunk = %+v", second)
	}
}

func TestChunkOverlapProperty(t *testing.T) {
	segments := []Segment{
		{Text: "the quick brown fox", StartTime: 0, EndTime: 3},
		{Text: "jumps over the lazy dog", StartTime: 3, EndTime: 6},
		{Text: "and keeps on running home", StartTime: 6, EndTime: 9},
	}
	const overlap = 2

	pieces := Chunk(segments, Options{ChunkSize: 6, ChunkOverlap: overlap})
	if len(pieces) < 2 {
		t.Fatalf("expected a split, got %+v", pieces)
	}

	for i := 1; i < len(pieces); i++ {
		prevWords := strings.Fields(pieces[i-1].Text)
		carry := overlap
		if len(prevWords) < carry {
			carry = len(prevWords)
		}
		wantPrefix := strings.Join(prevWords[len(prevWords)-carry:], " ")
		if !strings.HasPrefix(pieces[i].Text, wantPrefix) {
			t.Fatalf("chunk %d %q does not begin with overlap %q from chunk %d %q",
				i, pieces[i].Text, wantPrefix, i-1, pieces[i-1].Text)
		}
	}
}

func TestChunkDeterministic(t *testing.T) {
	segments := []Segment{
		{Text: "first segment of speech", StartTime: 0, EndTime: 4},
		{Text: "second segment follows here", StartTime: 4, EndTime: 8},
		{Text: "third closes the recording", StartTime: 8, EndTime: 12},
	}
	opts := Options{ChunkSize: 8, ChunkOverlap: 1}

	first := Chunk(segments, opts)
	second := Chunk(segments, opts)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("chunking is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestChunkOrdinalsContiguous(t *testing.T) {
	var segments []Segment
	for i := 0; i < 20; i++ {
		segments = append(segments, Segment{
			Text:      "some words in this segment",
			StartTime: float64(i * 2),
			EndTime:   float64(i*2 + 2),
		})
	}

	pieces := Chunk(segments, Options{ChunkSize: 15, ChunkOverlap: 3})
	if len(pieces) == 0 {
		t.Fatal("expected chunks")
	}
	for i, piece := range pieces {
		if piece.Ordinal != i {
			t.Fatalf("piece %d has ordinal %d", i, piece.Ordinal)
		}
	}
}

func TestChunkOversizedSegmentEmittedWhole(t *testing.T) {
	big := strings.Repeat("word ", 200)
	segments := []Segment{
		{Text: "short intro", StartTime: 0, EndTime: 1},
		{Text: strings.TrimSpace(big), StartTime: 1, EndTime: 60},
	}

	pieces := Chunk(segments, Options{ChunkSize: 10, ChunkOverlap: 2})
	found := false
	for _, piece := range pieces {
		if strings.Contains(piece.Text, strings.TrimSpace(big)) {
			found = true
		}
	}
	if !found {
		t.Fatal("oversized segment was split mid-segment")
	}
}

func TestChunkOverlapCappedAtAvailableWords(t *testing.T) {
	segments := []Segment{
		{Text: "solo", StartTime: 0, EndTime: 1},
		{Text: "next part arrives now quickly", StartTime: 1, EndTime: 3},
	}

	pieces := Chunk(segments, Options{ChunkSize: 1, ChunkOverlap: 10})
	if len(pieces) != 2 {
		t.Fatalf("got %d pieces: %+v", len(pieces), pieces)
	}
	if !strings.HasPrefix(pieces[1].Text, "solo ") {
		t.Fatalf("expected capped overlap 'solo', got %q", pieces[1].Text)
	}
}

func TestChunkSingleBufferNoSplit(t *testing.T) {
	segments := []Segment{
		{Text: "all", StartTime: 0, EndTime: 1},
		{Text: "fits", StartTime: 1, EndTime: 2},
	}

	pieces := Chunk(segments, Options{ChunkSize: 100, ChunkOverlap: 5})
	if len(pieces) != 1 {
		t.Fatalf("got %d pieces: %+v", len(pieces), pieces)
	}
	piece := pieces[0]
	if piece.Text != "all fits" || piece.StartTime != 0 || piece.EndTime != 2 {
		t.Fatalf("piece = %+v", piece)
	}
	if piece.TokenEstimate != EstimateTokens("all")+EstimateTokens("fits") {
		t.Fatalf("token estimate = %d", piece.TokenEstimate)
	}
}
