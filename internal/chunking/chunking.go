// Package chunking merges ordered transcript segments into overlapping
// chunks sized by a token budget. The engine is a pure function: the same
// segments and options always yield the same chunks.
package chunking

import "strings"

// Segment is one transcript unit, ordered by time.
type Segment struct {
	Text      string
	StartTime float64
	EndTime   float64
}

// Piece is one merged chunk produced by the engine. Ordinals are contiguous
// from zero.
type Piece struct {
	Ordinal       int
	Text          string
	StartTime     float64
	EndTime       float64
	TokenEstimate int
}

// Options controls the token budget per chunk and the trailing word overlap
// carried into the next chunk.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

// EstimateTokens approximates the token count of text as ceil(len/4). A fixed
// heuristic, not a real tokenizer; determinism matters more than accuracy.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// Chunk runs a greedy forward pass over segments. A buffer accumulates
// segment text until adding the next segment would exceed the token budget;
// the buffer is then finalized and a new one is seeded with the last
// ChunkOverlap words of the finalized text. A single segment larger than the
// budget is still emitted whole; there is no mid-segment splitting.
func Chunk(segments []Segment, opts Options) []Piece {
	if len(segments) == 0 {
		return nil
	}

	var (
		pieces    []Piece
		buffer    strings.Builder
		tokens    int
		startTime float64
		endTime   float64
		// lastSegStart is the start time of the most recent segment in the
		// buffer. An overlap seed carries words from that segment, so the
		// next chunk's time range reaches back to it.
		lastSegStart float64
	)

	finalize := func() {
		text := strings.TrimSpace(buffer.String())
		if text == "" {
			return
		}
		pieces = append(pieces, Piece{
			Ordinal:       len(pieces),
			Text:          text,
			StartTime:     startTime,
			EndTime:       endTime,
			TokenEstimate: tokens,
		})
	}

	for _, segment := range segments {
		segmentTokens := EstimateTokens(segment.Text)

		if buffer.Len() > 0 && tokens+segmentTokens > opts.ChunkSize {
			finalize()
			overlap := trailingWords(strings.TrimSpace(buffer.String()), opts.ChunkOverlap)

			buffer.Reset()
			startTime = segment.StartTime
			if overlap != "" {
				buffer.WriteString(overlap)
				buffer.WriteByte(' ')
				startTime = lastSegStart
			}
			buffer.WriteString(segment.Text)
			tokens = EstimateTokens(overlap) + segmentTokens
			endTime = segment.EndTime
			lastSegStart = segment.StartTime
			continue
		}

		if buffer.Len() == 0 {
			startTime = segment.StartTime
		} else {
			buffer.WriteByte(' ')
		}
		buffer.WriteString(segment.Text)
		tokens += segmentTokens
		endTime = segment.EndTime
		lastSegStart = segment.StartTime
	}

	finalize()
	return pieces
}

// trailingWords returns the last count words of text, capped at availability.
func trailingWords(text string, count int) string {
	if count <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) > count {
		words = words[len(words)-count:]
	}
	return strings.Join(words, " ")
}
