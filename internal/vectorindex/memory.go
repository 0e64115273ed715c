package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Memory is an in-process cosine-similarity index. It is the default backend
// for development and tests; contents vanish with the process.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemory returns an empty in-process index.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Upsert(_ context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range entries {
		vector := make([]float32, len(entry.Vector))
		copy(vector, entry.Vector)
		entry.Vector = vector
		m.entries[entry.ID] = entry
	}
	return nil
}

func (m *Memory) Query(_ context.Context, vector []float32, topK int, filter *Filter) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.entries))
	for _, entry := range m.entries {
		if filter != nil && filter.VideoID != "" && entry.Metadata.VideoID != filter.VideoID {
			continue
		}
		matches = append(matches, Match{
			ID:       entry.ID,
			Score:    cosineSimilarity(vector, entry.Vector),
			Metadata: entry.Metadata,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *Memory) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.entries, id)
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Len reports the number of stored vectors.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
