package database

import (
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

const (
	// HNSWMaxNeighbors is the M parameter of the graph.
	HNSWMaxNeighbors = 16
	// hnswSearchMultiplier over-fetches candidates so owner filtering
	// still leaves k results.
	hnswSearchMultiplier = 8
)

type indexedVector struct {
	ownerID   int64
	embedding []float32
}

// VectorIndex is an in-memory HNSW accelerator over caption
// embeddings. The store remains the source of truth; the index is
// updated after each committed write and can be rebuilt from the store
// at any time. It only answers queries after MarkWarm: incremental
// adds alone leave it holding a fragment of the corpus, which must
// never shadow the store. Results are owner-filtered and re-scored
// with exact cosine similarity.
type VectorIndex struct {
	graph  *hnsw.Graph[int64]
	byID   map[int64]indexedVector
	warmed bool
	mu     sync.RWMutex
}

// NewVectorIndex creates an empty index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		byID: make(map[int64]indexedVector),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance
	return g
}

// Add inserts or replaces a vector in the index.
func (v *VectorIndex) Add(mediaID, ownerID int64, embedding []float32) {
	if len(embedding) == 0 {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.graph == nil {
		v.graph = newGraph()
	}
	v.graph.Add(hnsw.MakeNode(mediaID, embedding))
	v.byID[mediaID] = indexedVector{ownerID: ownerID, embedding: embedding}
}

// Delete removes a vector from the index.
// HNSW has no true deletion; dropping the lookup entry removes the id
// from results since every candidate is re-checked against the map.
func (v *VectorIndex) Delete(mediaID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.byID, mediaID)
}

// Reset clears the index before a rebuild. The index stops answering
// queries until the next MarkWarm.
func (v *VectorIndex) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.graph = nil
	v.byID = make(map[int64]indexedVector)
	v.warmed = false
}

// MarkWarm declares the index complete. Call after loading every
// stored vector; from then on incremental adds and deletes keep it
// in step with the store.
func (v *VectorIndex) MarkWarm() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.warmed = true
}

// Count returns the number of live indexed vectors.
func (v *VectorIndex) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.byID)
}

// Ready reports whether the index holds the full corpus and has a
// graph to search. False until MarkWarm, no matter how many vectors
// were added.
func (v *VectorIndex) Ready() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.warmed && v.graph != nil && len(v.byID) > 0
}

// Nearest returns up to k of the owner's vectors ranked by cosine
// similarity to the query, ties broken by media id ascending.
func (v *VectorIndex) Nearest(ownerID int64, query []float32, k int) []Neighbor {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.graph == nil || k <= 0 {
		return nil
	}

	searchK := k * hnswSearchMultiplier
	if searchK < 100 {
		searchK = 100
	}

	neighbors := v.graph.Search(query, searchK)

	results := make([]Neighbor, 0, k)
	for _, n := range neighbors {
		vec, ok := v.byID[n.Key]
		if !ok || vec.ownerID != ownerID {
			continue
		}
		results = append(results, Neighbor{
			MediaID: n.Key,
			Score:   CosineSimilarity(query, vec.embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].MediaID < results[j].MediaID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}
