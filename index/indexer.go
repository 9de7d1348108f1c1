// Package index keeps trace vectors searchable and recent trace records at hand.
package index

import (
	"fmt"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/Paranoid-AF/vctrace"
)

// TraceIndex is an in-memory HNSW graph of trace vectors keyed by request ID.
// Trace vectors are unit length, so Euclidean neighbours are cosine neighbours;
// Euclidean distance also stays finite for all-zero traces.
//
// The graph is append-only. Replacing or removing a trace rebuilds it from
// vectors, the authoritative set of live traces.
type TraceIndex struct {
	dim  int
	opts Options

	mu      sync.RWMutex
	graph   *hnsw.Graph[string]
	vectors map[string][]float32
}

// Options tunes the HNSW graph. Zero values keep the library defaults.
type Options struct {
	M        int
	EfSearch int
}

// NewTraceIndex creates an index for vectors of dimension dim.
func NewTraceIndex(dim int, opts Options) *TraceIndex {
	return &TraceIndex{
		dim:     dim,
		opts:    opts,
		graph:   newGraph(opts),
		vectors: make(map[string][]float32),
	}
}

func newGraph(opts Options) *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.Distance = hnsw.EuclideanDistance
	if opts.M > 0 {
		g.M = opts.M
	}
	if opts.EfSearch > 0 {
		g.EfSearch = opts.EfSearch
	}
	return g
}

// Dim returns the vector dimension the index accepts.
func (idx *TraceIndex) Dim() int { return idx.dim }

// Len returns the number of indexed traces.
func (idx *TraceIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Add indexes vec under requestID, replacing any previous vector for that ID.
func (idx *TraceIndex) Add(requestID string, vec vctrace.FixedVector) error {
	if vec.Dim() != idx.dim {
		return fmt.Errorf("%w: trace vector has dim %d, index wants %d", vctrace.ErrDimensionMismatch, vec.Dim(), idx.dim)
	}
	values := vec.Clone().Values()

	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, replaced := idx.vectors[requestID]
	idx.vectors[requestID] = values
	if replaced {
		idx.rebuild()
		return nil
	}
	idx.graph.Add(hnsw.MakeNode(requestID, values))
	return nil
}

// rebuild replaces the graph with a fresh one holding every live vector.
// Callers hold the write lock.
func (idx *TraceIndex) rebuild() {
	idx.graph = newGraph(idx.opts)
	if len(idx.vectors) == 0 {
		return
	}
	keys := make([]string, 0, len(idx.vectors))
	for key := range idx.vectors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	nodes := make([]hnsw.Node[string], len(keys))
	for i, key := range keys {
		nodes[i] = hnsw.MakeNode(key, idx.vectors[key])
	}
	idx.graph.Add(nodes...)
}

// AddRecord indexes the trace vector of r.
func (idx *TraceIndex) AddRecord(r *vctrace.TraceRecord) error {
	return idx.Add(r.RequestID, r.TraceVector)
}

// Remove drops requestID from the index and reports whether it was present.
func (idx *TraceIndex) Remove(requestID string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.vectors[requestID]; !exists {
		return false
	}
	delete(idx.vectors, requestID)
	idx.rebuild()
	return true
}

// Lookup returns a copy of the vector indexed under requestID.
func (idx *TraceIndex) Lookup(requestID string) (vctrace.FixedVector, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	vec, ok := idx.vectors[requestID]
	if !ok {
		return vctrace.FixedVector{}, false
	}
	return vctrace.VectorOf(vec...), true
}

// Search returns up to topK traces nearest to query, best first. Scores are
// cosine similarities (dot products of unit vectors).
func (idx *TraceIndex) Search(query vctrace.FixedVector, topK int) ([]vctrace.Match, error) {
	if query.Dim() != idx.dim {
		return nil, fmt.Errorf("%w: query has dim %d, index wants %d", vctrace.ErrDimensionMismatch, query.Dim(), idx.dim)
	}

	q := query.Clone()
	q.NormalizeL2()

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 || topK <= 0 {
		return nil, nil
	}

	neighbors := idx.graph.Search(q.Values(), topK)
	matches := make([]vctrace.Match, len(neighbors))
	for i, n := range neighbors {
		matches[i] = vctrace.Match{RequestID: n.Key, Score: dot(q.Values(), n.Value)}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches, nil
}

func dot(a, b []float32) float32 {
	var acc float64
	for i := range min(len(a), len(b)) {
		acc += float64(a[i]) * float64(b[i])
	}
	return float32(acc)
}
