package vectorindex

import "context"

// Point is a single vector-index record: an id, its embedding, and an
// arbitrary JSON-compatible payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// OrderBy sorts scroll results when no vector query is given; with a
// vector query, ANN ordering is used and OrderBy is ignored.
type OrderBy struct {
	Key       string
	Direction Direction
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SearchParams is the single entry point for both ANN search (Vector
// set) and filter-only scroll (Vector nil).
type SearchParams struct {
	Vector         []float32
	Filter         *Filter
	Limit          int
	Offset         int
	Cursor         string
	ScoreThreshold *float64
	WithPayload    bool
	OrderBy        *OrderBy
}

// Hit is one result row. Score is unset (zero value, Scored=false) for
// filter-only scroll results.
type Hit struct {
	ID      string
	Score   float64
	Scored  bool
	Payload map[string]any
}

// SearchResult carries the page of hits plus enough state to build the
// next opaque cursor.
type SearchResult struct {
	Hits       []Hit
	NextOffset int
	HasMore    bool
}

// CollectionStats reports a collection's point count and status for
// operational/health endpoints. QdrantIndex.CollectionInfo leaves
// VectorSize at zero.
type CollectionStats struct {
	PointsCount  uint64
	VectorSize   uint64
	Status       string
}

// Index is the storage-adapter contract for the vector store: search,
// count, upsert, delete, collection info.
type Index interface {
	Search(ctx context.Context, collection string, params SearchParams) (SearchResult, error)
	Count(ctx context.Context, collection string, filter *Filter) (uint64, error)
	Upsert(ctx context.Context, collection string, points []Point) error
	Delete(ctx context.Context, collection string, ids []string, filter *Filter) error
	CollectionInfo(ctx context.Context, collection string) (CollectionStats, error)
}
