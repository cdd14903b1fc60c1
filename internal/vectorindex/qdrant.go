package vectorindex

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/erc8004/agent-gateway/internal/circuitbreaker"
)

// QdrantIndex is the concrete Index backed by a Qdrant collection,
// grounded on the REST-client shape seen in the pack's vectordb
// clients but speaking the official gRPC client.
type QdrantIndex struct {
	client  *qdrant.Client
	breaker *circuitbreaker.Breaker
}

// Config configures the underlying Qdrant gRPC connection.
type Config struct {
	Host   string
	Port   int
	UseTLS bool
	APIKey string
}

// NewQdrantIndex dials the Qdrant gRPC endpoint described by cfg.
func NewQdrantIndex(cfg Config, breaker *circuitbreaker.Breaker) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorindex: dial qdrant: %w", err)
	}
	return &QdrantIndex{client: client, breaker: breaker}, nil
}

func (q *QdrantIndex) Search(ctx context.Context, collection string, params SearchParams) (SearchResult, error) {
	return circuitbreaker.Do(q.breaker, ctx, func(ctx context.Context) (SearchResult, error) {
		if len(params.Vector) > 0 {
			return q.annSearch(ctx, collection, params)
		}
		return q.scroll(ctx, collection, params)
	})
}

func (q *QdrantIndex) annSearch(ctx context.Context, collection string, params SearchParams) (SearchResult, error) {
	limit := uint64(clampLimit(params.Limit))

	req := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(toFloat64(params.Vector)...),
		Filter:         toQdrantFilter(params.Filter),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(params.WithPayload),
	}
	if params.ScoreThreshold != nil {
		t := float32(*params.ScoreThreshold)
		req.ScoreThreshold = &t
	}
	if params.Offset > 0 {
		off := uint64(params.Offset)
		req.Offset = &off
	}

	points, err := q.client.Query(ctx, req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("vectorindex: query %s: %w", collection, err)
	}

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, Hit{
			ID:      pointIDToString(p.GetId()),
			Score:   float64(p.GetScore()),
			Scored:  true,
			Payload: payloadToMap(p.GetPayload()),
		})
	}

	return SearchResult{
		Hits:       hits,
		NextOffset: params.Offset + len(hits),
		HasMore:    len(hits) == int(limit),
	}, nil
}

func (q *QdrantIndex) scroll(ctx context.Context, collection string, params SearchParams) (SearchResult, error) {
	limit := uint32(clampLimit(params.Limit))

	req := &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         toQdrantFilter(params.Filter),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(params.WithPayload),
	}
	if params.OrderBy != nil {
		dir := qdrant.Direction_Asc
		if params.OrderBy.Direction == Desc {
			dir = qdrant.Direction_Desc
		}
		req.OrderBy = &qdrant.OrderBy{Key: params.OrderBy.Key, Direction: &dir}
	}

	points, err := q.client.Scroll(ctx, req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("vectorindex: scroll %s: %w", collection, err)
	}

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, Hit{
			ID:      pointIDToString(p.GetId()),
			Payload: payloadToMap(p.GetPayload()),
		})
	}

	return SearchResult{
		Hits:       hits,
		NextOffset: params.Offset + len(hits),
		HasMore:    len(hits) == int(limit),
	}, nil
}

func (q *QdrantIndex) Count(ctx context.Context, collection string, filter *Filter) (uint64, error) {
	return circuitbreaker.Do(q.breaker, ctx, func(ctx context.Context) (uint64, error) {
		exact := true
		count, err := q.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: collection,
			Filter:         toQdrantFilter(filter),
			Exact:          &exact,
		})
		if err != nil {
			return 0, fmt.Errorf("vectorindex: count %s: %w", collection, err)
		}
		return count, nil
	})
}

func (q *QdrantIndex) Upsert(ctx context.Context, collection string, points []Point) error {
	_, err := circuitbreaker.Do(q.breaker, ctx, func(ctx context.Context) (struct{}, error) {
		pts := make([]*qdrant.PointStruct, 0, len(points))
		for _, p := range points {
			pts = append(pts, &qdrant.PointStruct{
				Id:      qdrant.NewID(p.ID),
				Vectors: qdrant.NewVectors(p.Vector...),
				Payload: qdrant.NewValueMap(p.Payload),
			})
		}
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         pts,
		})
		if err != nil {
			return struct{}{}, fmt.Errorf("vectorindex: upsert %s: %w", collection, err)
		}
		return struct{}{}, nil
	})
	return err
}

func (q *QdrantIndex) Delete(ctx context.Context, collection string, ids []string, filter *Filter) error {
	_, err := circuitbreaker.Do(q.breaker, ctx, func(ctx context.Context) (struct{}, error) {
		var selector *qdrant.PointsSelector
		if len(ids) > 0 {
			pids := make([]*qdrant.PointId, 0, len(ids))
			for _, id := range ids {
				pids = append(pids, qdrant.NewID(id))
			}
			selector = qdrant.NewPointsSelector(pids...)
		} else {
			selector = qdrant.NewPointsSelectorFilter(toQdrantFilter(filter))
		}

		_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: collection,
			Points:         selector,
		})
		if err != nil {
			return struct{}{}, fmt.Errorf("vectorindex: delete %s: %w", collection, err)
		}
		return struct{}{}, nil
	})
	return err
}

func (q *QdrantIndex) CollectionInfo(ctx context.Context, collection string) (CollectionStats, error) {
	return circuitbreaker.Do(q.breaker, ctx, func(ctx context.Context) (CollectionStats, error) {
		info, err := q.client.GetCollectionInfo(ctx, collection)
		if err != nil {
			return CollectionStats{}, fmt.Errorf("vectorindex: collection info %s: %w", collection, err)
		}
		return CollectionStats{
			PointsCount: info.GetPointsCount(),
			Status:      info.GetStatus().String(),
		}, nil
	})
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func pointIDToString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uid := id.GetUuid(); uid != "" {
		return uid
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = qdrant.NewGoValue(v)
	}
	return out
}
