package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "sparse"
	denseDimensions  = 1024
)

// QdrantStore implements Store against a Qdrant instance over gRPC.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore connects to Qdrant at host:port (gRPC) for the given collection.
func NewQdrantStore(host string, port int, collection string) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", host, port, err)
	}
	return &QdrantStore{client: client, collection: collection}, nil
}

// EnsureCollection creates the hybrid collection (named dense and sparse
// vector spaces) and keyword payload indexes if they are missing.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.collection, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			denseVectorName: {
				Size:     denseDimensions,
				Distance: qdrant.Distance_Cosine,
			},
		}),
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			sparseVectorName: {},
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.collection, err)
	}

	for _, field := range []string{"source_document", "section_header"} {
		_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("creating payload index %s: %w", field, err)
		}
	}

	return nil
}

// Upsert writes hybrid points into the collection.
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		qPoints = append(qPoints, &qdrant.PointStruct{
			Id: qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				denseVectorName:  qdrant.NewVectorDense(p.Dense),
				sparseVectorName: qdrant.NewVectorSparse(p.SparseIndices, p.SparseValues),
			}),
			Payload: qdrant.NewValueMap(map[string]any{
				"source_document": p.Payload.SourceDocument,
				"page_number":     p.Payload.PageNumber,
				"section_header":  p.Payload.SectionHeader,
				"content_type":    p.Payload.ContentType,
				"raw_content":     p.Payload.RawContent,
				"chunk_index":     p.Payload.ChunkIndex,
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         qPoints,
	})
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

// HybridSearch prefetches 2x the limit from each modality and fuses the
// candidate sets with reciprocal-rank fusion. Over-fetching per modality
// keeps the fused set from being dominated by whichever space naturally
// returns tighter top-K results.
func (s *QdrantStore) HybridSearch(ctx context.Context, q HybridQuery) ([]Chunk, error) {
	prefetchLimit := uint64(q.Limit * 2)

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Prefetch: []*qdrant.PrefetchQuery{
			{
				Query: qdrant.NewQueryDense(q.Dense),
				Using: qdrant.PtrOf(denseVectorName),
				Limit: qdrant.PtrOf(prefetchLimit),
			},
			{
				Query: qdrant.NewQuerySparse(q.SparseIndices, q.SparseValues),
				Using: qdrant.PtrOf(sparseVectorName),
				Limit: qdrant.PtrOf(prefetchLimit),
			},
		},
		Query:       qdrant.NewQueryFusion(qdrant.Fusion_RRF),
		WithPayload: qdrant.NewWithPayload(true),
		Limit:       qdrant.PtrOf(uint64(q.Limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("hybrid search failed: %w", err)
	}

	chunks := make([]Chunk, 0, len(points))
	for _, p := range points {
		chunks = append(chunks, chunkFromPayload(pointID(p.GetId()), p.GetPayload()))
	}
	return chunks, nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// chunkFromPayload maps a stored payload onto a Chunk, defaulting absent
// fields instead of failing.
func chunkFromPayload(id string, payload map[string]*qdrant.Value) Chunk {
	return Chunk{
		ID:             id,
		Content:        stringField(payload, "raw_content", ""),
		SourceDocument: stringField(payload, "source_document", "Unknown"),
		SectionHeader:  stringField(payload, "section_header", "Unknown"),
		PageNumber:     stringField(payload, "page_number", "Unknown"),
	}
}

// stringField reads a payload value as a string, accepting integers for
// fields like page_number that older ingesters stored numerically.
func stringField(payload map[string]*qdrant.Value, key, fallback string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return fallback
	}
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		if kind.StringValue != "" {
			return kind.StringValue
		}
		return fallback
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(kind.IntegerValue, 10)
	default:
		return fallback
	}
}
