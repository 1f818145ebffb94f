// Package vectorstore wraps the Qdrant gRPC client behind the operations the
// search and indexing paths need: idempotent collection setup with named
// dense+sparse vectors, batched hybrid upserts, fused hybrid queries, and
// filter-based deletes.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/recruitflow/talent-search/pkg/config"
	apperrors "github.com/recruitflow/talent-search/pkg/errors"
	"github.com/recruitflow/talent-search/pkg/resilience"
)

// Client wraps a Qdrant gRPC connection scoped to a single collection.
type Client struct {
	client *qdrant.Client
	cfg    config.QdrantConfig
	logger *slog.Logger
}

// New dials Qdrant and verifies the connection with a health check.
func New(cfg config.QdrantConfig) (*Client, error) {
	qcfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	}
	if !cfg.UseTLS {
		qcfg.GrpcOptions = append(qcfg.GrpcOptions,
			grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	qc, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	if _, err := qc.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("qdrant health check: %w", err)
	}

	return &Client{
		client: qc,
		cfg:    cfg,
		logger: slog.Default().With("component", "vectorstore", "collection", cfg.Collection),
	}, nil
}

// payloadIndexes lists every filterable payload field and its index type.
var payloadIndexes = []struct {
	field string
	kind  qdrant.FieldType
}{
	{"candidate_id", qdrant.FieldType_FieldTypeInteger},
	{"source_id", qdrant.FieldType_FieldTypeInteger},
	{"doc_type", qdrant.FieldType_FieldTypeKeyword},
	{"skills", qdrant.FieldType_FieldTypeKeyword},
	{"current_location", qdrant.FieldType_FieldTypeKeyword},
	{"notice_period_days", qdrant.FieldType_FieldTypeInteger},
	{"total_experience_years", qdrant.FieldType_FieldTypeFloat},
	{"expected_salary_lpa", qdrant.FieldType_FieldTypeFloat},
	{"job_id", qdrant.FieldType_FieldTypeInteger},
	{"can_join_immediately", qdrant.FieldType_FieldTypeBool},
	{"preferred_work_type", qdrant.FieldType_FieldTypeKeyword},
	{"current_title", qdrant.FieldType_FieldTypeKeyword},
	{"current_company", qdrant.FieldType_FieldTypeKeyword},
}

// EnsureCollection creates the collection with named dense and sparse vector
// fields if it does not exist, and declares payload indexes for every
// filterable field. Safe to call on every startup.
func (c *Client) EnsureCollection(ctx context.Context) error {
	exists, err := c.client.CollectionExists(ctx, c.cfg.Collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", c.cfg.Collection, err)
	}

	if !exists {
		err := c.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: c.cfg.Collection,
			VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
				c.cfg.DenseName: {
					Size:     c.cfg.DenseSize,
					Distance: qdrant.Distance_Cosine,
				},
			}),
			SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
				c.cfg.SparseName: {
					Modifier: qdrant.Modifier_Idf.Enum(),
				},
			}),
		})
		if err != nil {
			return fmt.Errorf("creating collection %s: %w", c.cfg.Collection, err)
		}
		c.logger.Info("collection created",
			"dense", c.cfg.DenseName,
			"sparse", c.cfg.SparseName,
			"dense_size", c.cfg.DenseSize,
		)
	}

	for _, idx := range payloadIndexes {
		_, err := c.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: c.cfg.Collection,
			FieldName:      idx.field,
			FieldType:      idx.kind.Enum(),
		})
		if err != nil {
			return fmt.Errorf("creating payload index on %s: %w", idx.field, err)
		}
	}
	return nil
}

// HealthCheck probes the Qdrant server.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.client.HealthCheck(ctx)
	return err
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) retryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: c.cfg.RetryAttempts}
}

// isTransient reports whether a gRPC error is worth retrying.
func isTransient(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return true
	}
	return false
}

// Upsert writes points in batches. Every point must carry both vector kinds;
// a point missing either is rejected before any store call is made.
func (c *Client) Upsert(ctx context.Context, points []Point) error {
	for _, p := range points {
		if len(p.Dense) == 0 || len(p.Sparse.Indices) == 0 {
			return apperrors.Newf(apperrors.ErrInvalidInput, 400,
				"point %s missing dense or sparse vector", p.ID)
		}
		if len(p.Sparse.Indices) != len(p.Sparse.Values) {
			return apperrors.Newf(apperrors.ErrInvalidInput, 400,
				"point %s sparse indices/values length mismatch", p.ID)
		}
	}

	batchSize := c.cfg.UpsertBatchSize
	if batchSize <= 0 {
		batchSize = len(points)
	}
	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}
		batch := make([]*qdrant.PointStruct, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, &qdrant.PointStruct{
				Id: qdrant.NewIDUUID(p.ID),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					c.cfg.DenseName:  qdrant.NewVector(p.Dense...),
					c.cfg.SparseName: qdrant.NewVectorSparse(p.Sparse.Indices, p.Sparse.Values),
				}),
				Payload: p.Payload.toQdrant(),
			})
		}

		err := resilience.RetryIf(ctx, "qdrant-upsert", c.retryConfig(), isTransient, func() error {
			opCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
			defer cancel()
			_, err := c.client.Upsert(opCtx, &qdrant.UpsertPoints{
				CollectionName: c.cfg.Collection,
				Points:         batch,
				Wait:           qdrant.PtrOf(true),
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: upserting %d points: %v", apperrors.ErrVectorStore, len(batch), err)
		}
		c.logger.Debug("points upserted", "count", len(batch))
	}
	return nil
}

// HybridSearch runs one fused query: a dense prefetch and a sparse prefetch,
// combined server-side by reciprocal-rank fusion, optionally constrained by a
// payload filter.
func (c *Client) HybridSearch(ctx context.Context, dense []float32, sparse SparseVector, filter *Filter, limit uint64) ([]Hit, error) {
	var scored []*qdrant.ScoredPoint
	err := resilience.RetryIf(ctx, "qdrant-query", c.retryConfig(), isTransient, func() error {
		opCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
		res, err := c.client.Query(opCtx, &qdrant.QueryPoints{
			CollectionName: c.cfg.Collection,
			Prefetch: []*qdrant.PrefetchQuery{
				{
					Query:  qdrant.NewQueryDense(dense),
					Using:  qdrant.PtrOf(c.cfg.DenseName),
					Filter: filter.toQdrant(),
					Limit:  qdrant.PtrOf(limit),
				},
				{
					Query:  qdrant.NewQuerySparse(sparse.Indices, sparse.Values),
					Using:  qdrant.PtrOf(c.cfg.SparseName),
					Filter: filter.toQdrant(),
					Limit:  qdrant.PtrOf(limit),
				},
			},
			Query:       qdrant.NewQueryFusion(qdrant.Fusion_RRF),
			Filter:      filter.toQdrant(),
			Limit:       qdrant.PtrOf(limit),
			WithPayload: qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		scored = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: hybrid query: %v", apperrors.ErrVectorStore, err)
	}

	hits := make([]Hit, 0, len(scored))
	for _, p := range scored {
		hit := Hit{Score: p.Score, Payload: payloadFromQdrant(p.Payload)}
		if id := p.Id.GetUuid(); id != "" {
			hit.ID = id
		} else {
			hit.ID = fmt.Sprintf("%d", p.Id.GetNum())
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DeleteByDocument removes every chunk point belonging to one document.
func (c *Client) DeleteByDocument(ctx context.Context, docType string, sourceID int64) error {
	err := resilience.RetryIf(ctx, "qdrant-delete", c.retryConfig(), isTransient, func() error {
		opCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
		_, err := c.client.Delete(opCtx, &qdrant.DeletePoints{
			CollectionName: c.cfg.Collection,
			Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
				Must: []*qdrant.Condition{
					qdrant.NewMatchKeyword("doc_type", docType),
					qdrant.NewMatchInt("source_id", sourceID),
				},
			}),
			Wait: qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: deleting %s/%d: %v", apperrors.ErrVectorStore, docType, sourceID, err)
	}
	c.logger.Info("document points deleted", "doc_type", docType, "source_id", sourceID)
	return nil
}
