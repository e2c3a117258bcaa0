// Package qdrant provides a VectorIndex implementation using Qdrant.
package qdrant

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vigie-publique/vigie-core/internal/domain/ports"
	"github.com/vigie-publique/vigie-core/internal/infrastructure/config"
)

// Repository implements the VectorIndex interface using Qdrant.
type Repository struct {
	client     pb.CollectionsClient
	points     pb.PointsClient
	collection string
	conn       *grpc.ClientConn
}

// NewRepository creates a new Qdrant repository.
func NewRepository(cfg config.QdrantConfig) (*Repository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	return &Repository{
		client:     pb.NewCollectionsClient(conn),
		points:     pb.NewPointsClient(conn),
		collection: cfg.Collection,
		conn:       conn,
	}, nil
}

// Close closes the gRPC connection.
func (r *Repository) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// EnsureCollection creates the collection if it doesn't exist.
func (r *Repository) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	_, err := r.client.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collection,
	})
	if err == nil {
		return nil
	}

	_, err = r.client.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	return nil
}

// SaveAffairVector upserts the embedding for an affair. The affair ID is the
// point ID, so re-embedding overwrites in place.
func (r *Repository) SaveAffairVector(ctx context.Context, affairID, figureID string, vector []float32) error {
	point := &pb.PointStruct{
		Id: &pb.PointId{
			PointIdOptions: &pb.PointId_Uuid{
				Uuid: affairID,
			},
		},
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{
					Data: vector,
				},
			},
		},
		Payload: map[string]*pb.Value{
			"figure_id": {Kind: &pb.Value_StringValue{StringValue: figureID}},
		},
	}

	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Points:         []*pb.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("upserting affair vector: %w", err)
	}

	return nil
}

// SearchSimilar returns affairs of the same figure ranked by cosine
// similarity, excluding the given affair.
func (r *Repository) SearchSimilar(ctx context.Context, vector []float32, figureID, excludeAffairID string, limit int) ([]ports.SimilarAffair, error) {
	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		Filter: &pb.Filter{
			Must: []*pb.Condition{
				{
					ConditionOneOf: &pb.Condition_Field{
						Field: &pb.FieldCondition{
							Key: "figure_id",
							Match: &pb.Match{
								MatchValue: &pb.Match_Keyword{
									Keyword: figureID,
								},
							},
						},
					},
				},
			},
			MustNot: []*pb.Condition{
				{
					ConditionOneOf: &pb.Condition_HasId{
						HasId: &pb.HasIdCondition{
							HasId: []*pb.PointId{
								{PointIdOptions: &pb.PointId_Uuid{Uuid: excludeAffairID}},
							},
						},
					},
				},
			},
		},
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: false},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("searching similar affairs: %w", err)
	}

	similar := make([]ports.SimilarAffair, 0, len(resp.Result))
	for _, point := range resp.Result {
		similar = append(similar, ports.SimilarAffair{
			AffairID: point.Id.GetUuid(),
			Score:    point.Score,
		})
	}

	return similar, nil
}

// DeleteAffairVector removes the embedding for an affair.
func (r *Repository) DeleteAffairVector(ctx context.Context, affairID string) error {
	_, err := r.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{
					Ids: []*pb.PointId{
						{PointIdOptions: &pb.PointId_Uuid{Uuid: affairID}},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting affair vector: %w", err)
	}

	return nil
}
