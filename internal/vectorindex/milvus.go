package vectorindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"chyron/internal/services"
)

// MilvusConfig carries the connection and collection settings for the Milvus
// backend. An API key is used for Zilliz Cloud; username/password otherwise.
type MilvusConfig struct {
	Address    string
	Username   string
	Password   string
	APIKey     string
	Collection string
	Dimensions int
}

// Milvus stores vectors in a Milvus collection with an HNSW cosine index.
type Milvus struct {
	mc   client.Client
	coll string
	dims int
}

// NewMilvus connects to Milvus and ensures the collection, index, and load
// state.
func NewMilvus(ctx context.Context, cfg MilvusConfig) (*Milvus, error) {
	mc, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		APIKey:   cfg.APIKey,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "vectorindex", "milvus connect", cfg.Address, err)
	}

	index := &Milvus{mc: mc, coll: cfg.Collection, dims: cfg.Dimensions}
	if err := index.ensureCollection(ctx); err != nil {
		_ = mc.Close()
		return nil, err
	}
	return index, nil
}

func (m *Milvus) ensureCollection(ctx context.Context) error {
	has, err := m.mc.HasCollection(ctx, m.coll)
	if err != nil {
		return services.Wrap(services.ErrExternal, "vectorindex", "milvus has collection", m.coll, err)
	}
	if !has {
		schema := entity.NewSchema()
		schema.WithField(entity.NewField().WithName("id").WithIsPrimaryKey(true).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64))
		schema.WithField(entity.NewField().WithName("video_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(64))
		schema.WithField(entity.NewField().WithName("ordinal").WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("text").WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192))
		schema.WithField(entity.NewField().WithName("start_time").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("end_time").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(m.dims)))

		if err := m.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return services.Wrap(services.ErrExternal, "vectorindex", "milvus create collection", m.coll, err)
		}
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return services.Wrap(services.ErrExternal, "vectorindex", "milvus new index", "", err)
	}
	if err := m.mc.CreateIndex(ctx, m.coll, "vector", idx, false, client.WithIndexName("idx_vector")); err != nil {
		return services.Wrap(services.ErrExternal, "vectorindex", "milvus create index", "", err)
	}
	if err := m.mc.LoadCollection(ctx, m.coll, false); err != nil {
		return services.Wrap(services.ErrExternal, "vectorindex", "milvus load collection", m.coll, err)
	}
	return nil
}

func (m *Milvus) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	// Replace any prior vectors for these ids before inserting.
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	if err := m.Delete(ctx, ids); err != nil {
		return err
	}

	videoIDs := make([]string, 0, len(entries))
	ordinals := make([]int64, 0, len(entries))
	texts := make([]string, 0, len(entries))
	starts := make([]float64, 0, len(entries))
	ends := make([]float64, 0, len(entries))
	vectors := make([][]float32, 0, len(entries))
	for _, entry := range entries {
		videoIDs = append(videoIDs, entry.Metadata.VideoID)
		ordinals = append(ordinals, int64(entry.Metadata.Ordinal))
		texts = append(texts, entry.Metadata.Text)
		starts = append(starts, entry.Metadata.StartTime)
		ends = append(ends, entry.Metadata.EndTime)
		vectors = append(vectors, entry.Vector)
	}

	_, err := m.mc.Insert(ctx, m.coll, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnVarChar("video_id", videoIDs),
		entity.NewColumnInt64("ordinal", ordinals),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnDouble("start_time", starts),
		entity.NewColumnDouble("end_time", ends),
		entity.NewColumnFloatVector("vector", m.dims, vectors),
	)
	if err != nil {
		return services.Wrap(services.ErrExternal, "vectorindex", "milvus insert", "", err)
	}
	return nil
}

func (m *Milvus) Query(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	expr := ""
	if filter != nil && filter.VideoID != "" {
		expr = fmt.Sprintf("video_id == %q", strings.ReplaceAll(filter.VideoID, `"`, `\"`))
	}

	sp, err := entity.NewIndexHNSWSearchParam(74)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "vectorindex", "milvus search param", "", err)
	}

	results, err := m.mc.Search(
		ctx,
		m.coll,
		nil,
		expr,
		[]string{"video_id", "ordinal", "text", "start_time", "end_time"},
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "vectorindex", "milvus search", "", err)
	}

	var matches []Match
	for _, result := range results {
		cols := map[string]entity.Column{}
		for _, col := range result.Fields {
			cols[col.Name()] = col
		}
		idCol, _ := result.IDs.(*entity.ColumnVarChar)

		for i := 0; i < result.ResultCount; i++ {
			match := Match{Score: float64(result.Scores[i])}
			if idCol != nil {
				if data := idCol.Data(); i < len(data) {
					match.ID = data[i]
				}
			}
			if col, ok := cols["video_id"].(*entity.ColumnVarChar); ok {
				if data := col.Data(); i < len(data) {
					match.Metadata.VideoID = data[i]
				}
			}
			if col, ok := cols["ordinal"].(*entity.ColumnInt64); ok {
				if data := col.Data(); i < len(data) {
					match.Metadata.Ordinal = int(data[i])
				}
			}
			if col, ok := cols["text"].(*entity.ColumnVarChar); ok {
				if data := col.Data(); i < len(data) {
					match.Metadata.Text = data[i]
				}
			}
			if col, ok := cols["start_time"].(*entity.ColumnDouble); ok {
				if data := col.Data(); i < len(data) {
					match.Metadata.StartTime = data[i]
				}
			}
			if col, ok := cols["end_time"].(*entity.ColumnDouble); ok {
				if data := col.Data(); i < len(data) {
					match.Metadata.EndTime = data[i]
				}
			}
			matches = append(matches, match)
		}
	}
	return matches, nil
}

func (m *Milvus) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	quoted := make([]string, 0, len(ids))
	for _, id := range ids {
		quoted = append(quoted, fmt.Sprintf("%q", strings.ReplaceAll(id, `"`, `\"`)))
	}
	expr := fmt.Sprintf("id in [%s]", strings.Join(quoted, ", "))
	if err := m.mc.Delete(ctx, m.coll, "", expr); err != nil {
		return services.Wrap(services.ErrExternal, "vectorindex", "milvus delete", "", err)
	}
	return nil
}

func (m *Milvus) Close() error {
	return m.mc.Close()
}
