package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owenffff/infotransform-engine/internal/extract"
	"github.com/owenffff/infotransform-engine/internal/logging"
	"github.com/owenffff/infotransform-engine/internal/model"
	"github.com/owenffff/infotransform-engine/internal/schema"
	"github.com/owenffff/infotransform-engine/internal/tokens"
)

type fakeProvider struct {
	final string
}

func (f *fakeProvider) CompleteStream(ctx context.Context, prompt string, params extract.ModelParams) (<-chan extract.Chunk, error) {
	out := make(chan extract.Chunk, 1)
	out <- extract.Chunk{Text: f.final, Done: true}
	close(out)
	return out, nil
}

type fakeCache struct {
	store map[string]interface{}
	sets  int
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string]interface{}{}} }

func (c *fakeCache) Get(ctx context.Context, content, schemaKey, modelID string) (interface{}, bool) {
	v, ok := c.store[content+schemaKey+modelID]
	return v, ok
}

func (c *fakeCache) Set(ctx context.Context, content, schemaKey, modelID string, value interface{}, processingTime float64) bool {
	c.sets++
	c.store[content+schemaKey+modelID] = value
	return true
}

func testSchema() *schema.Schema {
	return &schema.Schema{
		Name:   "Document Metadata",
		Fields: []schema.Field{{Name: "title", Kind: schema.KindString, Required: true}},
	}
}

func newDispatcherFor(t *testing.T, finalJSON string, cache Cache) *Dispatcher {
	t.Helper()
	provider := &fakeProvider{final: finalJSON}
	extractor := extract.New(provider, nil, extract.DefaultRetryPolicy(), logging.NewDevelopment("extract-test"))
	estimator := tokens.NewEstimator("cl100k_base", logging.NewDevelopment("tokens-test"))
	return New(extractor, cache, estimator, 4, false, logging.NewDevelopment("dispatch-test"))
}

func task(markdown string) model.ExtractionTask {
	return model.ExtractionTask{
		Conversion: model.ConversionResult{
			FileEntry: model.FileEntry{DisplayName: "doc.txt"},
			OK:        true,
			Markdown:  markdown,
		},
		SchemaKey: "document_metadata",
		ModelID:   "gpt-4o",
	}
}

func TestDispatchCacheMissThenSetsOnSuccess(t *testing.T) {
	cache := newFakeCache()
	d := newDispatcherFor(t, `{"title":"Q3"}`, cache)

	out := make(chan model.ExtractionResult, 4)
	d.Dispatch(context.Background(), task("document body"), testSchema(), out)
	close(out)

	var results []model.ExtractionResult
	for r := range out {
		results = append(results, r)
	}
	require.Len(t, results, 1)
	assert.True(t, results[0].OK)
	assert.False(t, results[0].Cached)
	assert.Equal(t, 1, cache.sets)
}

func TestDispatchCacheHitSkipsExtractor(t *testing.T) {
	cache := newFakeCache()
	cache.store["document bodydocument_metadatagpt-4o"] = map[string]interface{}{"title": "cached"}
	d := newDispatcherFor(t, `{"title":"should not be used"}`, cache)

	out := make(chan model.ExtractionResult, 4)
	d.Dispatch(context.Background(), task("document body"), testSchema(), out)
	close(out)

	var results []model.ExtractionResult
	for r := range out {
		results = append(results, r)
	}
	require.Len(t, results, 1)
	assert.True(t, results[0].Cached)
	assert.Equal(t, map[string]interface{}{"title": "cached"}, results[0].Structured)
}
