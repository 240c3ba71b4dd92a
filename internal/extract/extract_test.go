package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owenffff/infotransform-engine/internal/logging"
	"github.com/owenffff/infotransform-engine/internal/schema"
)

func testSchema() *schema.Schema {
	return &schema.Schema{
		Key:  "document_metadata",
		Name: "Document Metadata",
		Fields: []schema.Field{
			{Name: "title", Kind: schema.KindString, Required: true},
		},
	}
}

type fakeProvider struct {
	chunks []Chunk
	err    error
	calls  int
}

func (f *fakeProvider) CompleteStream(ctx context.Context, prompt string, params ModelParams) (<-chan Chunk, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan Chunk, len(f.chunks))
	for _, c := range f.chunks {
		out <- c
	}
	close(out)
	return out, nil
}

func TestExtractSuccess(t *testing.T) {
	p := &fakeProvider{chunks: []Chunk{
		{Text: `{"title":"part`, Done: false},
		{Text: `{"title":"Q3 Report"}`, Done: true},
	}}
	e := New(p, nil, DefaultRetryPolicy(), logging.NewDevelopment("extract-test"))

	res := e.Extract(context.Background(), testSchema(), "doc content", "", ModelParams{ModelID: "gpt-4o"})
	require.True(t, res.OK)
	assert.True(t, res.Final)
	assert.Equal(t, map[string]interface{}{"title": "Q3 Report"}, res.Structured)
}

func TestExtractStreamDropsUndecodablePartials(t *testing.T) {
	p := &fakeProvider{chunks: []Chunk{
		{Text: `not json at all`, Done: false},
		{Text: `{"title":"Final"}`, Done: true},
	}}
	e := New(p, nil, DefaultRetryPolicy(), logging.NewDevelopment("extract-test"))

	var events []bool
	for res := range e.ExtractStream(context.Background(), testSchema(), "doc", "", ModelParams{}) {
		events = append(events, res.Final)
	}
	require.Len(t, events, 1, "the undecodable partial must be dropped, only the final event emitted")
	assert.True(t, events[0])
}

func TestExtractFailsSchemaValidation(t *testing.T) {
	p := &fakeProvider{chunks: []Chunk{
		{Text: `{"wrong_field":"x"}`, Done: true},
	}}
	e := New(p, nil, DefaultRetryPolicy(), logging.NewDevelopment("extract-test"))

	res := e.Extract(context.Background(), testSchema(), "doc", "", ModelParams{})
	assert.False(t, res.OK)
	require.NotNil(t, res.Err)
	assert.Equal(t, "extraction_failed", string(res.Err.Kind))
	assert.Contains(t, res.Err.Details, "issues")
}

func TestExtractRetriesInitialCallFailure(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}
	policy := RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	e := New(p, nil, policy, logging.NewDevelopment("extract-test"))

	res := e.Extract(context.Background(), testSchema(), "doc", "", ModelParams{})
	assert.False(t, res.OK)
	assert.Equal(t, 2, p.calls)
}

func TestExtractNonJSONFinalFails(t *testing.T) {
	p := &fakeProvider{chunks: []Chunk{{Text: "not json", Done: true}}}
	e := New(p, nil, DefaultRetryPolicy(), logging.NewDevelopment("extract-test"))

	res := e.Extract(context.Background(), testSchema(), "doc", "", ModelParams{})
	assert.False(t, res.OK)
	assert.Equal(t, "extraction_failed", string(res.Err.Kind))
}

func nestedTestSchema() *schema.Schema {
	return &schema.Schema{
		Key:  "report_summary",
		Name: "Report Summary",
		Fields: []schema.Field{{
			Name: "item",
			Kind: schema.KindList,
			Inner: &schema.Schema{
				Fields: []schema.Field{
					{Name: "title", Kind: schema.KindString, Required: true},
				},
			},
		}},
	}
}

func TestExtractUnwrapsNestedSchemaIntoItemList(t *testing.T) {
	p := &fakeProvider{chunks: []Chunk{
		{Text: `{"item":[{"title":"row one"},{"title":"row two"}]}`, Done: true},
	}}
	e := New(p, nil, DefaultRetryPolicy(), logging.NewDevelopment("extract-test"))

	res := e.Extract(context.Background(), nestedTestSchema(), "doc", "", ModelParams{})
	require.True(t, res.OK)
	items, ok := res.Structured.([]interface{})
	require.True(t, ok, "nested extraction result must unwrap to a []interface{} of rows")
	require.Len(t, items, 2)
	assert.Equal(t, map[string]interface{}{"title": "row one"}, items[0])
	assert.Equal(t, map[string]interface{}{"title": "row two"}, items[1])
}
