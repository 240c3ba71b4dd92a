package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFlatSchema(t *testing.T) {
	s := documentMetadataSchema()

	t.Run("valid value", func(t *testing.T) {
		issues := Validate(s, map[string]interface{}{
			"title":   "Q3 Report",
			"summary": "Quarterly results",
		})
		assert.Empty(t, issues)
	})

	t.Run("missing required field", func(t *testing.T) {
		issues := Validate(s, map[string]interface{}{
			"title": "Q3 Report",
		})
		assert.Len(t, issues, 1)
		assert.Equal(t, "missing", issues[0].Type)
		assert.Equal(t, []interface{}{"summary"}, issues[0].Path)
	})

	t.Run("wrong top-level type", func(t *testing.T) {
		issues := Validate(s, "not an object")
		assert.Len(t, issues, 1)
		assert.Equal(t, "object_type", issues[0].Type)
	})

	t.Run("optional field absent is fine", func(t *testing.T) {
		issues := Validate(s, map[string]interface{}{
			"title":   "Q3 Report",
			"summary": "Quarterly results",
		})
		assert.Empty(t, issues)
	})
}

func TestValidateNestedSchema(t *testing.T) {
	s := reportSummarySchema()

	t.Run("valid rows", func(t *testing.T) {
		issues := Validate(s, map[string]interface{}{
			"item": []interface{}{
				map[string]interface{}{"title": "A", "summary": "a summary", "category": "financial"},
				map[string]interface{}{"title": "B", "summary": "b summary", "category": "operational"},
			},
		})
		assert.Empty(t, issues)
	})

	t.Run("bad enum value reports row index", func(t *testing.T) {
		issues := Validate(s, map[string]interface{}{
			"item": []interface{}{
				map[string]interface{}{"title": "A", "summary": "a summary", "category": "not_a_category"},
			},
		})
		assert.Len(t, issues, 1)
		assert.Equal(t, "enum", issues[0].Type)
		assert.Equal(t, []interface{}{"item", 0, "category"}, issues[0].Path)
	})
}
