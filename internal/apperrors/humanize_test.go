package apperrors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanizeMissingField(t *testing.T) {
	human, tips := Humanize([]ValidationIssue{
		{Path: []interface{}{"vendor_name"}, Type: "missing", Msg: "field is required"},
	})

	assert.Len(t, human, 1)
	assert.Equal(t, "Vendor Name", human[0].Field)
	assert.Equal(t, "This required field is missing", human[0].Message)
	assert.Nil(t, human[0].Row)
	assert.Contains(t, tips, "Fields marked required must appear for every record; confirm the document actually contains that information.")
}

func TestHumanizeNestedRowIssue(t *testing.T) {
	human, _ := Humanize([]ValidationIssue{
		{Path: []interface{}{"item", 2, "amount"}, Type: "float_type", Msg: "unable to cast", Input: "forty dollars"},
	})

	assert.Len(t, human, 1)
	assert.Equal(t, "Amount", human[0].Field)
	require := human[0].Row
	if assert.NotNil(t, require) {
		assert.Equal(t, 3, *require)
	}
	assert.Contains(t, human[0].Message, "Expected a number")
}

func TestHumanizeDeduplicatesTips(t *testing.T) {
	_, tips := Humanize([]ValidationIssue{
		{Path: []interface{}{"item", 0, "category"}, Type: "enum"},
		{Path: []interface{}{"item", 1, "category"}, Type: "enum"},
	})
	assert.Len(t, tips, 1)
}

func TestErrorToMap(t *testing.T) {
	err := ExtractionFailed("bad output", nil).WithRun("run-1").WithDetail("issues", []string{"a"})
	m := err.ToMap()
	assert.Equal(t, "extraction_failed", m["kind"])
	assert.Equal(t, "bad output", m["message"])
	assert.Equal(t, "run-1", m["run_id"])
}

func TestCoerceWrapsPlainError(t *testing.T) {
	coerced := Coerce(assertError("boom"))
	assert.Equal(t, KindInternal, coerced.Kind)
	assert.Equal(t, "boom", coerced.Message)
}

type assertError string

func (e assertError) Error() string { return string(e) }
