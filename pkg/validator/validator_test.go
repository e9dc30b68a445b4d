package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type colorPayload struct {
	Primary   string `json:"primary" validate:"required"`
	Secondary string `json:"secondary"`
}

type featurePayload struct {
	Category   string       `json:"category" validate:"required"`
	Color      colorPayload `json:"color"`
	Confidence float64      `json:"confidence" validate:"gte=0,lte=1"`
	Style      string       `json:"style" validate:"omitempty,oneof=casual formal sport"`
	Internal   string       `json:"-" validate:"max=3"`
}

func valid() featurePayload {
	return featurePayload{
		Category:   "t-shirt",
		Color:      colorPayload{Primary: "blue"},
		Confidence: 0.9,
		Style:      "casual",
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(valid()))
}

func TestValidate_MissingRequired_UsesJSONName(t *testing.T) {
	p := valid()
	p.Category = ""

	fields := fieldsOf(t, Validate(p))
	assert.Equal(t, "is required", fields["category"])
}

func TestValidate_NestedFieldPath(t *testing.T) {
	p := valid()
	p.Color.Primary = ""

	fields := fieldsOf(t, Validate(p))
	assert.Equal(t, "is required", fields["color.primary"])
}

func TestValidate_OutOfRange(t *testing.T) {
	p := valid()
	p.Confidence = 1.5

	fields := fieldsOf(t, Validate(p))
	assert.Contains(t, fields["confidence"], "less than or equal to 1")
}

func TestValidate_OneOf(t *testing.T) {
	p := valid()
	p.Style = "punk"

	fields := fieldsOf(t, Validate(p))
	assert.Contains(t, fields["style"], "one of")
}

func TestValidate_IgnoredJSONFieldFallsBackToGoName(t *testing.T) {
	p := valid()
	p.Internal = "toolong"

	fields := fieldsOf(t, Validate(p))
	assert.Contains(t, fields, "Internal")
	assert.Contains(t, fields["Internal"], "at most 3")
}

func TestValidate_MultipleErrors(t *testing.T) {
	fields := fieldsOf(t, Validate(featurePayload{}))
	assert.Contains(t, fields, "category")
	assert.Contains(t, fields, "color.primary")
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(featurePayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'category'")
	assert.Contains(t, err.Error(), "is required")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"category":"robe","color":{"primary":"rouge"},"confidence":0.5}`

	var p featurePayload
	err := DecodeAndValidate(strings.NewReader(body), &p)

	require.NoError(t, err)
	assert.Equal(t, "robe", p.Category)
	assert.Equal(t, "rouge", p.Color.Primary)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	var p featurePayload
	err := DecodeAndValidate(strings.NewReader("{invalid"), &p)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	var p featurePayload
	err := DecodeAndValidate(strings.NewReader(`{"category":"","color":{}}`), &p)

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
