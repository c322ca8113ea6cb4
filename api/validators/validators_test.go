package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/catalog-backend/pkg/errors"
)

type reorderBody struct {
	Images []string `json:"images" validate:"required,min=1"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"images":["a","b"],"extra":true}`))
	var body reorderBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, []string{"a", "b"}, body.Images)

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"images":[]}`))
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{`))
	err = DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.Equal(t, "invalid request body", pkgerrors.As(err).Message())
}

type orderEntry struct {
	ID    int64 `json:"id" validate:"required"`
	Order int   `json:"display_order" validate:"gte=0"`
}

type orderList struct {
	Items []orderEntry `json:"products" validate:"dive"`
}

func TestValidateStructReportsJSONFieldPaths(t *testing.T) {
	err := ValidateStruct(&orderList{Items: []orderEntry{{ID: 1}, {Order: -1}}})
	require.Error(t, err)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"products[1].id":            "is required",
		"products[1].display_order": "must be at least 0",
	}, details)
}

func TestDecodeJSONBodyLimitsAndTypeErrors(t *testing.T) {
	big := `{"images":["` + strings.Repeat("a", MaxJSONBodyBytes) + `"]}`
	var body reorderBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(big)), &body)
	require.Error(t, err)
	assert.Equal(t, "request body too large", pkgerrors.As(err).Message())

	err = DecodeJSONBody(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"images":"a"}`)), &body)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"body": "images must be slice"}, pkgerrors.As(err).Details())
}

func TestParseOptionalQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&pageSize=abc", nil)

	page, err := ParseOptionalQueryInt(req, "page")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, 3, *page)

	missing, err := ParseOptionalQueryInt(req, "search")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = ParseOptionalQueryInt(req, "pageSize")
	require.Error(t, err)
	assert.Equal(t, "pageSize must be a number", pkgerrors.As(err).Message())
}

func TestParsePathID(t *testing.T) {
	id, ok := ParsePathID("42")
	assert.True(t, ok)
	assert.EqualValues(t, 42, id)

	for _, raw := range []string{"", "abc", "0", "-1", "1.5"} {
		_, ok := ParsePathID(raw)
		assert.False(t, ok, raw)
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "mat", SanitizeString(" mat ", 0))
	assert.Equal(t, "ヨガ", SanitizeString("ヨガウェア", 2))
	assert.Equal(t, "tote bag", SanitizeString("tote\x00 bag\n", 0))
	// decomposed ガ (カ + combining mark) composes to one rune
	assert.Equal(t, "ガ", SanitizeString("\u30ab\u3099", 1))
}
