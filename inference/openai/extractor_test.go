package openai

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mynkchaudhry/VendorDocComparsion/inference"
)

func TestRepairJSON_FixesMissingOpeningQuote(t *testing.T) {
	broken := `{"vendor_name": "Acme", document_type": "quote"}`
	fixed := repairJSON(broken)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(fixed), &out))
	assert.Equal(t, "quote", out["document_type"])
}

func TestRepairJSON_LeavesValidJSONAlone(t *testing.T) {
	valid := `{"vendor_name": "Acme", "pricing": [{"item": "bolt"}]}`
	assert.Equal(t, valid, repairJSON(valid))
}

func TestStripCodeFences(t *testing.T) {
	fenced := "```json\n{\"vendor_name\": \"Acme\"}\n```"
	assert.Equal(t, `{"vendor_name": "Acme"}`, stripCodeFences(fenced))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
}

func TestFragmentSchema_AcceptsSparseFragment(t *testing.T) {
	schema, err := compileFragmentSchema()
	require.NoError(t, err)

	var raw any
	require.NoError(t, json.Unmarshal([]byte(`{"vendor_name": "Acme"}`), &raw))
	assert.NoError(t, schema.Validate(raw))
}

func TestFragmentSchema_RejectsWrongTypes(t *testing.T) {
	schema, err := compileFragmentSchema()
	require.NoError(t, err)

	var raw any
	require.NoError(t, json.Unmarshal([]byte(`{"pricing": "not a list"}`), &raw))
	assert.Error(t, schema.Validate(raw))
}

func TestFragmentToStructuredData(t *testing.T) {
	f := &fragment{
		VendorName:   "  Acme Corp  ",
		DocumentType: "quote",
		Pricing: []pricingItem{
			{Item: " bolts ", Quantity: "100", UnitPrice: "$1.25", TotalPrice: "$125.00"},
			{Item: "", TotalPrice: "$10"},
		},
		ProductsOrServices: []string{"bolts"},
		PaymentTerms:       "net 30",
		Confidence:         0.85,
	}

	data := f.toStructuredData()
	assert.Equal(t, "Acme Corp", data.VendorName)
	require.Len(t, data.Pricing, 1, "items without a name are dropped")
	assert.Equal(t, "bolts", data.Pricing[0].Item)
	assert.Equal(t, float32(0.85), data.ConfidenceScore)
}

func TestClassifyError(t *testing.T) {
	perm := classifyError(errors.New("API returned unexpected status code: 401 Unauthorized"))
	assert.True(t, inference.IsPermanent(perm))

	rate := classifyError(errors.New("API returned unexpected status code: 429 Too Many Requests"))
	assert.False(t, inference.IsPermanent(rate))

	server := classifyError(errors.New("API returned unexpected status code: 503 Service Unavailable"))
	assert.False(t, inference.IsPermanent(server))

	netErr := classifyError(errors.New("connection refused"))
	assert.False(t, inference.IsPermanent(netErr))

	// A body quoting another code must not override the actual status.
	body := classifyError(errors.New(`API returned unexpected status code: 429 {"message":"error 400: slow down"}`))
	assert.False(t, inference.IsPermanent(body))
}
