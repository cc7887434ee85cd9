package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(s string) json.Number { return json.Number(s) }

func TestNormalize_SequenceOfObjects(t *testing.T) {
	raw := []byte(`[{"settlementDate":"2023-10-01","value":100}]`)

	table, err := Normalize(raw, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"settlementDate", "value"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "2023-10-01", table.Rows[0]["settlementDate"])
	assert.Equal(t, num("100"), table.Rows[0]["value"])
}

func TestNormalize_RowCountMatchesInputLength(t *testing.T) {
	raw := []byte(`[
		{"settlementDate":"2023-10-01","settlementPeriod":1,"value":10},
		{"settlementDate":"2023-10-01","settlementPeriod":2,"value":20},
		{"settlementDate":"2023-10-01","settlementPeriod":3,"value":30}
	]`)

	table, err := Normalize(raw, Options{})
	require.NoError(t, err)
	assert.Len(t, table.Rows, 3)
}

func TestNormalize_DataWrapperStripping(t *testing.T) {
	inner := []byte(`[{"psrType":"Wind","quantity":50},{"psrType":"Solar","quantity":12}]`)
	wrapped := []byte(`{"data":[{"psrType":"Wind","quantity":50},{"psrType":"Solar","quantity":12}]}`)

	fromInner, err := Normalize(inner, Options{})
	require.NoError(t, err)
	fromWrapped, err := Normalize(wrapped, Options{})
	require.NoError(t, err)

	assert.Equal(t, fromInner, fromWrapped)
}

func TestNormalize_FieldMapRenaming(t *testing.T) {
	raw := []byte(`{"data":[{"psrType":"Wind","quantity":50}]}`)

	table, err := Normalize(raw, Options{FieldMap: map[string]string{"psrType": "fuelType"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"fuelType", "quantity"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Wind", table.Rows[0]["fuelType"])
	assert.Equal(t, num("50"), table.Rows[0]["quantity"])
	assert.NotContains(t, table.Rows[0], "psrType")
}

func TestNormalize_DataObjectSingleRecord(t *testing.T) {
	raw := []byte(`{"data":{"total":12345}}`)

	table, err := Normalize(raw, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"total"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, num("12345"), table.Rows[0]["total"])
}

func TestNormalize_ObjectWithoutDataKey(t *testing.T) {
	raw := []byte(`{"settlementDate":"2023-10-01","demand":28311}`)

	table, err := Normalize(raw, Options{})
	require.NoError(t, err)

	require.Len(t, table.Rows, 1)
	assert.Equal(t, "2023-10-01", table.Rows[0]["settlementDate"])
	assert.Equal(t, num("28311"), table.Rows[0]["demand"])
}

func TestNormalize_ErrorEnvelopeRefused(t *testing.T) {
	raw := []byte(`{"statusCode":404,"message":"Resource not found"}`)

	_, err := Normalize(raw, Options{})
	require.Error(t, err)

	var statusErr *UnexpectedStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 404, statusErr.StatusCode)
	assert.Equal(t, "Resource not found", statusErr.Message)
}

func TestNormalize_ErrorEnvelopeWithFractionalStatusCode(t *testing.T) {
	// Some upstreams serialize the code as a float; 404.0 is still >= 400.
	raw := []byte(`{"statusCode":404.0,"message":"Resource not found"}`)

	_, err := Normalize(raw, Options{})
	require.Error(t, err)

	var statusErr *UnexpectedStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 404, statusErr.StatusCode)
	assert.Equal(t, "Resource not found", statusErr.Message)
}

func TestNormalize_ErrorEnvelopeInsideData(t *testing.T) {
	raw := []byte(`{"data":{"statusCode":500,"message":"Internal error"}}`)

	_, err := Normalize(raw, Options{})
	var statusErr *UnexpectedStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 500, statusErr.StatusCode)
}

func TestNormalize_SuccessStatusCodeIsNotAnEnvelope(t *testing.T) {
	// statusCode below 400 is payload data, not an error envelope.
	raw := []byte(`{"statusCode":200,"message":"ok"}`)

	table, err := Normalize(raw, Options{})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, num("200"), table.Rows[0]["statusCode"])
}

func TestNormalize_EmptyInputs(t *testing.T) {
	for _, raw := range []string{`[]`, `{"data":[]}`} {
		t.Run(raw, func(t *testing.T) {
			table, err := Normalize([]byte(raw), Options{})
			require.NoError(t, err)
			assert.True(t, table.Empty())
			assert.Len(t, table.Rows, 0)
			assert.Len(t, table.Columns, 0)
		})
	}
}

func TestNormalize_ColumnUnionWithNullPadding(t *testing.T) {
	raw := []byte(`[{"a":1},{"b":2}]`)

	table, err := Normalize(raw, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, num("1"), table.Rows[0]["a"])
	assert.Nil(t, table.Rows[0]["b"])
	assert.Nil(t, table.Rows[1]["a"])
	assert.Equal(t, num("2"), table.Rows[1]["b"])
}

func TestNormalize_NestedDataFlattening(t *testing.T) {
	raw := []byte(`[
		{"settlementDate":"2023-10-01","data":[
			{"psrType":"Wind","quantity":50},
			{"psrType":"Gas","quantity":120}
		]},
		{"settlementDate":"2023-10-02","data":[
			{"psrType":"Wind","quantity":61}
		]}
	]`)

	table, err := Normalize(raw, Options{
		FieldMap:   map[string]string{"psrType": "fuelType"},
		RetainKeys: []string{"settlementDate"},
	})
	require.NoError(t, err)

	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"fuelType", "quantity", "settlementDate"}, table.Columns)
	assert.Equal(t, "2023-10-01", table.Rows[0]["settlementDate"])
	assert.Equal(t, "2023-10-01", table.Rows[1]["settlementDate"])
	assert.Equal(t, "2023-10-02", table.Rows[2]["settlementDate"])
	assert.Equal(t, "Gas", table.Rows[1]["fuelType"])
}

func TestNormalize_NestedDataDropsUnretainedWrapperKeys(t *testing.T) {
	raw := []byte(`[{"batchSize":2,"data":[{"value":1},{"value":2}]}]`)

	table, err := Normalize(raw, Options{})
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"value"}, table.Columns)
}

func TestNormalize_MalformedPayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"null_payload", `null`},
		{"scalar_payload", `42`},
		{"string_payload", `"hello"`},
		{"scalar_data", `{"data":123}`},
		{"null_data", `{"data":null}`},
		{"non_object_element", `[{"a":1}, 7]`},
		{"invalid_json", `{"a":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize([]byte(tt.raw), Options{})
			require.Error(t, err)

			var malformed *MalformedPayloadError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestNormalize_IdempotentOnOwnOutput(t *testing.T) {
	raw := []byte(`{"data":[{"settlementDate":"2023-10-01","value":100},{"settlementDate":"2023-10-01"}]}`)

	first, err := Normalize(raw, Options{})
	require.NoError(t, err)

	rewrapped, err := json.Marshal(first.Rows)
	require.NoError(t, err)

	second, err := Normalize(rewrapped, Options{})
	require.NoError(t, err)

	require.Len(t, second.Rows, len(first.Rows))
	for i := range first.Rows {
		assert.Equal(t, first.Rows[i], second.Rows[i])
	}
}

func TestTable_JSONRoundTripKeepsNestedValues(t *testing.T) {
	// A record may carry a nested object under any key other than a
	// flattenable "data" sequence; the cache round-trip must not lose it.
	raw := []byte(`[{"halfHour":"2023-10-01T00:00Z","detail":{"fuelType":"Wind","quantity":50}}]`)

	fresh, err := Normalize(raw, Options{})
	require.NoError(t, err)

	encoded, err := json.Marshal(fresh)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"quantity":50`)

	var cached Table
	require.NoError(t, json.Unmarshal(encoded, &cached))
	assert.Equal(t, fresh, cached)
}

func TestNormalize_ValueTypesPreserved(t *testing.T) {
	// No silent coercion across rows: a column keeps whatever each record
	// carried, string or number.
	raw := []byte(`[{"value":"100"},{"value":100.5}]`)

	table, err := Normalize(raw, Options{})
	require.NoError(t, err)

	assert.Equal(t, "100", table.Rows[0]["value"])
	assert.Equal(t, num("100.5"), table.Rows[1]["value"])
}

func TestNormalize_ColumnOrderDeterministic(t *testing.T) {
	raw := []byte(`[{"c":1,"a":2,"b":3},{"d":4}]`)

	for i := 0; i < 25; i++ {
		table, err := Normalize(raw, Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a", "b", "d"}, table.Columns)
	}
}
