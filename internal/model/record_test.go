package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecord(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"final_price": 41400.10, "currency": "USD", "nested": {"a": [1, {"b": 2}]}}`))
	require.NoError(t, err)

	assert.Equal(t, json.Number("41400.10"), rec["final_price"])
	assert.Equal(t, "USD", rec["currency"])

	_, err = DecodeRecord([]byte(`null`))
	assert.ErrorIs(t, err, ErrNotAnObject)

	_, err = DecodeRecord([]byte(`[1, 2]`))
	assert.Error(t, err)

	_, err = DecodeRecord([]byte(`{"broken"`))
	assert.Error(t, err)
}

func TestDecodedRecordReencodesNumbersAsReceived(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"feature_id":"feat-003","quantity":2,"unit_price":5000.50,"big":12345678901234567890}`))
	require.NoError(t, err)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"feature_id":"feat-003","quantity":2,"unit_price":5000.50,"big":12345678901234567890}`, string(out))
	assert.Contains(t, string(out), `"unit_price":5000.50`)
	assert.Contains(t, string(out), `"big":12345678901234567890`)

	// Float is the float64 view
	price, ok := rec.Float("unit_price")
	require.True(t, ok)
	assert.Equal(t, 5000.5, price)
}

func TestRecordString(t *testing.T) {
	rec := Record{"id": "c1", "empty": "", "num": 3, "null": nil}

	s, ok := rec.String("id")
	assert.True(t, ok)
	assert.Equal(t, "c1", s)

	for _, key := range []string{"empty", "num", "null", "missing"} {
		_, ok := rec.String(key)
		assert.False(t, ok, key)
	}
}

func TestRecordFloat(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
		ok    bool
	}{
		{"float64", 1.5, 1.5, true},
		{"float32", float32(2.5), 2.5, true},
		{"int", 100, 100, true},
		{"int64", int64(7), 7, true},
		{"json number", json.Number("41400.10"), 41400.10, true},
		{"numeric string", "99.99", 99.99, true},
		{"non-numeric string", "n/a", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Record{"v": tt.value}.Float("v")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := Record{}.Float("missing")
	assert.False(t, ok)
}

func TestRecordNested(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"pricing": {"final_price": 1}, "none": null, "list": "x"}`))
	require.NoError(t, err)

	pricing, ok := rec.Record("pricing")
	require.True(t, ok)
	assert.Equal(t, json.Number("1"), pricing["final_price"])

	_, ok = rec.Record("none")
	assert.False(t, ok)
	_, ok = rec.Record("list")
	assert.False(t, ok)
	_, ok = rec.Record("missing")
	assert.False(t, ok)
}

func TestRecordRecords(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"full": [{"id": "a"}, {"id": "b"}], "empty": [], "none": null, "mixed": [{"id": "a"}, 3]}`))
	require.NoError(t, err)

	full, ok := rec.Records("full")
	require.True(t, ok)
	require.Len(t, full, 2)
	assert.Equal(t, "b", full[1]["id"])

	empty, ok := rec.Records("empty")
	assert.True(t, ok)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, key := range []string{"none", "mixed", "missing"} {
		_, ok := rec.Records(key)
		assert.False(t, ok, key)
	}
}

func TestRecordCloneIsDeep(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"breakdown": {"Basic Integration": 10000}, "tags": ["a", {"k": "v"}]}`))
	require.NoError(t, err)

	clone := rec.Clone()
	require.Equal(t, rec, clone)

	clone["breakdown"].(map[string]any)["Basic Integration"] = 0
	clone["tags"].([]any)[1].(map[string]any)["k"] = "changed"
	clone["extra"] = true

	assert.Equal(t, json.Number("10000"), rec["breakdown"].(map[string]any)["Basic Integration"])
	assert.Equal(t, "v", rec["tags"].([]any)[1].(map[string]any)["k"])
	assert.NotContains(t, rec, "extra")

	assert.Nil(t, Record(nil).Clone())
}

func TestCloneRecordsPreservesNil(t *testing.T) {
	assert.Nil(t, CloneRecords(nil))

	empty := CloneRecords([]Record{})
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	in := []Record{{"id": "a"}}
	out := CloneRecords(in)
	out[0]["id"] = "b"
	assert.Equal(t, "a", in[0]["id"])
}

func TestParseChatReply(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"conversation_id": "c1", "message": "Hi!", "state": "greeting", "requirements": [{"feature_id": "feat-001"}], "pricing": {"final_price": 100}}`))
	require.NoError(t, err)

	reply := ParseChatReply(rec)
	assert.Equal(t, "c1", reply.ConversationID)
	assert.Equal(t, "Hi!", reply.Message)
	require.Len(t, reply.Requirements, 1)
	assert.Equal(t, "feat-001", reply.Requirements[0]["feature_id"])
	assert.Equal(t, json.Number("100"), reply.Pricing["final_price"])

	bare := ParseChatReply(Record{"message": "ok", "requirements": nil, "pricing": nil})
	assert.Empty(t, bare.ConversationID)
	assert.Nil(t, bare.Requirements)
	assert.Nil(t, bare.Pricing)
}
