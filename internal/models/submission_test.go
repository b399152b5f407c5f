package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerCode(t *testing.T) {
	assert.True(t, AnswerFull.Valid())
	assert.False(t, AnswerCode("D").Valid())
	assert.Equal(t, "Fully implemented", AnswerFull.Label())
	assert.Equal(t, "Partially implemented", AnswerPartial.Label())
	assert.Equal(t, "Not implemented", AnswerCode("?").Label())
}

func TestAnswerSet(t *testing.T) {
	a := AnswerSet{3: AnswerFull, 0: AnswerPartial, 7: AnswerCode("X")}

	assert.Equal(t, []int{0, 3, 7}, a.Indexes())
	assert.Equal(t, AnswerFull, a.Get(3))
	assert.Equal(t, AnswerNone, a.Get(7))
	assert.Equal(t, AnswerNone, a.Get(5))
}

func TestAnswerSet_JSONUsesStringKeys(t *testing.T) {
	var a AnswerSet
	require.NoError(t, json.Unmarshal([]byte(`{"0":"A","9":"C"}`), &a))
	assert.Equal(t, AnswerSet{0: AnswerFull, 9: AnswerNone}, a)
}

func TestArtifact_ContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", Artifact{MediaType: MediaDocument}.ContentType())
	assert.Contains(t, Artifact{MediaType: MediaFallbackText}.ContentType(), "text/html")
}
