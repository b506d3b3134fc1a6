package llm

import (
	"testing"

	"github.com/ppiankov/creditlens/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONPayload(t *testing.T) {
	cases := map[string]string{
		`[{"a":1}]`:                        `[{"a":1}]`,
		"```json\n[{\"a\":1}]\n```":        `[{"a":1}]`,
		"Sure! Here it is:\n[1, 2]\nDone.": `[1, 2]`,
	}
	for in, want := range cases {
		got, err := jsonPayload(in, '[', ']')
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := jsonPayload("no json here", '[', ']')
	assert.ErrorIs(t, err, model.ErrExtraction)
}

func TestParseFindings_AlternateKeys(t *testing.T) {
	findings, err := parseFindings(`[{"name":"Governing Law","value":"New York","benchmark":"New York","variance":"green","comment":"market"}]`)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, model.TermFinding{
		Term:           "Governing Law",
		Value:          "New York",
		BenchmarkValue: "New York",
		Variance:       "green",
		Commentary:     "market",
	}, findings[0])
}

func TestParseFindings_EmptyArray(t *testing.T) {
	findings, err := parseFindings("[]")
	require.NoError(t, err)
	assert.Empty(t, findings)
}
