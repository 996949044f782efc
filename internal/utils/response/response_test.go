package response

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON_Error(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, GeneralError(errors.New("boom"))))
	assert.JSONEq(t, `{"status":"error","error":"boom"}`, buf.String())
}

func TestWriteJSON_Indented(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]int64{"count": 3}))
	assert.Equal(t, "{\n  \"count\": 3\n}\n", buf.String())
}
