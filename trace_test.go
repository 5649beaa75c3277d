package glyph

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf)

	at := time.Unix(1756200000, 123000).UTC()
	require.NoError(t, rec.Record("EVAL", "pw::Grid check", "OK", "0", at, 1500*time.Microsecond))
	require.NoError(t, rec.Record("COMMAND", `["pw::Connector","create"]`, "ERROR", "nope", at.Add(time.Second), 80*time.Microsecond))

	records, err := ReadTrace(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "EVAL", records[0].ReqType)
	assert.Equal(t, "pw::Grid check", records[0].ReqPayload)
	assert.Equal(t, "OK", records[0].RespType)
	assert.Equal(t, "0", records[0].RespPayload)
	assert.True(t, records[0].At.Equal(at))
	assert.Equal(t, 1500*time.Microsecond, records[0].Duration)

	assert.Equal(t, "ERROR", records[1].RespType)
	assert.Equal(t, "nope", records[1].RespPayload)
}

func TestTraceEmptyStream(t *testing.T) {
	records, err := ReadTrace(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTraceTruncatedRecord(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf)
	require.NoError(t, rec.Record("PING", "", "OK", "OK", time.Now(), 0))

	truncated := buf.Bytes()[:buf.Len()-3]
	_, err := ReadTrace(bytes.NewReader(truncated))
	assert.Error(t, err)
}

func TestTraceCorruptLength(t *testing.T) {
	_, err := ReadTrace(strings.NewReader("\x00\x00\x00\x00"))
	assert.Error(t, err)
}
