package glyph

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Integer keys of a trace record. Integer-keyed CBOR maps keep the
// format compact and let fields be added without breaking old readers.
const (
	traceKeyReqType     = 1
	traceKeyReqPayload  = 2
	traceKeyRespType    = 3
	traceKeyRespPayload = 4
	traceKeyUnixNano    = 5
	traceKeyDurationUs  = 6
)

// maxTraceRecord bounds a single record when reading a trace back.
const maxTraceRecord = 64 * 1024 * 1024

// Recorder writes one length-prefixed CBOR record per wire exchange to
// an Options.Trace sink. Safe for use from one session; the mutex keeps
// records whole when a session is handed between goroutines.
type Recorder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewRecorder creates a Recorder writing to w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{w: w}
}

// Record appends one exchange to the trace.
func (r *Recorder) Record(reqType, reqPayload, respType, respPayload string, at time.Time, dur time.Duration) error {
	body, err := cbor.Marshal(map[int]any{
		traceKeyReqType:     reqType,
		traceKeyReqPayload:  reqPayload,
		traceKeyRespType:    respType,
		traceKeyRespPayload: respPayload,
		traceKeyUnixNano:    at.UnixNano(),
		traceKeyDurationUs:  dur.Microseconds(),
	})
	if err != nil {
		return fmt.Errorf("encoding trace record: %w", err)
	}

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(body)))

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.w.Write(prefix[:]); err != nil {
		return err
	}
	_, err = r.w.Write(body)
	return err
}

// TraceRecord is one decoded exchange from a trace stream.
type TraceRecord struct {
	ReqType     string
	ReqPayload  string
	RespType    string
	RespPayload string
	At          time.Time
	Duration    time.Duration
}

// ReadTrace decodes every record from a trace stream.
func ReadTrace(r io.Reader) ([]TraceRecord, error) {
	var out []TraceRecord
	for {
		var prefix [4]byte
		if _, err := io.ReadFull(r, prefix[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		length := binary.BigEndian.Uint32(prefix[:])
		if length == 0 || length > maxTraceRecord {
			return out, fmt.Errorf("trace record length %d is out of range", length)
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(r, body); err != nil {
			return out, err
		}

		var m map[int]any
		if err := cbor.Unmarshal(body, &m); err != nil {
			return out, fmt.Errorf("decoding trace record: %w", err)
		}
		rec := TraceRecord{
			ReqType:     traceString(m[traceKeyReqType]),
			ReqPayload:  traceString(m[traceKeyReqPayload]),
			RespType:    traceString(m[traceKeyRespType]),
			RespPayload: traceString(m[traceKeyRespPayload]),
		}
		if ns, ok := traceInt(m[traceKeyUnixNano]); ok {
			rec.At = time.Unix(0, ns)
		}
		if us, ok := traceInt(m[traceKeyDurationUs]); ok {
			rec.Duration = time.Duration(us) * time.Microsecond
		}
		out = append(out, rec)
	}
}

func traceString(v any) string {
	s, _ := v.(string)
	return s
}

func traceInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int:
		return int64(n), true
	}
	return 0, false
}
