// internal/frame/codec.go
package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/soya0924/shoe0522/internal/clock"
)

// ErrParse matches every ParseError via errors.Is.
var ErrParse = errors.New("frame: parse error")

// ParseError reports a line that could not become a Record.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	line := e.Line
	if len(line) > 64 {
		line = line[:64] + "..."
	}
	return fmt.Sprintf("frame: parse %q: %v", line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Codec turns raw link lines into Records for one endpoint.
type Codec struct {
	endpoint string
	clock    clock.Clock
}

// NewCodec returns a codec that stamps records with endpoint and clk.Now().
func NewCodec(endpoint string, clk clock.Clock) *Codec {
	if clk == nil {
		clk = clock.Real()
	}
	return &Codec{endpoint: endpoint, clock: clk}
}

// Endpoint returns the identifier stamped into every record.
func (c *Codec) Endpoint() string { return c.endpoint }

// Decode parses one frame. The payload must be a JSON object with a
// non-negative integral numeric "steps" field.
func (c *Codec) Decode(line string) (Record, error) {
	line = strings.TrimRight(line, "\r\n")

	fail := func(err error) (Record, error) {
		return Record{}, &ParseError{Line: line, Err: err}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return fail(err)
	}
	if fields == nil {
		return fail(errors.New("payload is not an object"))
	}

	raw, ok := fields[keySteps]
	if !ok {
		return fail(errors.New("missing steps"))
	}
	steps, err := parseSteps(raw)
	if err != nil {
		return fail(err)
	}

	// Device-supplied identity and time are never trusted.
	delete(fields, keySteps)
	delete(fields, keyTimestamp)
	delete(fields, keyDeviceID)

	rec := Record{
		Steps:     steps,
		Timestamp: c.clock.Now().UTC().Truncate(time.Millisecond),
		DeviceID:  c.endpoint,
	}
	if len(fields) > 0 {
		rec.Extra = fields
	}
	return rec, nil
}

func parseSteps(raw json.RawMessage) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("steps is %T, want number", v)
	}

	if n, err := num.Int64(); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("steps %d is negative", n)
		}
		return n, nil
	}

	f, err := num.Float64()
	if err != nil {
		return 0, fmt.Errorf("steps: %w", err)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f < 0 || f != math.Trunc(f) || f >= math.MaxInt64 {
		return 0, fmt.Errorf("steps %v is not a non-negative integer", f)
	}
	return int64(f), nil
}
