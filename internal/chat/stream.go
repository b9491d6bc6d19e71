package chat

import (
	"bytes"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	dataPrefix = "data: "
	doneMarker = "data: [DONE]"
)

// StreamDecoder accumulates a server-sent event completion stream. Bytes
// are buffered until a full line is available, so multi-byte characters
// split across reads are decoded intact.
type StreamDecoder struct {
	pending    []byte
	message    strings.Builder
	chunks     int
	onFragment func(string)
	log        log.FieldLogger
}

// NewStreamDecoder creates a decoder that reports each content increment
// to onFragment. Either argument may be nil.
func NewStreamDecoder(onFragment func(string), logger log.FieldLogger) *StreamDecoder {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &StreamDecoder{onFragment: onFragment, log: logger}
}

// Write processes every complete line in p and keeps the trailing partial
// line for the next call. It never fails.
func (d *StreamDecoder) Write(p []byte) (int, error) {
	d.pending = append(d.pending, p...)
	for {
		i := bytes.IndexByte(d.pending, '\n')
		if i < 0 {
			break
		}
		d.processLine(string(d.pending[:i]))
		d.pending = d.pending[i+1:]
	}
	return len(p), nil
}

// Flush processes a final line that was not newline terminated.
func (d *StreamDecoder) Flush() {
	if len(d.pending) == 0 {
		return
	}
	line := string(d.pending)
	d.pending = nil
	d.processLine(line)
}

// Message returns the text accumulated so far.
func (d *StreamDecoder) Message() string { return d.message.String() }

// Chunks returns the number of data chunks parsed.
func (d *StreamDecoder) Chunks() int { return d.chunks }

func (d *StreamDecoder) processLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" || line == doneMarker || !strings.HasPrefix(line, dataPrefix) {
		return
	}
	payload := line[len(dataPrefix):]
	if !gjson.Valid(payload) {
		d.log.WithField("chunk", payload).Warn("Error parsing stream chunk")
		return
	}
	d.chunks++

	content := gjson.Get(payload, "choices.0.delta.content").String()
	if content == "" {
		return
	}
	d.message.WriteString(content)
	if d.onFragment != nil {
		d.onFragment(content)
	}
}
