// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"
	"iter"
	"log"
	"sync/atomic"
)

// =============================================================================
// FRAMES
// =============================================================================

// Frame is one decoded unit of a streaming reply.
type Frame struct {
	// Delta is the content fragment to append. Empty for final frames.
	Delta string

	// Final marks the server's completion record.
	Final bool

	// MessageID is the id the server assigned to the persisted reply.
	// Only set on final frames, and only when the server sends one.
	MessageID string
}

// record mirrors the JSON payload after the data marker.
type record struct {
	Content   *string `json:"content"`
	Done      bool    `json:"done"`
	MessageID string  `json:"message_id,omitempty"`
}

// DecodeError describes a line that could not be decoded. It is never
// returned to callers; the decoder logs it and moves on.
type DecodeError struct {
	Line  string
	Cause error
}

func (e *DecodeError) Error() string {
	return "malformed stream record: " + e.Cause.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// =============================================================================
// DECODER
// =============================================================================

// dataMarker prefixes every meaningful line.
var dataMarker = []byte("data:")

// maxLoggedLine bounds how much of a malformed line ends up in the log.
const maxLoggedLine = 120

// Decoder turns raw response bytes into frames.
//
// Chunks may split a line anywhere, including inside a multi-byte character;
// the trailing partial line is held until the next Feed. Feeding a byte
// stream in any partition yields the same frames as feeding it whole.
//
// A Decoder is not safe for concurrent use. Each stream owns one.
type Decoder struct {
	buf     []byte
	dropped atomic.Int64

	// OnDecodeError, when set, receives every dropped line.
	OnDecodeError func(*DecodeError)
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to the pending buffer and returns the frames formed by
// the complete lines now available. The sequence is lazy: lines are consumed
// as frames are pulled, so a consumer that stops early leaves the remaining
// lines buffered for the next call.
func (d *Decoder) Feed(chunk []byte) iter.Seq[Frame] {
	d.buf = append(d.buf, chunk...)

	return func(yield func(Frame) bool) {
		for {
			idx := bytes.IndexByte(d.buf, '\n')
			if idx < 0 {
				return
			}
			line := d.buf[:idx]
			rest := d.buf[idx+1:]

			frames := d.decodeLine(line)
			d.buf = rest
			for _, f := range frames {
				if !yield(f) {
					return
				}
			}
		}
	}
}

// Flush decodes whatever unterminated line is left in the buffer. Call it
// once the body has ended; servers are not required to end the last record
// with a newline.
func (d *Decoder) Flush() []Frame {
	if len(d.buf) == 0 {
		return nil
	}
	line := d.buf
	d.buf = nil
	return d.decodeLine(line)
}

// Reset discards any buffered partial line.
func (d *Decoder) Reset() {
	d.buf = nil
}

// Dropped returns how many lines were discarded as malformed.
func (d *Decoder) Dropped() int64 {
	return d.dropped.Load()
}

// decodeLine interprets a single line without its newline.
func (d *Decoder) decodeLine(line []byte) []Frame {
	line = bytes.TrimSuffix(line, []byte{'\r'})

	if !bytes.HasPrefix(line, dataMarker) {
		// Blank lines, keep-alive comments and anything unmarked
		return nil
	}
	payload := bytes.TrimPrefix(line[len(dataMarker):], []byte{' '})
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		d.drop(&DecodeError{Line: string(payload), Cause: err})
		return nil
	}

	var frames []Frame
	if rec.Content != nil && *rec.Content != "" {
		frames = append(frames, Frame{Delta: *rec.Content})
	}
	if rec.Done {
		frames = append(frames, Frame{Final: true, MessageID: rec.MessageID})
	}
	return frames
}

func (d *Decoder) drop(err *DecodeError) {
	d.dropped.Add(1)

	line := err.Line
	if len(line) > maxLoggedLine {
		line = line[:maxLoggedLine] + "..."
	}
	log.Printf("STREAM_DECODE_ERROR | error=%v line=%q", err.Cause, line)

	if d.OnDecodeError != nil {
		d.OnDecodeError(err)
	}
}
