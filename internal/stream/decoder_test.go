// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// collect drains one Feed call.
func collect(d *Decoder, chunk string) []Frame {
	return slices.Collect(d.Feed([]byte(chunk)))
}

// =============================================================================
// DECODER TESTS
// =============================================================================

func TestDecoder_SingleDelta(t *testing.T) {
	d := NewDecoder()
	frames := collect(d, "data: {\"content\":\"Hel\"}\n")

	require.Len(t, frames, 1)
	if frames[0].Delta != "Hel" || frames[0].Final {
		t.Errorf("frame = %+v, want delta 'Hel'", frames[0])
	}
}

func TestDecoder_SplitAcrossFeeds(t *testing.T) {
	d := NewDecoder()

	first := collect(d, "data: {\"content\":\"Hel")
	if len(first) != 0 {
		t.Fatalf("first feed produced %d frames, want 0", len(first))
	}

	second := collect(d, "lo\"}\n")
	require.Len(t, second, 1)
	if second[0].Delta != "Hello" {
		t.Errorf("Delta = %q, want 'Hello'", second[0].Delta)
	}
	if rest := d.Flush(); rest != nil {
		t.Errorf("Flush after complete line = %+v, want nil", rest)
	}
}

func TestDecoder_FinalRecord(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Frame
	}{
		{
			name:  "bare done",
			input: "data: {\"done\":true}\n",
			want:  []Frame{{Final: true}},
		},
		{
			name:  "server completion record",
			input: "data: {\"content\": \"\", \"done\": true, \"message_id\": \"m-42\"}\n",
			want:  []Frame{{Final: true, MessageID: "m-42"}},
		},
		{
			name:  "done false is a delta",
			input: "data: {\"content\": \"hi\", \"done\": false}\n",
			want:  []Frame{{Delta: "hi"}},
		},
		{
			name:  "content with done yields both",
			input: "data: {\"content\":\"end\",\"done\":true}\n",
			want:  []Frame{{Delta: "end"}, {Final: true}},
		},
		{
			name:  "crlf line ending",
			input: "data: {\"content\":\"x\"}\r\n",
			want:  []Frame{{Delta: "x"}},
		},
		{
			name:  "marker without space",
			input: "data:{\"content\":\"y\"}\n",
			want:  []Frame{{Delta: "y"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(NewDecoder(), tt.input)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecoder_IgnoredLines(t *testing.T) {
	d := NewDecoder()
	input := "\n" +
		": keep-alive\n" +
		"event: message\n" +
		"data: \n" +
		"data: {\"content\":\"\"}\n" +
		"data: {}\n"

	frames := collect(d, input)
	if len(frames) != 0 {
		t.Errorf("got %d frames from ignorable lines, want 0: %+v", len(frames), frames)
	}
	if d.Dropped() != 0 {
		t.Errorf("Dropped = %d, want 0", d.Dropped())
	}
}

func TestDecoder_MalformedLineSkipped(t *testing.T) {
	d := NewDecoder()
	var seen []*DecodeError
	d.OnDecodeError = func(err *DecodeError) { seen = append(seen, err) }

	frames := collect(d, "data: {\"content\":\"a\"}\ndata: {not json\ndata: {\"content\":\"b\"}\n")

	require.Equal(t, []Frame{{Delta: "a"}, {Delta: "b"}}, frames)
	if d.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", d.Dropped())
	}
	require.Len(t, seen, 1)
	if seen[0].Line != "{not json" {
		t.Errorf("DecodeError.Line = %q", seen[0].Line)
	}
}

func TestDecoder_PartitionInvariance(t *testing.T) {
	body := "data: {\"content\":\"Hello, \"}\n" +
		": ping\n" +
		"data: {\"content\":\"wörld ☃\"}\n" +
		"\n" +
		"data: {\"content\":\"!\"}\r\n" +
		"data: {\"content\":\"\",\"done\":true,\"message_id\":\"abc\"}\n"

	want := collect(NewDecoder(), body)
	require.Len(t, want, 4)

	// Every two-way split, including inside multi-byte runes
	for i := 0; i <= len(body); i++ {
		d := NewDecoder()
		got := collect(d, body[:i])
		got = append(got, collect(d, body[i:])...)
		if !slices.Equal(got, want) {
			t.Fatalf("split at %d: got %+v, want %+v", i, got, want)
		}
	}

	// Byte at a time
	d := NewDecoder()
	var got []Frame
	for i := 0; i < len(body); i++ {
		got = append(got, collect(d, body[i:i+1])...)
	}
	require.Equal(t, want, got)
}

func TestDecoder_EarlyStopKeepsRemainingLines(t *testing.T) {
	d := NewDecoder()
	seq := d.Feed([]byte("data: {\"content\":\"1\"}\ndata: {\"content\":\"2\"}\n"))

	for f := range seq {
		if f.Delta != "1" {
			t.Fatalf("first frame = %+v", f)
		}
		break
	}

	rest := collect(d, "")
	require.Equal(t, []Frame{{Delta: "2"}}, rest)
}

func TestDecoder_Reset(t *testing.T) {
	d := NewDecoder()
	collect(d, "data: {\"content\":\"stale")
	d.Reset()

	frames := collect(d, "data: {\"content\":\"fresh\"}\n")
	require.Equal(t, []Frame{{Delta: "fresh"}}, frames)
}

func TestDecoder_Flush(t *testing.T) {
	d := NewDecoder()
	if frames := collect(d, "data: {\"done\":true}"); len(frames) != 0 {
		t.Fatalf("unterminated line produced frames: %+v", frames)
	}

	require.Equal(t, []Frame{{Final: true}}, d.Flush())
	if d.Flush() != nil {
		t.Error("second Flush should return nil")
	}
}
