// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the workspace chat stream.
//
// The chat endpoint replies with newline-delimited records of the form
//
//	data: {"content": "Hel", "done": false}
//	data: {"content": "", "done": true, "message_id": "..."}
//
// Records carrying content become delta frames; a record with done set
// becomes the final frame. Blank lines, keep-alive comments and lines
// without the data marker are ignored. Malformed records are logged and
// skipped without interrupting the stream.
//
// # Usage
//
//	dec := stream.NewDecoder()
//	for frame := range dec.Feed(chunk) {
//	    if frame.Final {
//	        break
//	    }
//	    content += frame.Delta
//	}
package stream
