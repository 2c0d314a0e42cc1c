// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives one streaming exchange at a time for the selected
// conversation.
//
// A Controller owns the transcript store and the output projector. Submit
// appends the user's message, opens the stream on a goroutine and feeds each
// decoded delta into the assistant placeholder and the projection. The
// session ends in exactly one of three ways:
//
//   - Done: the final frame arrived; the reply is frozen and the
//     conversation's updated time is bumped once.
//   - Error: the transport failed; the placeholder is replaced with the
//     fallback text and nothing is bumped.
//   - Abandoned: the user switched conversation, cancelled, or superseded
//     the request; later deltas from the old stream are discarded.
//
// Every mutation made on behalf of a session first checks that the session
// is still the controller's current one.
//
// # Usage
//
//	ctrl := session.NewController(session.Config{
//	    Transport: apiClient,
//	    History:   apiClient,
//	    Registry:  cache,
//	})
//	if err := ctrl.SelectConversation(ctx, conv); err != nil {
//	    log.Printf("history load failed: %v", err)
//	}
//	sess, err := ctrl.Submit(ctx, "Explain goroutines")
//	if err != nil {
//	    return err // precondition not met, nothing was sent
//	}
//	_ = sess.Wait(ctx)
package session
