// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package sse converts an orchestrator event channel into a text/event-stream
// wire format, with a keep-alive ticker so long-running tasks survive
// intermediary idle-connection timeouts (Cloudflare's 524 among them).
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/n1n-api/picturebook/internal/orchestrator"
)

// keepAliveInterval matches original_source/backend/routes/
// outline_routes.py's 5-second heartbeat cadence.
const keepAliveInterval = 5 * time.Second

// Emitter streams a ProgressEvent channel to an io.Writer as SSE frames.
type Emitter struct {
	w io.Writer
	f http.Flusher
}

// NewEmitter wraps an http.ResponseWriter, setting the headers an SSE
// response requires. f may be nil if w doesn't support flushing (tests).
func NewEmitter(w http.ResponseWriter) *Emitter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	f, _ := w.(http.Flusher)
	return &Emitter{w: w, f: f}
}

// Stream drains events, writing one SSE frame per event and a keep-alive
// comment frame every 5s of silence, until events closes or ctx is done.
// It returns on the first write failure, without reporting it: once the
// client is gone there is nothing more useful to do than stop.
func (e *Emitter) Stream(ctx context.Context, events <-chan orchestrator.ProgressEvent) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := e.writeEvent(ev); err != nil {
				return
			}
			ticker.Reset(keepAliveInterval)
		case <-ticker.C:
			if err := e.writeKeepAlive(); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (e *Emitter) writeEvent(ev orchestrator.ProgressEvent) error {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", ev.Kind, payload); err != nil {
		return err
	}
	e.flush()
	return nil
}

func (e *Emitter) writeKeepAlive() error {
	if _, err := io.WriteString(e.w, ": keep-alive\n\n"); err != nil {
		return err
	}
	e.flush()
	return nil
}

func (e *Emitter) flush() {
	if e.f != nil {
		e.f.Flush()
	}
}
