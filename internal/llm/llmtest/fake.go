// Package llmtest provides a scripted llm.Model for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/dukerupert/larder/internal/llm"
)

// Fake returns canned responses and records every request it receives.
type Fake struct {
	Response string
	Err      error

	// Chunks are replayed by Stream. StreamErr makes Stream itself fail.
	Chunks    []llm.Chunk
	StreamErr error

	mu       sync.Mutex
	requests []llm.Request
}

func (f *Fake) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.record(req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.Response, f.Err
}

func (f *Fake) Stream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	f.record(req)
	if f.StreamErr != nil {
		return nil, f.StreamErr
	}
	ch := make(chan llm.Chunk)
	go func() {
		defer close(ch)
		for _, c := range f.Chunks {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Requests returns a copy of the requests seen so far.
func (f *Fake) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

func (f *Fake) record(req llm.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
}

// TextChunks splits text into one content chunk per word-ish piece.
func TextChunks(pieces ...string) []llm.Chunk {
	out := make([]llm.Chunk, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, llm.Chunk{Content: p})
	}
	return out
}
