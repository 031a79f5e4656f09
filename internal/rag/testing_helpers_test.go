package rag

import (
	"context"
	"errors"
	"sync/atomic"
)

// fakeLLM is a scriptable CompletionProvider for tests: each call pops the
// next queued response (or error) in order. A nil remaining queue returns
// errAlwaysFail.
type fakeLLM struct {
	responses []string
	err       error
	calls     int32
}

var errAlwaysFail = errors.New("fake llm: forced failure")

func (f *fakeLLM) Complete(_ context.Context, req CompletionRequest) (string, error) {
	idx := int(atomic.AddInt32(&f.calls, 1)) - 1
	if f.err != nil {
		return "", f.err
	}
	if idx >= len(f.responses) {
		return "", errAlwaysFail
	}
	return f.responses[idx], nil
}

func (f *fakeLLM) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

// fakeEmbedder returns a deterministic embedding derived from the text's
// character codes and length,
// so fake vectors are distinguishable without needing a real model.
type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string, text string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return deterministicVector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, model, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func deterministicVector(text string) []float64 {
	sum := 0
	for _, r := range text {
		sum += int(r)
	}
	return []float64{float64(sum%97) / 97.0, float64(len(text)%31) / 31.0}
}

// fakeVectorStore returns a fixed set of hits regardless of query vector,
// so retriever tests can focus on BM25/fusion/filtering behavior.
type fakeVectorStore struct {
	hits []SearchHit
	err  error
}

func (f *fakeVectorStore) Search(_ context.Context, _ string, _ []float64, limit int, _ string, _ SearchFilters) ([]SearchHit, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.hits) {
		return append([]SearchHit{}, f.hits[:limit]...), nil
	}
	return append([]SearchHit{}, f.hits...), nil
}
