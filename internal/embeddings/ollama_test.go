package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newOllamaStub(t *testing.T, dims int, gotBatches *[][]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		*gotBatches = append(*gotBatches, req.Input)

		resp := ollamaEmbedResponse{Embeddings: make([][]float32, len(req.Input))}
		for i := range resp.Embeddings {
			resp.Embeddings[i] = make([]float32, dims)
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestOllamaEmbedBatches(t *testing.T) {
	var batches [][]string
	srv := newOllamaStub(t, 8, &batches)
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 8, srv.URL)

	texts := make([]string, ollamaBatchSize+3)
	for i := range texts {
		texts[i] = "passage"
	}
	vecs, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors for %d texts", len(vecs), len(texts))
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(batches))
	}
	if len(batches[0]) != ollamaBatchSize || len(batches[1]) != 3 {
		t.Errorf("batch sizes %d/%d, want %d/3", len(batches[0]), len(batches[1]), ollamaBatchSize)
	}
}

func TestOllamaEmbedRejectsWrongDimensions(t *testing.T) {
	var batches [][]string
	srv := newOllamaStub(t, 4, &batches)
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 8, srv.URL)
	if _, err := e.Embed(context.Background(), []string{"passage"}); err == nil {
		t.Fatal("expected a dimension mismatch error")
	}
}

func TestOllamaEmbedEmptyInput(t *testing.T) {
	e := NewOllamaEmbedder("nomic-embed-text", 8, "http://unreachable.invalid")
	vecs, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed(nil): %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil result for empty input, got %d vectors", len(vecs))
	}
}
