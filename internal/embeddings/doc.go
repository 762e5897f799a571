// Package embeddings rates a reasoning step by embedding similarity to the
// steps before it.
//
// Vectors come from any langchaingo Embedder. NewService builds one against
// an OpenAI-compatible endpoint, which covers both the OpenAI API and local
// TEI servers:
//
//	svc, err := embeddings.NewService(embeddings.Config{
//	    BaseURL: "http://localhost:8080/v1",
//	    Model:   "BAAI/bge-small-en-v1.5",
//	})
//	scorer := embeddings.NewScorer(svc, logger)
package embeddings
