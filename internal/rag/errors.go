package rag

import (
	"errors"
	"fmt"
)

// ErrEmptyQuery is returned when a retrieval is attempted with a blank query
// string, before any embedding or index call is made.
var ErrEmptyQuery = errors.New("rag: query must not be empty")

var (
	errNilEmbedder    = errors.New("embedder must not be nil")
	errNilStore       = errors.New("vector store must not be nil")
	errEmptyEmbedding = errors.New("embedder returned no vectors")
)

// EmbeddingError wraps a failure from the embedding backend: unreachable
// service or malformed output.
type EmbeddingError struct {
	// Err is the underlying backend error.
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("rag: embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// IndexError wraps a failure from the vector index backend.
type IndexError struct {
	// Op is the index operation that failed ("search", "insert", "scroll", "delete").
	Op string

	// Err is the underlying backend error.
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("rag: index %s failed: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// wrapIndexErr ensures an error crossing the store boundary is an IndexError
// without double-wrapping errors the store already typed.
func wrapIndexErr(err error) error {
	var ie *IndexError
	if errors.As(err, &ie) {
		return err
	}
	return &IndexError{Op: "search", Err: err}
}
