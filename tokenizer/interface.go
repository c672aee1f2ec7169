// Package tokenizer provides interfaces for text tokenization operations.
// This package defines the core abstractions for token estimation, encoding, and decoding
// operations used by the retrieval and generation pipeline for budget accounting.
package tokenizer

import (
	"context"
)

// Estimator estimates the number of tokens in text content.
// This interface is useful for calculating text token usage before making API calls
// to AI services that have token limits or charge based on token consumption, and
// for deciding how much retrieved context fits a generation budget.
type Estimator interface {
	// EstimateText estimates the number of tokens in the given text.
	//
	// This method provides a quick way to estimate token count without performing
	// the actual tokenization process, which can be more efficient for usage tracking
	// and cost estimation purposes.
	EstimateText(ctx context.Context, text string) (int, error)
}

// Encoder provides functionality to convert text into token sequences.
type Encoder interface {
	// Encode converts the given text into a sequence of token IDs.
	Encode(ctx context.Context, text string) ([]int, error)
}

// Decoder provides functionality to convert token sequences back into text.
type Decoder interface {
	// Decode converts a sequence of token IDs back into text.
	Decode(ctx context.Context, tokens []int) (string, error)
}

// Tokenizer combines both encoding and decoding capabilities.
type Tokenizer interface {
	Encoder
	Decoder
}
