// Package tokens counts prompt tokens so the model's context budget can
// be checked before a call is made.
package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates the token count of a text.
type Counter interface {
	Count(text string) (int, error)
}

// TiktokenCounter counts tokens with a real BPE encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter for the named encoding, e.g.
// "cl100k_base".
func NewTiktokenCounter(encodingName string) (*TiktokenCounter, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding %s: %w", encodingName, err)
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

// Count returns the number of tokens in text.
func (c *TiktokenCounter) Count(text string) (int, error) {
	return len(c.encoding.Encode(text, nil, nil)), nil
}

// HeuristicCounter approximates tokens as characters/4. Used when the
// BPE tables are unavailable, e.g. offline environments and tests.
type HeuristicCounter struct{}

// Count approximates the token count.
func (HeuristicCounter) Count(text string) (int, error) {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n, nil
}

// NewCounter returns a tiktoken-backed counter, degrading to the
// heuristic when the encoding cannot be loaded.
func NewCounter(encodingName string) Counter {
	if c, err := NewTiktokenCounter(encodingName); err == nil {
		return c
	}
	return HeuristicCounter{}
}
