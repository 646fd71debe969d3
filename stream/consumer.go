// Package stream turns a response body into cumulative text snapshots.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sink receives the whole response text received so far.
type Sink func(ctx context.Context, text string) error

const defaultBufferSize = 1024

type options struct {
	bufferSize int
}

type Option func(*options)

// WithBufferSize sets the maximum number of bytes requested per read.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// Consume reads r until EOF. Each non-empty read is one chunk: it is decoded,
// appended to the accumulated text, and the accumulated text is passed to
// sink. Reads are sequential. The complete text is returned.
func Consume(ctx context.Context, r io.Reader, sink Sink, opts ...Option) (text string, err error) {
	o := options{bufferSize: defaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}

	dec := NewDecoder()
	var sb strings.Builder
	chunk := make([]byte, o.bufferSize)
	for {
		if err = ctx.Err(); err != nil {
			return sb.String(), err
		}
		n, readErr := r.Read(chunk)
		if n > 0 {
			s, err := dec.Decode(chunk[:n], false)
			if err != nil {
				return sb.String(), fmt.Errorf("failed to decode chunk: %w", err)
			}
			sb.WriteString(s)
			if err = sink(ctx, sb.String()); err != nil {
				return sb.String(), fmt.Errorf("failed to process chunk: %w", err)
			}
		}
		if readErr == nil {
			continue
		}
		if !errors.Is(readErr, io.EOF) {
			return sb.String(), fmt.Errorf("failed to read response body: %w", readErr)
		}
		break
	}

	// The stream ended part way through a character.
	if dec.Pending() {
		s, err := dec.Decode(nil, true)
		if err != nil {
			return sb.String(), fmt.Errorf("failed to decode chunk: %w", err)
		}
		sb.WriteString(s)
		if err = sink(ctx, sb.String()); err != nil {
			return sb.String(), fmt.Errorf("failed to process chunk: %w", err)
		}
	}
	return sb.String(), nil
}

// ConsumeAll reads the whole of r before decoding it, and calls sink once.
func ConsumeAll(ctx context.Context, r io.Reader, sink Sink) (text string, err error) {
	var body []byte
	if r != nil {
		body, err = io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read response body: %w", err)
		}
	}
	text, err = NewDecoder().Decode(body, true)
	if err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return text, err
	}
	if err = sink(ctx, text); err != nil {
		return text, fmt.Errorf("failed to process response: %w", err)
	}
	return text, nil
}
