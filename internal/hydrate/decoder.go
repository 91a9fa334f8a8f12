// Package hydrate decodes loosely typed JSON records into structs, with
// hooks around decoding.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnsupportedDocument indicates a document that is neither an object nor
// an array of objects.
var ErrUnsupportedDocument = errors.New("hydrate: document must be an object or an array")

// Context identifies the record being decoded.
type Context struct {
	Source string
	Index  int
}

// PreHook lets callers mutate or normalise a record before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the decoded value.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default JSON decoding when provided.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts records into T. Unknown fields are ignored unless
// WithDisallowUnknownFields is set.
type Decoder[T any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
	custom       CustomDecoder[T]
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithDisallowUnknownFields rejects records carrying fields T does not
// declare.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

// WithCustomDecoder replaces the default JSON decoding path.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts one record into T applying the configured hooks. The
// record is not modified.
func (d *Decoder[T]) Decode(ctx Context, record map[string]any) (T, error) {
	var zero T
	if record == nil {
		return zero, fmt.Errorf("hydrate: %s[%d] is null", ctx.Source, ctx.Index)
	}

	current := cloneRecord(record)
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for %s[%d] failed: %w", ctx.Source, ctx.Index, err)
		}
		if next != nil {
			current = next
		}
	}

	var (
		result T
		err    error
	)
	if d.custom != nil {
		result, err = d.custom(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: custom decoder for %s[%d] failed: %w", ctx.Source, ctx.Index, err)
		}
	} else {
		buffer, err := json.Marshal(current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: marshal %s[%d]: %w", ctx.Source, ctx.Index, err)
		}
		decoder := json.NewDecoder(bytes.NewReader(buffer))
		for _, configure := range d.configureDec {
			configure(decoder)
		}
		if err := decoder.Decode(&result); err != nil {
			return zero, fmt.Errorf("hydrate: decode %s[%d]: %w", ctx.Source, ctx.Index, err)
		}
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %s[%d] failed: %w", ctx.Source, ctx.Index, err)
		}
	}
	return result, nil
}

// DecodeDocument decodes a JSON document holding either one record or an
// array of records. Null array elements are skipped; the returned slice
// keeps document order.
func (d *Decoder[T]) DecodeDocument(source string, raw []byte) ([]T, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var document any
	if err := dec.Decode(&document); err != nil {
		return nil, fmt.Errorf("hydrate: parse %s: %w", source, err)
	}

	switch typed := document.(type) {
	case map[string]any:
		value, err := d.Decode(Context{Source: source}, typed)
		if err != nil {
			return nil, err
		}
		return []T{value}, nil
	case []any:
		out := make([]T, 0, len(typed))
		for idx, element := range typed {
			if element == nil {
				continue
			}
			record, ok := element.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] is %T", ErrUnsupportedDocument, source, idx, element)
			}
			value, err := d.Decode(Context{Source: source, Index: idx}, record)
			if err != nil {
				return nil, err
			}
			out = append(out, value)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s is %T", ErrUnsupportedDocument, source, document)
	}
}

func cloneRecord(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for key, value := range record {
		out[key] = value
	}
	return out
}
