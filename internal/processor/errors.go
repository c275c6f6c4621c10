package processor

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSource = errors.New("unknown source")
	ErrTransport     = errors.New("transport failure")
)

// DecodeError marks an input record that could not be parsed. The record is
// dropped and the stream keeps going.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s record: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError marks a verdict that could not be serialized for output.
type EncodeError struct {
	Source string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s prediction: %v", e.Source, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// TransportError is fatal: the stream stops and the process exits.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
