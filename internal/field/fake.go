package field

import (
	"errors"

	"github.com/sweeney/boiler-controller/internal/logic"
)

// FakeIO is a test double that returns scripted samples and records writes.
type FakeIO struct {
	// Samples contains scripted samples to return.
	// Each call to Read() consumes the next sample.
	Samples []Sample

	index int

	// ReadError, if set, will be returned by Read().
	ReadError error

	// WriteError, if set, will be returned by Write() while FailWrites > 0,
	// or on every call when FailWrites is zero.
	WriteError error
	FailWrites int

	// Writes records every output image passed to Write, including failed ones.
	Writes []logic.Outputs

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeIO creates a FakeIO with the given samples.
func NewFakeIO(samples ...Sample) *FakeIO {
	return &FakeIO{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeIO) Read() (Sample, error) {
	if f.ReadError != nil {
		return Sample{}, f.ReadError
	}
	if len(f.Samples) == 0 {
		return Sample{}, errors.New("no samples configured")
	}

	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s, nil
}

// Write records out and returns the configured error, if any.
func (f *FakeIO) Write(out logic.Outputs) error {
	f.Writes = append(f.Writes, out)
	if f.WriteError == nil {
		return nil
	}
	if f.FailWrites == 0 {
		return f.WriteError
	}
	f.FailWrites--
	if f.FailWrites == 0 {
		err := f.WriteError
		f.WriteError = nil
		return err
	}
	return f.WriteError
}

// Close marks the fake as closed.
func (f *FakeIO) Close() error {
	f.Closed = true
	return nil
}

// LastWrite returns the most recent output image, or false if none.
func (f *FakeIO) LastWrite() (logic.Outputs, bool) {
	if len(f.Writes) == 0 {
		return logic.Outputs{}, false
	}
	return f.Writes[len(f.Writes)-1], true
}
