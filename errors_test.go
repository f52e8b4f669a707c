package varia

import (
	"context"
	"errors"
	"testing"

	"github.com/panjf2000/ants/v2"

	"github.com/jpl-au/varia/store"
)

func TestErrorsDistinct(t *testing.T) {
	all := []error{
		ErrFileNotFound, ErrFormatInvalid, ErrVariantNotFound, ErrEncodingFailed,
		ErrParsingFailed, ErrFailedToWrite, ErrIO, ErrDuplicateTag, ErrClosed,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v matches %v", a, b)
			}
		}
	}
}

func TestStoreErr(t *testing.T) {
	r := openTestRunner(t, Config{Backend: BackendMemory})
	cause := errors.New("read-only file system")

	cancelled, cancel := context.WithCancel(t.Context())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want []error
		not  []error
	}{
		{"not found", t.Context(), store.ErrNotFound, []error{ErrFileNotFound}, []error{ErrIO}},
		{"store closed", t.Context(), store.ErrClosed, []error{ErrClosed, store.ErrClosed}, []error{ErrIO}},
		{"pool closed", t.Context(), ants.ErrPoolClosed, []error{ErrClosed}, []error{ErrIO}},
		{"cancelled", cancelled, context.Canceled, []error{context.Canceled}, []error{ErrIO}},
		{"other", t.Context(), cause, []error{ErrIO, cause}, []error{ErrFileNotFound}},
		// Cancellation of some other context is a storage failure.
		{"foreign cancel", t.Context(), context.Canceled, []error{ErrIO}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.storeErr(tt.ctx, "car", tt.err)
			for _, w := range tt.want {
				if !errors.Is(err, w) {
					t.Errorf("storeErr = %v, want %v in chain", err, w)
				}
			}
			for _, n := range tt.not {
				if errors.Is(err, n) {
					t.Errorf("storeErr = %v, must not match %v", err, n)
				}
			}
		})
	}
}

func TestCancelledIsUnwrapped(t *testing.T) {
	r := openTestRunner(t, Config{Backend: BackendMemory})
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := carType.Async(r).Load(ctx, "car").Wait()
	if err != context.Canceled {
		t.Errorf("Load = %v, want context.Canceled unwrapped", err)
	}
}
