// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

import (
	"errors"
	"fmt"
)

// Sentinel errors of the store. Errors carrying per-cell context wrap one
// of these, so errors.Is works across the taxonomy.
var (
	// ErrBadUpdate: a bound update violated monotonicity. Fatal in debug
	// mode; silently clamped otherwise.
	ErrBadUpdate = errors.New("bad update")

	// ErrAlreadyFinal: an attempt to mutate a final cell.
	ErrAlreadyFinal = errors.New("already final")

	// ErrDuplicateLazy: a second lazy analysis registered for the same
	// kind within one phase.
	ErrDuplicateLazy = errors.New("duplicate lazy analysis")

	// ErrDuplicateKind: NewKind with a name that is already registered.
	ErrDuplicateKind = errors.New("duplicate kind")

	// ErrInvalidKindSpec: NewKind with a spec missing required pieces.
	ErrInvalidKindSpec = errors.New("invalid kind spec")

	// ErrShutdown: an operation on a store after Shutdown.
	ErrShutdown = errors.New("store is shut down")
)

// BadUpdateError reports a monotonicity violation on (E, K): the update
// would move a bound against its permitted direction.
type BadUpdateError struct {
	E    Entity
	K    Kind
	Prev EP
	Next EP
}

func (e *BadUpdateError) Error() string {
	return fmt.Sprintf("%v update on (%v, %s): %v -> %v is not a refinement",
		ErrBadUpdate, e.E, e.K, e.Prev, e.Next)
}

func (e *BadUpdateError) Unwrap() error { return ErrBadUpdate }

// AlreadyFinalError reports an attempted mutation of a final cell.
type AlreadyFinalError struct {
	E       Entity
	K       Kind
	Current FinalEP
}

func (e *AlreadyFinalError) Error() string {
	return fmt.Sprintf("%v: (%v, %s) is %v", ErrAlreadyFinal, e.E, e.K, e.Current)
}

func (e *AlreadyFinalError) Unwrap() error { return ErrAlreadyFinal }

// AnalysisError wraps a panic escaping a user analysis or continuation,
// with the entity, kind, and cell state at the time of the failure. The
// offending depender loses its edges; the cell's intermediate state is
// left intact.
type AnalysisError struct {
	E         Entity
	K         Kind
	Current   EP
	Recovered any
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis panicked on (%v, %s) at %v: %v", e.E, e.K, e.Current, e.Recovered)
}
