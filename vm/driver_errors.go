// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>

package vm

import (
	"errors"
	"fmt"
)

// Pre-execution errors: surfaced to the caller before any
// state is touched. These are never wrapped in ExecError; Exec returns
// them directly so the caller can distinguish "never ran" from "ran and
// failed".
var (
	ErrNonceMismatch            = errors.New("vm: nonce mismatch")
	ErrInsufficientBalanceForFee = errors.New("vm: insufficient balance to pay gas*price+value")
	ErrBlockGasLimitReached     = errors.New("vm: gas limit exceeds block gas limit")
	ErrNotEnoughBaseGas         = errors.New("vm: intrinsic gas exceeds gas limit")
)

// ExecError wraps an infrastructure failure (a trie read/write error, a
// code blob missing for a known hash) that aborts the transaction
// unconditionally, independent of gas.
type ExecError struct {
	Err error
}

func (e *ExecError) Error() string { return fmt.Sprintf("vm: internal error: %v", e.Err) }

func (e *ExecError) Unwrap() error { return e.Err }

// internal wraps err as an ExecError, for any failure returned by the
// World State bridge that isn't one of the frame-local exceptions above
// (a trie read/write failure, a missing code blob, and so on).
func internal(err error) error {
	if err == nil {
		return nil
	}
	return &ExecError{Err: err}
}
