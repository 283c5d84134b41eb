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

import "errors"

// Frame-local exceptions: caught at the Driver's call/create boundary,
// they revert only the failing frame's checkpoint and are converted into
// a status code for the parent frame, never surfaced as an ExecError.
var (
	ErrOutOfGas                 = errors.New("vm: out of gas")
	ErrStackUnderflow           = errors.New("vm: stack underflow")
	ErrStackOverflow            = errors.New("vm: stack overflow")
	ErrInvalidOpcode            = errors.New("vm: invalid opcode")
	ErrInvalidJump              = errors.New("vm: invalid jump destination")
	ErrWriteProtection          = errors.New("vm: mutable call in static context")
	ErrDepth                    = errors.New("vm: call depth exceeded")
	ErrContractAddressCollision = errors.New("vm: contract address collision")
	ErrCodeStoreOutOfGas        = errors.New("vm: code deposit failure")
	ErrReturnDataOutOfBounds    = errors.New("vm: out-of-bounds read")
	ErrMaxCodeSizeExceeded      = errors.New("vm: max code size exceeded")
	ErrInsufficientBalance      = errors.New("vm: insufficient balance for transfer")
	ErrExecutionReverted        = errors.New("vm: execution reverted") // explicit REVERT opcode
)

// isFrameLocal reports whether err is one of the frame-local exceptions
// that the Driver converts into a status code rather than surfacing as an
// ExecError::Internal.
func isFrameLocal(err error) bool {
	switch {
	case errors.Is(err, ErrOutOfGas), errors.Is(err, ErrStackUnderflow), errors.Is(err, ErrStackOverflow),
		errors.Is(err, ErrInvalidOpcode), errors.Is(err, ErrInvalidJump), errors.Is(err, ErrWriteProtection),
		errors.Is(err, ErrDepth), errors.Is(err, ErrContractAddressCollision), errors.Is(err, ErrCodeStoreOutOfGas),
		errors.Is(err, ErrReturnDataOutOfBounds), errors.Is(err, ErrMaxCodeSizeExceeded),
		errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrExecutionReverted):
		return true
	default:
		return false
	}
}
