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

// Package vm holds the Execution Driver and the Interpreter bridge: the
// narrow view of the World State an opcode interpreter needs, plus the
// top-level exec entry point that applies intrinsic gas, dispatches
// call/create, manages nested frames and refunds, and drives the
// precompiled contracts.
package vm

import (
	"github.com/holiman/uint256"

	"github.com/ethcore-go/evmcore/common"
	"github.com/ethcore-go/evmcore/core/types"
)

// StateDBer is the bridge interface: everything the opcode interpreter
// may ask of the World State. It deliberately does not expose
// Checkpoint/DiscardCheckpoint/RevertCheckpoint/Commit; those are the
// Driver's exclusive responsibility. Access-list methods belong to a
// later fork than the Istanbul pin and are likewise absent.
type StateDBer interface {
	Exist(addr common.Address) (bool, error)
	Empty(addr common.Address) (bool, error)
	ExistAndNotEmpty(addr common.Address) (bool, error)

	GetBalance(addr common.Address) (*uint256.Int, error)
	GetNonce(addr common.Address) (uint64, error)
	SetNonce(addr common.Address, nonce uint64) error
	IncrNonce(addr common.Address) error

	GetCodeHash(addr common.Address) (common.Hash, error)
	GetCode(addr common.Address) ([]byte, error)
	GetCodeSize(addr common.Address) (int, error)
	SetCode(addr common.Address, code []byte) error

	AddBalance(addr common.Address, amount *uint256.Int) error
	SubBalance(addr common.Address, amount *uint256.Int) error
	Transfer(from, to common.Address, v *uint256.Int) error
	Touch(addr common.Address) error

	GetState(addr common.Address, key common.Hash) (uint256.Int, error)
	GetCommittedState(addr common.Address, key common.Hash) (uint256.Int, error)
	SetState(addr common.Address, key common.Hash, value uint256.Int) error

	AddRefund(v uint64)
	SubRefund(v uint64)
	GetRefund() uint64

	AddLog(addr common.Address, topics []common.Hash, data []byte)
	Logs() []*types.Log

	SelfDestruct(addr, beneficiary common.Address) error
	HasSelfDestructed(addr common.Address) bool

	CreateAccount(addr common.Address, balance *uint256.Int, nonce uint64, code []byte) error
}

// Interpreter is the opcode interpreter's up-call contract: given a
// frame's code, input, gas and static-ness, it runs to completion and
// reports the outcome. The real bytecode decoder/dispatcher is an
// external collaborator; this module only needs to be able to invoke one
// and react to its result, plus a deterministic stand-in
// (interpreter_stub.go) that drives the bridge the same way a real one
// would for this module's own tests.
type Interpreter interface {
	Run(frame *Frame, code, input []byte) ([]byte, uint64, error)
}

// Frame is the context one interpreter invocation executes in: the call
// that opened it, the bridge it may mutate state through, and whether it
// is static.
type Frame struct {
	EVM      *EVM
	Caller   common.Address
	Address  common.Address // the code's own address (CREATE: the new contract)
	Value    *uint256.Int
	Depth    int
	IsStatic bool
}

// StateDB returns the bridge the interpreter should use for this frame.
func (f *Frame) StateDB() StateDBer { return f.EVM.StateDB }

// RequireMutable is the check an interpreter performs before executing any
// state-modifying opcode (SSTORE, LOG*, SELFDESTRUCT, CREATE*, value-bearing
// CALL): in a static frame it returns ErrWriteProtection, which is
// frame-local and reverts the frame's checkpoint.
func (f *Frame) RequireMutable() error {
	if f.IsStatic {
		return ErrWriteProtection
	}
	return nil
}
