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
	"github.com/holiman/uint256"

	"github.com/ethcore-go/evmcore/common"
)

// StubInterpreter is a deterministic, hand-driven test double for the
// out-of-scope opcode interpreter: rather than decoding
// bytecode, it dispatches on the first four bytes of input (a function
// selector, as a real compiled contract's dispatcher would) and reproduces
// the documented program's observable SSTORE/SLOAD/REVERT/CALL effects by
// calling straight through the bridge. It exists only so this module's own
// tests can exercise the full Driver/Bridge/World-State/Checkpoint stack
// without a general bytecode decoder, which is explicitly out of scope.
type StubInterpreter struct {
	// Programs maps a contract address to the selector table it runs.
	// NewStubInterpreter leaves it empty; callers register programs per
	// address, such as those built by NewSimpleStorageProgram,
	// NewReentrantProgram and NewSelfDestructProgram below.
	Programs map[common.Address]map[[4]byte]StubFunc
}

// StubFunc is one selector's body: given the frame and calldata tail (input
// past the 4-byte selector), it returns return data or a frame-local error
// (typically ErrExecutionReverted).
type StubFunc func(frame *Frame, args []byte) ([]byte, error)

// NewStubInterpreter returns an interpreter with no programs registered.
func NewStubInterpreter() *StubInterpreter {
	return &StubInterpreter{Programs: make(map[common.Address]map[[4]byte]StubFunc)}
}

// Run implements Interpreter. It spends a flat 200 gas per dispatched call
// (enough to be observable in gas accounting without modeling real opcode
// costs, which is out of scope) and looks up the program registered for
// frame.Address.
func (si *StubInterpreter) Run(frame *Frame, code, input []byte) ([]byte, uint64, error) {
	const flatCost = 200

	table, ok := si.Programs[frame.Address]
	if !ok || len(input) < 4 {
		return nil, 0, ErrInvalidOpcode
	}
	var sel [4]byte
	copy(sel[:], input[:4])
	fn, ok := table[sel]
	if !ok {
		return nil, 0, ErrInvalidOpcode
	}
	out, err := fn(frame, input[4:])
	return out, flatCost, err
}

// SimpleStorageSet is selector 0x60fe47b1 (set(uint256)): SSTORE's its
// 32-byte argument into storage slot 0.
func SimpleStorageSet(frame *Frame, args []byte) ([]byte, error) {
	if err := frame.RequireMutable(); err != nil {
		return nil, err
	}
	var v uint256.Int
	v.SetBytes(args)
	return nil, frame.StateDB().SetState(frame.Address, common.Hash{}, v)
}

// SimpleStorageGet is selector 0x6d4ce63c (get()): SLOAD's slot 0 and
// returns it as a 32-byte big-endian word.
func SimpleStorageGet(frame *Frame, _ []byte) ([]byte, error) {
	v, err := frame.StateDB().GetState(frame.Address, common.Hash{})
	if err != nil {
		return nil, err
	}
	word := v.Bytes32()
	return word[:], nil
}

// slotOne is the storage slot E3's reentrant program writes to.
var slotOne = common.BytesToHash([]byte{1})

// reentrantEntrySelector and reentrantNestedSelector are arbitrary 4-byte
// dispatch tags for E3's fixed two-function program; they stand in for a
// real Keccak-derived selector, which is irrelevant since no bytecode
// decoder ever computes one here.
var (
	reentrantEntrySelector  = [4]byte{0x00, 0x00, 0x00, 0x01}
	reentrantNestedSelector = [4]byte{0x00, 0x00, 0x00, 0x02}
)

// ReentrantWrite is E3's entry function: writes 7 to slot 1, calls itself
// with the nested selector, ignores that nested call's failure (it is
// expected to revert), and returns.
func ReentrantWrite(frame *Frame, _ []byte) ([]byte, error) {
	if err := frame.RequireMutable(); err != nil {
		return nil, err
	}
	if err := frame.StateDB().SetState(frame.Address, slotOne, *uint256.NewInt(7)); err != nil {
		return nil, err
	}
	_, _, _ = frame.EVM.Call(CallCall, frame.Address, frame.Address, new(uint256.Int), reentrantNestedSelector[:], 100000, false)
	return nil, nil
}

// ReentrantRevertingWrite is E3's nested function: overwrites slot 1 with 9,
// then always reverts, so the overwrite must not survive.
func ReentrantRevertingWrite(frame *Frame, _ []byte) ([]byte, error) {
	if err := frame.StateDB().SetState(frame.Address, slotOne, *uint256.NewInt(9)); err != nil {
		return nil, err
	}
	return nil, ErrExecutionReverted
}

// NewSimpleStorageProgram returns the selector table for E1's SimpleStorage
// scenario: set(uint256) at 0x60fe47b1, get() at 0x6d4ce63c.
func NewSimpleStorageProgram() map[[4]byte]StubFunc {
	return map[[4]byte]StubFunc{
		{0x60, 0xfe, 0x47, 0xb1}: SimpleStorageSet,
		{0x6d, 0x4c, 0xe6, 0x3c}: SimpleStorageGet,
	}
}

// NewReentrantProgram returns the selector table for E3's revert-preserves-
// parent-writes scenario.
func NewReentrantProgram() map[[4]byte]StubFunc {
	return map[[4]byte]StubFunc{
		reentrantEntrySelector:  ReentrantWrite,
		reentrantNestedSelector: ReentrantRevertingWrite,
	}
}

// selfDestructSelector dispatches SelfDestructTo in a program registered via
// NewSelfDestructProgram.
var selfDestructSelector = [4]byte{0x00, 0x00, 0x00, 0x03}

// SelfDestructTo is E4's program body: self-destructs the frame's own
// address, sending its balance to the beneficiary packed in the last 20
// bytes of args, crediting the Istanbul SELFDESTRUCT refund exactly once
// per address (a real opcode handler checks HasSelfDestructed the same way
// before calling AddRefund, since re-destructing an already-tombstoned
// account must not accrue the refund twice).
func SelfDestructTo(frame *Frame, args []byte) ([]byte, error) {
	if err := frame.RequireMutable(); err != nil {
		return nil, err
	}
	var beneficiary common.Address
	if len(args) >= common.AddressLength {
		copy(beneficiary[:], args[len(args)-common.AddressLength:])
	}
	sdb := frame.StateDB()
	if !sdb.HasSelfDestructed(frame.Address) {
		sdb.AddRefund(SelfDestructRefund)
	}
	return nil, sdb.SelfDestruct(frame.Address, beneficiary)
}

// NewSelfDestructProgram returns the selector table for E4's self-destruct
// refund scenario.
func NewSelfDestructProgram() map[[4]byte]StubFunc {
	return map[[4]byte]StubFunc{selfDestructSelector: SelfDestructTo}
}
