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

	"github.com/holiman/uint256"

	"github.com/ethcore-go/evmcore/common"
	"github.com/ethcore-go/evmcore/crypto"
)

// Call dispatches a CALL/CALLCODE/DELEGATECALL/STATICCALL-flavored frame.
// Each frame opens its own
// checkpoint; the rules for state reversion are identical to the top-level
// frame in Exec. Returns the frame's return data, the gas left after it
// ran, and an error that is either nil (success), ErrExecutionReverted
// (explicit REVERT, return data preserved, gas left refunded), a
// frame-local exception (all gas consumed, except that the pre-execution
// depth, balance and static-value checks return gas untouched), or an
// infrastructure error that must propagate all the way up to Exec.
func (evm *EVM) Call(kind CallKind, caller, addr common.Address, value *uint256.Int, input []byte, gas uint64, isStatic bool) ([]byte, uint64, error) {
	if value == nil {
		value = new(uint256.Int)
	}
	if isStatic && kind != CallStaticCall && !value.IsZero() {
		return nil, gas, ErrWriteProtection
	}

	evm.cp().Checkpoint()
	defer func() { evm.depth-- }()
	evm.depth++
	if evm.depth > MaxCallDepth {
		evm.cp().RevertCheckpoint()
		return nil, gas, ErrDepth
	}

	// Value transfer: CALL always moves value from caller to the callee's
	// own address; CALLCODE/DELEGATECALL/STATICCALL never move value (the
	// value argument for CALLCODE is still charged to the caller's balance
	// under Yellow Paper semantics, but the balance effect is identical to
	// a CALL against the caller itself, modeled here as a self-transfer
	// check).
	if kind == CallCall || kind == CallCallCode {
		if !value.IsZero() {
			from := caller
			to := addr
			if kind == CallCallCode {
				to = caller
			}
			if err := evm.StateDB.Transfer(from, to, value); err != nil {
				// Insufficient balance fails the frame without consuming
				// the caller's gas; the parent observes a failed call.
				evm.cp().RevertCheckpoint()
				return nil, gas, ErrInsufficientBalance
			}
		} else if kind == CallCall {
			// A zero-value CALL still "touches" the recipient for EIP-161:
			// an existing empty account becomes GC-eligible at commit, a
			// nonexistent one is left alone (invariant 6).
			if err := evm.StateDB.Touch(addr); err != nil {
				return nil, gas, internal(err)
			}
		}
	}

	// CALLCODE and DELEGATECALL execute addr's code with the caller as the
	// frame's Address, so storage reads and writes land on the caller;
	// every other kind runs in addr's own context.
	codeAddr := addr
	frameAddr := addr
	if kind == CallCallCode || kind == CallDelegateCall {
		frameAddr = caller
	}

	if pc, ok := precompiles[codeAddr]; ok {
		out, gasLeft, err := runPrecompile(pc, input, gas)
		return evm.finishFrame(out, gasLeft, err)
	}

	code, err := evm.StateDB.GetCode(codeAddr)
	if err != nil {
		return nil, gas, internal(err)
	}
	if len(code) == 0 {
		// No code: the call succeeds with empty return, only the value
		// transfer (already applied above) is effective.
		if err := evm.cp().DiscardCheckpoint(); err != nil {
			return nil, gas, internal(err)
		}
		return nil, gas, nil
	}

	frame := &Frame{EVM: evm, Caller: caller, Address: frameAddr, Value: value, Depth: evm.depth, IsStatic: isStatic || kind == CallStaticCall}
	ret, gasUsed, runErr := evm.Interpreter.Run(frame, code, input)
	gasLeft := uint64(0)
	if gasUsed < gas {
		gasLeft = gas - gasUsed
	}
	return evm.finishFrame(ret, gasLeft, runErr)
}

// finishFrame applies the universal commit/revert decision for a just-run
// frame (identical logic to Exec's top-level handling), and returns the
// (return data, gas left, error) triple the caller of Call/Create expects.
func (evm *EVM) finishFrame(ret []byte, gasLeft uint64, runErr error) ([]byte, uint64, error) {
	switch {
	case runErr == nil:
		if err := evm.cp().DiscardCheckpoint(); err != nil {
			return nil, 0, internal(err)
		}
		return ret, gasLeft, nil
	case errors.Is(runErr, ErrExecutionReverted):
		if err := evm.cp().RevertCheckpoint(); err != nil {
			return nil, 0, internal(err)
		}
		return ret, gasLeft, runErr
	case isFrameLocal(runErr):
		if err := evm.cp().RevertCheckpoint(); err != nil {
			return nil, 0, internal(err)
		}
		return nil, 0, runErr
	default:
		return nil, 0, runErr
	}
}

// CallCode invokes addr's code in the caller's own storage context.
func (evm *EVM) CallCode(caller, addr common.Address, value *uint256.Int, input []byte, gas uint64) ([]byte, uint64, error) {
	return evm.Call(CallCallCode, caller, addr, value, input, gas, false)
}

// DelegateCall invokes addr's code in the caller's storage context, with
// no value transfer of its own; the frame's Caller is the caller argument
// and its Value is zero.
func (evm *EVM) DelegateCall(caller, addr common.Address, input []byte, gas uint64) ([]byte, uint64, error) {
	return evm.Call(CallDelegateCall, caller, addr, new(uint256.Int), input, gas, false)
}

// StaticCall invokes addr's code with the static (no-state-mutation) flag
// set for the entire subtree.
func (evm *EVM) StaticCall(caller, addr common.Address, input []byte, gas uint64) ([]byte, uint64, error) {
	return evm.Call(CallStaticCall, caller, addr, new(uint256.Int), input, gas, true)
}

// Create dispatches CREATE: derives the new address
// from sender+nonce, fails on collision, runs the init code through the
// interpreter, charges the code-deposit gas, and installs the returned
// bytes as the new contract's code.
func (evm *EVM) Create(caller common.Address, initCode []byte, value *uint256.Int, gas uint64) (common.Address, []byte, uint64, error) {
	nonce, err := evm.StateDB.GetNonce(caller)
	if err != nil {
		return common.Address{}, nil, gas, internal(err)
	}
	addr := crypto.CreateAddress(caller, nonce)
	return evm.create(caller, addr, initCode, value, gas)
}

// Create2 dispatches CREATE2 (EIP-1014): the new address is derived from a
// caller-supplied salt and the init code's hash rather than the sender's
// nonce.
func (evm *EVM) Create2(caller common.Address, initCode []byte, salt common.Hash, value *uint256.Int, gas uint64) (common.Address, []byte, uint64, error) {
	addr := crypto.CreateAddress2(caller, salt, crypto.Keccak256(initCode))
	return evm.create(caller, addr, initCode, value, gas)
}

func (evm *EVM) create(caller, addr common.Address, initCode []byte, value *uint256.Int, gas uint64) (common.Address, []byte, uint64, error) {
	if value == nil {
		value = new(uint256.Int)
	}

	evm.cp().Checkpoint()
	defer func() { evm.depth-- }()
	evm.depth++
	if evm.depth > MaxCallDepth {
		evm.cp().RevertCheckpoint()
		return addr, nil, gas, ErrDepth
	}

	// Collision check: CREATE fails if the target address already has a
	// nonzero nonce or nonempty code.
	existingNonce, err := evm.StateDB.GetNonce(addr)
	if err != nil {
		return addr, nil, gas, internal(err)
	}
	existingCodeHash, err := evm.StateDB.GetCodeHash(addr)
	if err != nil {
		return addr, nil, gas, internal(err)
	}
	if existingNonce != 0 || (existingCodeHash != common.Hash{} && existingCodeHash != crypto.EmptyCodeHash) {
		evm.cp().RevertCheckpoint()
		return addr, nil, gas, ErrContractAddressCollision
	}

	if err := evm.StateDB.CreateAccount(addr, new(uint256.Int), 1, nil); err != nil {
		return addr, nil, gas, internal(err)
	}
	if !value.IsZero() {
		if err := evm.StateDB.Transfer(caller, addr, value); err != nil {
			evm.cp().RevertCheckpoint()
			return addr, nil, gas, ErrInsufficientBalance
		}
	}

	frame := &Frame{EVM: evm, Caller: caller, Address: addr, Value: value, Depth: evm.depth}
	deployed, gasUsed, runErr := evm.Interpreter.Run(frame, initCode, nil)
	gasLeft := uint64(0)
	if gasUsed < gas {
		gasLeft = gas - gasUsed
	}
	if runErr != nil {
		ret, gl, err := evm.finishFrame(deployed, gasLeft, runErr)
		return addr, ret, gl, err
	}

	if len(deployed) > MaxCodeSize {
		ret, gl, err := evm.finishFrame(nil, 0, ErrMaxCodeSizeExceeded)
		return addr, ret, gl, err
	}
	depositCost := GasCodeDeposit * uint64(len(deployed))
	if gasLeft < depositCost {
		ret, gl, err := evm.finishFrame(nil, 0, ErrCodeStoreOutOfGas)
		return addr, ret, gl, err
	}
	gasLeft -= depositCost
	if err := evm.StateDB.SetCode(addr, deployed); err != nil {
		return addr, nil, gasLeft, internal(err)
	}
	if err := evm.cp().DiscardCheckpoint(); err != nil {
		return addr, nil, gasLeft, internal(err)
	}
	return addr, nil, gasLeft, nil
}
