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
	"context"
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/ethcore-go/evmcore/common"
	"github.com/ethcore-go/evmcore/core/state"
	"github.com/ethcore-go/evmcore/core/types"
	"github.com/ethcore-go/evmcore/crypto"
	"github.com/ethcore-go/evmcore/trie"
)

var (
	sender      = common.HexToAddress("0x1000000000000000000000000000000000000000")
	contractAt  = common.HexToAddress("0x00000000000000000000000000000000000BD771")
	coinbase    = common.HexToAddress("0x9000000000000000000000000000000000000000")
	beneficiary = common.HexToAddress("0x2000000000000000000000000000000000000000")
)

func newTestEVM(t *testing.T, interp Interpreter) (*EVM, *state.StateDB) {
	t.Helper()
	sdb, err := state.New(common.Hash{}, trie.NewDatabase())
	require.NoError(t, err)

	blockCtx := BlockContext{
		Coinbase: coinbase,
		Number:   1,
		GasLimit: 10_000_000,
		GetHash:  func(uint64) common.Hash { return common.Hash{} },
	}
	txCtx := TxContext{Origin: sender, GasPrice: new(uint256.Int)}
	evm := NewEVM(sdb, blockCtx, txCtx, Config{BlockGasLimit: 10_000_000}, interp)
	return evm, sdb
}

// pad32 encodes v as a 32-byte big-endian word, the ABI convention this
// module's stub programs use for a uint256 argument or return value.
func pad32(v uint32) []byte {
	out := make([]byte, 32)
	binary.BigEndian.PutUint32(out[28:], v)
	return out
}

// E1: SimpleStorage set/get round-trips through the stub interpreter.
func TestE1SimpleStorageSetGet(t *testing.T) {
	stub := NewStubInterpreter()
	evm, sdb := newTestEVM(t, stub)
	stub.Programs[contractAt] = NewSimpleStorageProgram()

	require.NoError(t, sdb.CreateAccount(contractAt, uint256.NewInt(10), 1, []byte{0x00}))
	require.NoError(t, sdb.CreateAccount(sender, uint256.NewInt(1_000_000_000_000_000), 1, nil))

	set := append([]byte{0x60, 0xfe, 0x47, 0xb1}, pad32(42)...)
	tx1 := &types.Transaction{From: sender, To: &contractAt, Nonce: 1, GasLimit: 80000, GasPrice: new(big.Int), Input: set}
	out1, err := evm.Exec(context.Background(), tx1)
	require.NoError(t, err)
	require.True(t, out1.Success)

	v, err := sdb.GetState(contractAt, common.Hash{})
	require.NoError(t, err)
	require.True(t, v.Eq(uint256.NewInt(42)))

	get := []byte{0x6d, 0x4c, 0xe6, 0x3c}
	tx2 := &types.Transaction{From: sender, To: &contractAt, Nonce: 2, GasLimit: 80000, GasPrice: new(big.Int), Input: get}
	out2, err := evm.Exec(context.Background(), tx2)
	require.NoError(t, err)
	require.True(t, out2.Success)
	require.Equal(t, pad32(42), out2.ReturnData)
}

// E2: a plain value transfer debits gas*price+value from the sender,
// credits the recipient, pays the coinbase its tip, and increments nonce.
func TestE2Transfer(t *testing.T) {
	evm, sdb := newTestEVM(t, NewStubInterpreter())
	evm.TxCtx.GasPrice = uint256.NewInt(1)
	recipient := common.HexToAddress("0x3000000000000000000000000000000000000000")

	require.NoError(t, sdb.CreateAccount(sender, uint256.NewInt(100000), 1, nil))

	tx := &types.Transaction{From: sender, To: &recipient, Value: big.NewInt(30), Nonce: 1, GasLimit: 21000, GasPrice: big.NewInt(1)}
	out, err := evm.Exec(context.Background(), tx)
	require.NoError(t, err)
	require.True(t, out.Success)
	require.Equal(t, uint64(21000), out.GasUsed)

	senderBal, err := sdb.GetBalance(sender)
	require.NoError(t, err)
	require.True(t, senderBal.Eq(uint256.NewInt(100000-21000-30)))

	recipientBal, err := sdb.GetBalance(recipient)
	require.NoError(t, err)
	require.True(t, recipientBal.Eq(uint256.NewInt(30)))

	nonce, err := sdb.GetNonce(sender)
	require.NoError(t, err)
	require.Equal(t, uint64(2), nonce)

	coinbaseBal, err := sdb.GetBalance(coinbase)
	require.NoError(t, err)
	require.True(t, coinbaseBal.Eq(uint256.NewInt(21000)))
}

// E3: a self-reentrant write that reverts must not clobber the parent
// frame's write to the same storage slot.
func TestE3RevertPreservesParentWrites(t *testing.T) {
	stub := NewStubInterpreter()
	evm, sdb := newTestEVM(t, stub)
	stub.Programs[contractAt] = NewReentrantProgram()

	require.NoError(t, sdb.CreateAccount(contractAt, new(uint256.Int), 1, []byte{0x00}))
	require.NoError(t, sdb.CreateAccount(sender, uint256.NewInt(1_000_000_000_000_000), 1, nil))

	tx := &types.Transaction{From: sender, To: &contractAt, Nonce: 1, GasLimit: 300000, GasPrice: new(big.Int), Input: reentrantEntrySelector[:]}
	out, err := evm.Exec(context.Background(), tx)
	require.NoError(t, err)
	require.True(t, out.Success)

	v, err := sdb.GetState(contractAt, slotOne)
	require.NoError(t, err)
	require.True(t, v.Eq(uint256.NewInt(7)))
}

// E4: SELFDESTRUCT to a fresh beneficiary accrues the Istanbul refund,
// capped at gas_used/2.
func TestE4SelfDestructRefund(t *testing.T) {
	stub := NewStubInterpreter()
	evm, sdb := newTestEVM(t, stub)
	stub.Programs[contractAt] = NewSelfDestructProgram()

	require.NoError(t, sdb.CreateAccount(contractAt, uint256.NewInt(77), 1, []byte{0x00}))
	require.NoError(t, sdb.CreateAccount(sender, uint256.NewInt(1_000_000_000_000_000), 1, nil))

	input := append([]byte{0x00, 0x00, 0x00, 0x03}, common.BytesToHash(beneficiary.Bytes()).Bytes()...)
	tx := &types.Transaction{From: sender, To: &contractAt, Nonce: 1, GasLimit: 100000, GasPrice: new(big.Int), Input: input}
	out, err := evm.Exec(context.Background(), tx)
	require.NoError(t, err)
	require.True(t, out.Success)

	exists, err := sdb.Exist(contractAt)
	require.NoError(t, err)
	require.False(t, exists)

	bal, err := sdb.GetBalance(beneficiary)
	require.NoError(t, err)
	require.True(t, bal.Eq(uint256.NewInt(77)))

	require.LessOrEqual(t, out.GasUsed, tx.GasLimit, "refund cap must never make gas used exceed the limit")
}

// E5: CREATE at an address whose account already has nonce 1 fails with a
// collision and does not disturb the outer frame.
func TestE5CreateCollision(t *testing.T) {
	evm, sdb := newTestEVM(t, NewStubInterpreter())
	require.NoError(t, sdb.CreateAccount(sender, uint256.NewInt(1_000_000), 0, nil))

	addr := crypto.CreateAddress(sender, 0)
	require.NoError(t, sdb.SetNonce(addr, 1))

	_, _, _, err := evm.Create(sender, []byte{0x00}, new(uint256.Int), 100000)
	require.ErrorIs(t, err, ErrContractAddressCollision)

	nonce, err := sdb.GetNonce(sender)
	require.NoError(t, err)
	require.Equal(t, uint64(0), nonce, "a failed CREATE leaves the caller's own state untouched")
}

// Invariant 8: a state-mutating opcode inside a STATICCALL frame fails the
// frame and leaves state unchanged relative to the frame entry.
func TestStaticCallForbidsMutation(t *testing.T) {
	stub := NewStubInterpreter()
	evm, sdb := newTestEVM(t, stub)
	stub.Programs[contractAt] = NewSimpleStorageProgram()

	require.NoError(t, sdb.CreateAccount(contractAt, new(uint256.Int), 1, []byte{0x00}))
	require.NoError(t, sdb.SetState(contractAt, common.Hash{}, *uint256.NewInt(5)))

	set := append([]byte{0x60, 0xfe, 0x47, 0xb1}, pad32(42)...)
	_, _, err := evm.StaticCall(sender, contractAt, set, 100000)
	require.ErrorIs(t, err, ErrWriteProtection)

	v, err := sdb.GetState(contractAt, common.Hash{})
	require.NoError(t, err)
	require.True(t, v.Eq(uint256.NewInt(5)), "a failed static frame must leave storage untouched")
}

// Invariant 7: the settled refund never exceeds gas_used/2, so gas used can
// never drop below half of what execution actually consumed.
func TestRefundCap(t *testing.T) {
	stub := NewStubInterpreter()
	evm, sdb := newTestEVM(t, stub)
	stub.Programs[contractAt] = NewSelfDestructProgram()

	require.NoError(t, sdb.CreateAccount(contractAt, new(uint256.Int), 1, []byte{0x00}))
	require.NoError(t, sdb.CreateAccount(sender, uint256.NewInt(1_000_000_000), 1, nil))

	input := append([]byte{0x00, 0x00, 0x00, 0x03}, common.BytesToHash(beneficiary.Bytes()).Bytes()...)
	tx := &types.Transaction{From: sender, To: &contractAt, Nonce: 1, GasLimit: 100000, GasPrice: new(big.Int), Input: input}
	out, err := evm.Exec(context.Background(), tx)
	require.NoError(t, err)
	require.True(t, out.Success)

	// SELFDESTRUCT accrued 24000 refund, far more than half of what the
	// transaction consumed: the cap must have halved gas used, no more.
	consumed := GasTransaction + 200 // flat fee + the stub's fixed dispatch cost
	for _, b := range input {
		if b == 0 {
			consumed += GasTxDataZero
		} else {
			consumed += GasTxDataNonZero
		}
	}
	require.Equal(t, consumed-consumed/2, out.GasUsed)
}

// A call depth beyond 1024 fails without touching state.
func TestCallDepthLimit(t *testing.T) {
	evm, sdb := newTestEVM(t, NewStubInterpreter())
	require.NoError(t, sdb.CreateAccount(sender, uint256.NewInt(100), 0, nil))

	evm.depth = MaxCallDepth
	recipient := common.HexToAddress("0x4000000000000000000000000000000000000000")
	_, gasLeft, err := evm.Call(CallCall, sender, recipient, uint256.NewInt(1), nil, 5000, false)
	require.ErrorIs(t, err, ErrDepth)
	require.Equal(t, uint64(5000), gasLeft, "a depth failure returns the caller's gas untouched")

	bal, err := sdb.GetBalance(recipient)
	require.NoError(t, err)
	require.True(t, bal.IsZero())
}

// Pre-execution failures surface to the caller with the world state
// untouched.
func TestPreExecutionValidation(t *testing.T) {
	recipient := common.HexToAddress("0x4000000000000000000000000000000000000000")

	t.Run("nonce mismatch", func(t *testing.T) {
		evm, sdb := newTestEVM(t, NewStubInterpreter())
		require.NoError(t, sdb.CreateAccount(sender, uint256.NewInt(1_000_000), 5, nil))
		tx := &types.Transaction{From: sender, To: &recipient, Nonce: 4, GasLimit: 21000, GasPrice: new(big.Int)}
		_, err := evm.Exec(context.Background(), tx)
		require.ErrorIs(t, err, ErrNonceMismatch)
	})

	t.Run("block gas limit", func(t *testing.T) {
		evm, sdb := newTestEVM(t, NewStubInterpreter())
		require.NoError(t, sdb.CreateAccount(sender, uint256.NewInt(1_000_000), 0, nil))
		tx := &types.Transaction{From: sender, To: &recipient, Nonce: 0, GasLimit: 20_000_000, GasPrice: new(big.Int)}
		_, err := evm.Exec(context.Background(), tx)
		require.ErrorIs(t, err, ErrBlockGasLimitReached)
	})

	t.Run("intrinsic gas", func(t *testing.T) {
		evm, sdb := newTestEVM(t, NewStubInterpreter())
		require.NoError(t, sdb.CreateAccount(sender, uint256.NewInt(1_000_000), 0, nil))
		tx := &types.Transaction{From: sender, To: &recipient, Nonce: 0, GasLimit: 20000, GasPrice: new(big.Int)}
		_, err := evm.Exec(context.Background(), tx)
		require.ErrorIs(t, err, ErrNotEnoughBaseGas)
	})

	t.Run("insufficient balance for fee", func(t *testing.T) {
		evm, sdb := newTestEVM(t, NewStubInterpreter())
		evm.TxCtx.GasPrice = uint256.NewInt(1)
		require.NoError(t, sdb.CreateAccount(sender, uint256.NewInt(100), 0, nil))
		tx := &types.Transaction{From: sender, To: &recipient, Nonce: 0, GasLimit: 21000, GasPrice: big.NewInt(1)}
		_, err := evm.Exec(context.Background(), tx)
		require.ErrorIs(t, err, ErrInsufficientBalanceForFee)
	})
}

// BLOCKHASH queries outside the 256-block lookback window return zero.
func TestBlockHashWindow(t *testing.T) {
	marker := common.HexToHash("0xdeadbeef")
	bc := BlockContext{
		Number:  1000,
		GetHash: func(uint64) common.Hash { return marker },
	}
	require.Equal(t, marker, bc.BlockHash(999))
	require.Equal(t, marker, bc.BlockHash(744))
	require.Equal(t, common.Hash{}, bc.BlockHash(743), "beyond the 256-block window")
	require.Equal(t, common.Hash{}, bc.BlockHash(1000), "the current block has no hash yet")
	require.Equal(t, common.Hash{}, bc.BlockHash(1001))
}

// E6: the ECRECOVER precompile recovers the signer's address from a
// self-generated signature, left-padded to 32 bytes.
func TestE6ECRecoverPrecompile(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	hash := crypto.Keccak256([]byte("ecrecover precompile scenario"))
	compact, err := ecdsa.SignCompact(priv, hash, false)
	require.NoError(t, err)
	require.Len(t, compact, 65)

	input := make([]byte, 128)
	copy(input[0:32], hash)
	input[63] = compact[0] // v, already offset +27 by SignCompact
	copy(input[64:96], compact[1:33])
	copy(input[96:128], compact[33:65])

	out, err := (ecrecoverContract{}).Run(input)
	require.NoError(t, err)

	wantAddr := crypto.PubkeyToAddress(priv.PubKey().SerializeUncompressed())
	gotAddr := common.BytesToAddress(out[12:])
	require.Equal(t, wantAddr, gotAddr)
}
