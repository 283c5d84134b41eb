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
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/ethcore-go/evmcore/common"
	"github.com/ethcore-go/evmcore/core/types"
)

// Gas schedule constants. The calldata byte costs (4 zero, 68 non-zero)
// are the pre-Istanbul rates; the self-destruct refund is Istanbul's.
const (
	GasTransaction        uint64 = 21000
	GasTxCreate           uint64 = 32000
	GasTxDataZero         uint64 = 4
	GasTxDataNonZero      uint64 = 68
	GasCodeDeposit        uint64 = 200
	MaxCodeSize                  = 24576
	MaxCallDepth                 = 1024
	SelfDestructRefund    uint64 = 24000 // Istanbul; EIP-3529 (London) is out of scope
)

// CallKind distinguishes the flavor of a nested call/create the bridge's
// child frame entry point serves.
type CallKind int

const (
	CallCall CallKind = iota
	CallCallCode
	CallDelegateCall
	CallStaticCall
	CallCreate
	CallCreate2
)

// BlockContext is the block-scoped read-only input to execution.
type BlockContext struct {
	Coinbase   common.Address
	Timestamp  uint64
	Number     uint64
	Difficulty *uint256.Int
	GasLimit   uint64

	// GetHash resolves BLOCKHASH(n). Queries outside [Number-256, Number-1]
	// must return the zero hash; BlockHash below enforces the window
	// regardless of what the caller-supplied callback does.
	GetHash func(n uint64) common.Hash
}

// BlockHash returns the hash of block n, or the zero hash if n falls
// outside the 256-block lookback window BLOCKHASH is allowed to see.
func (bc BlockContext) BlockHash(n uint64) common.Hash {
	if bc.GetHash == nil || n >= bc.Number || n+256 < bc.Number {
		return common.Hash{}
	}
	return bc.GetHash(n)
}

// TxContext is the transaction-scoped read-only input (origin + gas price,
// used by ORIGIN/GASPRICE up-calls and by the Driver's fee accounting).
type TxContext struct {
	Origin   common.Address
	GasPrice *uint256.Int
}

// Config is the only execution-scope configuration this module
// recognizes: the block gas limit. NoBaseFee is reserved and not read; the
// fork is fixed by the gas constants above, not selected here.
type Config struct {
	BlockGasLimit uint64
	NoBaseFee     bool // reserved; no EIP-1559 base fee at this fork
}

// ExecOutcome is the Driver's result for one executed transaction.
type ExecOutcome struct {
	ReturnData           []byte
	GasUsed              uint64
	Logs                 []*types.Log
	Success              bool
	StateRootAfterCommit common.Hash
}

// EVM is the Execution Driver: it owns the call-depth
// counter, the block/tx context, and dispatches to the interpreter
// (out-of-scope, supplied by the caller) and the Precompiles.
type EVM struct {
	StateDB     StateDBer
	BlockCtx    BlockContext
	TxCtx       TxContext
	Config      Config
	Interpreter Interpreter

	depth int
}

// NewEVM constructs a Driver bound to a World State, ready to Exec a
// transaction.
func NewEVM(stateDB StateDBer, blockCtx BlockContext, txCtx TxContext, cfg Config, interp Interpreter) *EVM {
	return &EVM{StateDB: stateDB, BlockCtx: blockCtx, TxCtx: txCtx, Config: cfg, Interpreter: interp}
}

// intrinsicGas computes the pre-execution gas charge for tx: the flat
// transaction fee, the contract-creation surcharge, and the per-byte
// calldata cost.
func intrinsicGas(tx *types.Transaction) uint64 {
	gas := GasTransaction
	if tx.IsCreate() {
		gas += GasTxCreate
	}
	for _, b := range tx.Input {
		if b == 0 {
			gas += GasTxDataZero
		} else {
			gas += GasTxDataNonZero
		}
	}
	return gas
}

// checkpointer is the subset of StateDBer-adjacent operations the bridge
// interface intentionally omits but the Driver alone is allowed to use.
type checkpointer interface {
	Checkpoint() int
	DiscardCheckpoint() error
	RevertCheckpoint() error
	Commit() (common.Hash, error)
	ClearSelfDestructs()
	SelfDestructed() []common.Address
}

func (evm *EVM) cp() checkpointer { return evm.StateDB.(checkpointer) }

// Exec is the Driver's entry point: it validates the
// transaction, prepays gas, dispatches call or create, then settles
// refunds, pays the coinbase, and commits the World State.
func (evm *EVM) Exec(ctx context.Context, tx *types.Transaction) (*ExecOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. Validate. Pre-execution, world state untouched on any failure.
	if tx.GasLimit > evm.Config.BlockGasLimit {
		return nil, ErrBlockGasLimitReached
	}
	nonce, err := evm.StateDB.GetNonce(tx.From)
	if err != nil {
		return nil, internal(err)
	}
	if nonce != tx.Nonce {
		return nil, fmt.Errorf("%w: want=%d have=%d", ErrNonceMismatch, tx.Nonce, nonce)
	}
	// The transaction is authoritative for the gas price; the tx context is
	// refreshed from it so ORIGIN/GASPRICE up-calls observe this
	// transaction's values.
	gasPrice := uint256FromBigOrZero(tx.GasPrice)
	evm.TxCtx = TxContext{Origin: tx.From, GasPrice: gasPrice}
	value := uint256FromBigOrZero(tx.Value)
	need := new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit), gasPrice)
	need.Add(need, value)
	balance, err := evm.StateDB.GetBalance(tx.From)
	if err != nil {
		return nil, internal(err)
	}
	if balance.Lt(need) {
		return nil, ErrInsufficientBalanceForFee
	}
	igas := intrinsicGas(tx)
	if tx.GasLimit < igas {
		return nil, ErrNotEnoughBaseGas
	}

	// 2. Prepay.
	fee := new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit), gasPrice)
	if err := evm.StateDB.SubBalance(tx.From, fee); err != nil {
		return nil, internal(err)
	}
	if err := evm.StateDB.IncrNonce(tx.From); err != nil {
		return nil, internal(err)
	}

	gasRemaining := tx.GasLimit - igas

	// 3. Dispatch. Call/Create open and resolve their own checkpoint
	// (identical machinery a nested frame uses), so by
	// the time either returns the checkpoint stack is already back to
	// whatever it was before Exec started. Nothing further to discard or
	// revert here.
	var (
		ret     []byte
		gasLeft uint64
		runErr  error
	)
	if tx.IsCreate() {
		_, ret, gasLeft, runErr = evm.Create(tx.From, tx.Input, value, gasRemaining)
	} else {
		ret, gasLeft, runErr = evm.Call(CallCall, tx.From, *tx.To, value, tx.Input, gasRemaining, false)
	}

	success := runErr == nil
	switch {
	case runErr == nil, errors.Is(runErr, ErrExecutionReverted):
		// success, or an explicit REVERT: return data and leftover gas
		// already reflect the frame's own resolution.
	case isFrameLocal(runErr):
		gasLeft = 0
		ret = nil
	default:
		// Infrastructure error: abort unconditionally, no state mutation.
		return nil, internal(runErr)
	}

	gasUsed := gasRemaining - gasLeft + igas

	// 6. Self-destructs, refund cap, fee settlement, commit. SelfDestruct
	// already drained the balance and set the tombstone bit when the
	// opcode ran; nothing further is needed here beyond clearing the set.
	evm.cp().ClearSelfDestructs()

	refund := evm.StateDB.GetRefund()
	refundCap := gasUsed / 2
	if refund > refundCap {
		refund = refundCap
	}
	totalGasUsed := gasUsed - refund
	if totalGasUsed > tx.GasLimit {
		totalGasUsed = tx.GasLimit
	}
	refundWei := new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit-totalGasUsed), gasPrice)
	if err := evm.StateDB.AddBalance(tx.From, refundWei); err != nil {
		return nil, internal(err)
	}

	// Pay the coinbase its tip. When gasPrice is zero the tip is zero, and
	// AddBalance's zero-amount no-op naturally suppresses creating an
	// otherwise-untouched empty coinbase account (EIP-161).
	tip := new(uint256.Int).Mul(uint256.NewInt(totalGasUsed), gasPrice)
	if err := evm.StateDB.AddBalance(evm.BlockCtx.Coinbase, tip); err != nil {
		return nil, internal(err)
	}

	root, err := evm.cp().Commit()
	if err != nil {
		return nil, internal(err)
	}
	slog.Debug("Executed transaction", "from", tx.From, "gasUsed", totalGasUsed, "success", success, "root", root)

	return &ExecOutcome{
		ReturnData:           ret,
		GasUsed:              totalGasUsed,
		Logs:                 evm.StateDB.Logs(),
		Success:              success,
		StateRootAfterCommit: root,
	}, nil
}

// uint256FromBigOrZero converts tx.Value (a *big.Int, possibly nil for a
// value-less transaction) to a *uint256.Int, never returning nil.
func uint256FromBigOrZero(b *big.Int) *uint256.Int {
	if b == nil {
		return new(uint256.Int)
	}
	v, _ := uint256.FromBig(b)
	return v
}
