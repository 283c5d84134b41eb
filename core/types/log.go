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

package types

import (
	"math/big"

	"github.com/ethcore-go/evmcore/common"
)

// Log is one LOG opcode emission, appended to the World State's logs list
// in opcode-emission order.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte

	// Index is this log's position in the logs list at the time it was
	// appended. Checkpoint revert truncates the list by a recorded length
	// and does not read this field; never part of consensus-visible state.
	Index uint
}

// Transaction is the external transaction input to the Execution Driver.
type Transaction struct {
	From     common.Address
	To       *common.Address // nil means contract creation
	Value    *big.Int
	Nonce    uint64
	GasLimit uint64
	GasPrice *big.Int
	Input    []byte
}

// IsCreate reports whether this transaction creates a new contract.
func (tx *Transaction) IsCreate() bool { return tx.To == nil }
