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
	"github.com/ethcore-go/evmcore/crypto"
	"github.com/ethcore-go/evmcore/rlp"
)

// StateAccount is the RLP-encoded Account Record: the quadruple
// (nonce, balance, storage_root, code_hash) the world trie indexes every
// address by.
type StateAccount struct {
	Nonce    uint64
	Balance  *big.Int
	Root     common.Hash // storage_root
	CodeHash []byte
}

// NewEmptyStateAccount returns the Account Record for a brand-new,
// zero-balance, no-code account: nonce 0, balance 0, an empty storage
// trie, and the well-known empty code hash.
func NewEmptyStateAccount() *StateAccount {
	return &StateAccount{
		Balance:  new(big.Int),
		Root:     crypto.EmptyRootHash,
		CodeHash: crypto.EmptyCodeHash.Bytes(),
	}
}

// Copy returns a deep copy of the account record, used when a checkpoint
// frame snapshots an address's prior entry.
func (a *StateAccount) Copy() *StateAccount {
	if a == nil {
		return nil
	}
	cp := &StateAccount{
		Nonce: a.Nonce,
		Root:  a.Root,
	}
	if a.Balance != nil {
		cp.Balance = new(big.Int).Set(a.Balance)
	} else {
		cp.Balance = new(big.Int)
	}
	if a.CodeHash != nil {
		cp.CodeHash = append([]byte(nil), a.CodeHash...)
	}
	return cp
}

// Empty reports whether the account is empty per EIP-161: nonce=0,
// balance=0, and code_hash equals keccak256(∅).
func (a *StateAccount) Empty() bool {
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.Sign() == 0) &&
		common.BytesToHash(a.CodeHash) == crypto.EmptyCodeHash
}

// EncodeRLP returns the Account Record's canonical RLP encoding, the only
// well-known on-disk invariant this module must keep bit-compatible with
// Ethereum.
func (a *StateAccount) EncodeRLP() ([]byte, error) {
	balance := a.Balance
	if balance == nil {
		balance = new(big.Int)
	}
	return rlp.EncodeToBytes([]interface{}{a.Nonce, *balance, a.Root.Bytes(), a.CodeHash})
}

// DecodeAccountRLP decodes a StateAccount from its RLP encoding.
func DecodeAccountRLP(enc []byte) (*StateAccount, error) {
	var raw struct {
		Nonce    uint64
		Balance  big.Int
		Root     []byte
		CodeHash []byte
	}
	if err := rlp.DecodeBytes(enc, &raw); err != nil {
		return nil, err
	}
	return &StateAccount{
		Nonce:    raw.Nonce,
		Balance:  &raw.Balance,
		Root:     common.BytesToHash(raw.Root),
		CodeHash: raw.CodeHash,
	}, nil
}
