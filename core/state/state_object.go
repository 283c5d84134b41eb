// Copyright 2014 The go-ethereum Authors
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

package state

import (
	"fmt"

	"github.com/ethcore-go/evmcore/common"
	"github.com/ethcore-go/evmcore/core/types"
	"github.com/ethcore-go/evmcore/crypto"
	"github.com/ethcore-go/evmcore/rlp"
	"github.com/ethcore-go/evmcore/trie"
	"github.com/holiman/uint256"
)

// Code is an immutable contract code blob.
type Code []byte

// stateObject is the in-memory mutable view of a single account: its
// Account Record, lazily-fetched code, a per-key storage cache, the
// dirty-since-last-commit keys, and the pre-write snapshot EIP-2200 needs.
// It is owned exclusively by its StateDB's entry map; checkpoint frames
// only ever hold deep clones (see (*stateObject).copy), never this instance,
// so mutating it in place can never be observed by a reverted frame.
type stateObject struct {
	db      *StateDB
	address common.Address
	data    types.StateAccount

	code Code

	storageTrie *trie.Trie // per-account storage trie, opened lazily from data.Root

	// originStorage snapshots a key's on-trie value the first time it is
	// read or written in the lifetime of this object (i.e. since it was last loaded
	// fresh from the trie); GetCommittedState serves from here.
	originStorage map[common.Hash]uint256.Int
	// storageCache holds every key this object has read or written,
	// reflecting the current (possibly dirty) value.
	storageCache map[common.Hash]uint256.Int
	// dirtyStorage is the set of keys written since the object was last
	// committed; Commit only walks these into the storage trie.
	dirtyStorage map[common.Hash]struct{}

	dirtyCode bool // code was set since last commit, buffer pending write
}

func newStateObject(db *StateDB, addr common.Address, data types.StateAccount) *stateObject {
	return &stateObject{
		db:            db,
		address:       addr,
		data:          data,
		originStorage: make(map[common.Hash]uint256.Int),
		storageCache:  make(map[common.Hash]uint256.Int),
		dirtyStorage:  make(map[common.Hash]struct{}),
	}
}

// copy returns a deep clone suitable for a checkpoint frame's prior-value
// snapshot: no field is shared with the live object, so later mutation of
// either side is invisible to the other.
func (s *stateObject) copy(db *StateDB) *stateObject {
	cp := &stateObject{
		db:            db,
		address:       s.address,
		data:          *s.data.Copy(),
		code:          append(Code(nil), s.code...),
		storageTrie:   s.storageTrie, // shared: only written at Commit, which is refused while a checkpoint is open
		originStorage: make(map[common.Hash]uint256.Int, len(s.originStorage)),
		storageCache:  make(map[common.Hash]uint256.Int, len(s.storageCache)),
		dirtyStorage:  make(map[common.Hash]struct{}, len(s.dirtyStorage)),
		dirtyCode:     s.dirtyCode,
	}
	for k, v := range s.originStorage {
		cp.originStorage[k] = v
	}
	for k, v := range s.storageCache {
		cp.storageCache[k] = v
	}
	for k := range s.dirtyStorage {
		cp.dirtyStorage[k] = struct{}{}
	}
	return cp
}

func (s *stateObject) empty() bool {
	return s.data.Empty()
}

// Address returns the account's address.
func (s *stateObject) Address() common.Address { return s.address }

// Balance returns the account's current balance.
func (s *stateObject) Balance() *uint256.Int {
	b, _ := uint256.FromBig(s.data.Balance)
	return b
}

// Nonce returns the account's current nonce.
func (s *stateObject) Nonce() uint64 { return s.data.Nonce }

// CodeHash returns the 32-byte hash of the account's code.
func (s *stateObject) CodeHash() common.Hash { return common.BytesToHash(s.data.CodeHash) }

// Code returns the account's code, fetching it from the backing database
// and caching it the first time it is needed.
func (s *stateObject) Code() (Code, error) {
	if s.code != nil {
		return s.code, nil
	}
	if s.CodeHash() == crypto.EmptyCodeHash {
		return nil, nil
	}
	code, ok := s.db.db.GetCode(s.CodeHash())
	if !ok {
		return nil, fmt.Errorf("%w: address=%s codeHash=%s", ErrCodeMissing, s.address, s.CodeHash())
	}
	s.code = code
	return code, nil
}

// CodeSize returns len(Code()); the whole blob is cached on first access,
// so this simply delegates.
func (s *stateObject) CodeSize() (int, error) {
	code, err := s.Code()
	if err != nil {
		return 0, err
	}
	return len(code), nil
}

// SetCode installs code as the account's code, recomputing code_hash and
// buffering the bytes for the next Commit.
func (s *stateObject) SetCode(code []byte) {
	s.code = code
	s.data.CodeHash = crypto.Keccak256(code)
	s.dirtyCode = true
}

// SetNonce sets the account's nonce directly (used by the driver when
// prepaying a transaction); IncrNonce is the common +1 case.
func (s *stateObject) SetNonce(nonce uint64) { s.data.Nonce = nonce }

// IncrNonce increments the account's nonce by one. A wraparound would
// require 2^64 transactions from one sender and is unreachable under any
// realistic gas limit, so it is not guarded.
func (s *stateObject) IncrNonce() { s.data.Nonce++ }

// SetBalance overwrites the account's balance directly.
func (s *stateObject) SetBalance(amount *uint256.Int) { s.data.Balance = amount.ToBig() }

// AddBalance credits amount to the account's balance.
func (s *stateObject) AddBalance(amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	s.SetBalance(new(uint256.Int).Add(s.Balance(), amount))
}

// SubBalance debits amount from the account's balance, returning
// ErrInsufficientBalance (a BalanceError, surfaced to the driver) rather
// than wrapping below zero.
func (s *stateObject) SubBalance(amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	bal := s.Balance()
	if bal.Lt(amount) {
		return fmt.Errorf("%w: address=%s balance=%s amount=%s", ErrInsufficientBalance, s.address, bal, amount)
	}
	s.SetBalance(new(uint256.Int).Sub(bal, amount))
	return nil
}

// openStorageTrie lazily opens the per-account storage trie from the
// Account Record's storage_root the first time a key outside the cache is
// needed.
func (s *stateObject) openStorageTrie() (*trie.Trie, error) {
	if s.storageTrie != nil {
		return s.storageTrie, nil
	}
	tr, err := trie.New(s.data.Root, s.db.db)
	if err != nil {
		return nil, fmt.Errorf("%w: address=%s", err, s.address)
	}
	s.storageTrie = tr
	return tr, nil
}

// storageTrieKey is the key under which a storage slot is indexed in the
// per-account trie: keccak256 of the raw 32-byte slot key, matching the
// "secure trie" convention real Ethereum clients use for both the world
// trie and every storage trie.
func storageTrieKey(key common.Hash) []byte {
	return crypto.Keccak256(key.Bytes())
}

// GetState returns the current value at key: from the dirty-aware cache if
// already touched this object's lifetime, else read through to the storage
// trie, which is then cached.
func (s *stateObject) GetState(key common.Hash) (uint256.Int, error) {
	if v, ok := s.storageCache[key]; ok {
		return v, nil
	}
	return s.GetCommittedState(key)
}

// GetCommittedState returns the value at key as of the last Commit,
// ignoring any write made since; EIP-2200 net-gas SSTORE metering reads
// through here.
func (s *stateObject) GetCommittedState(key common.Hash) (uint256.Int, error) {
	if v, ok := s.originStorage[key]; ok {
		return v, nil
	}
	tr, err := s.openStorageTrie()
	if err != nil {
		return uint256.Int{}, err
	}
	enc, err := tr.Get(storageTrieKey(key))
	if err != nil {
		return uint256.Int{}, fmt.Errorf("%w: address=%s key=%s", err, s.address, key)
	}
	var v uint256.Int
	if len(enc) > 0 {
		content, _, err := rlp.SplitString(enc)
		if err != nil {
			return uint256.Int{}, fmt.Errorf("%w: address=%s key=%s", err, s.address, key)
		}
		v.SetBytes(content)
	}
	s.originStorage[key] = v
	s.storageCache[key] = v
	return v, nil
}

// SetState writes value into the storage cache and marks key dirty. Per
// the snapshot-on-first-write rule, the first write to a given key within
// this object's lifetime first captures the pre-write value into
// originStorage so EIP-2200 metering can see it (checkpoint revert
// restores whole object copies and does not use originStorage).
func (s *stateObject) SetState(key common.Hash, value uint256.Int) error {
	if _, ok := s.originStorage[key]; !ok {
		if _, err := s.GetCommittedState(key); err != nil {
			return err
		}
	}
	s.storageCache[key] = value
	s.dirtyStorage[key] = struct{}{}
	return nil
}

// finalizeStorage flushes every dirty key into the per-account storage
// trie and returns the recomputed storage root. Zero-valued entries are
// removed rather than inserted; storing explicit zeros would diverge the
// storage root from Ethereum's.
func (s *stateObject) finalizeStorage() (common.Hash, error) {
	if len(s.dirtyStorage) == 0 {
		return s.data.Root, nil
	}
	tr, err := s.openStorageTrie()
	if err != nil {
		return common.Hash{}, err
	}
	for key := range s.dirtyStorage {
		v := s.storageCache[key]
		tk := storageTrieKey(key)
		if v.IsZero() {
			if err := tr.Delete(tk); err != nil {
				return common.Hash{}, fmt.Errorf("%w: address=%s key=%s", err, s.address, key)
			}
			continue
		}
		enc, err := rlp.EncodeToBytes(v.Bytes())
		if err != nil {
			return common.Hash{}, err
		}
		if err := tr.Update(tk, enc); err != nil {
			return common.Hash{}, fmt.Errorf("%w: address=%s key=%s", err, s.address, key)
		}
	}
	s.dirtyStorage = make(map[common.Hash]struct{})
	root, err := tr.Commit()
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: address=%s", err, s.address)
	}
	s.data.Root = root
	// The committed values are now the origin for the next transaction;
	// stale pre-commit snapshots would otherwise leak into the next
	// transaction's net-gas metering.
	s.originStorage = make(map[common.Hash]uint256.Int)
	return root, nil
}
