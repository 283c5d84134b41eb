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

// Package state provides the World State: a cache of State Objects
// layered over the world trie, with a checkpoint stack that lets the
// Execution Driver roll back nested EVM frames without touching the trie
// until the whole transaction is ready to commit.
//
// The checkpoint stack is a snapshot-on-first-write, oldest-wins-merge
// frame model rather than a journaled undo-log: revert cost is
// proportional to touched addresses, not to the number of operations
// performed since the checkpoint opened. Access-list methods belong to a
// later fork than the Istanbul pin and are absent from the surface.
package state

import (
	"fmt"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"

	"github.com/ethcore-go/evmcore/common"
	"github.com/ethcore-go/evmcore/core/types"
	"github.com/ethcore-go/evmcore/crypto"
	"github.com/ethcore-go/evmcore/trie"
)

// entry wraps a State Object with the two bits the World State tracks
// alongside it: whether it has been mutated since the last commit, and
// whether it is scheduled for removal (self-destruct, or an EIP-161 empty
// touch) on the next commit. A tombstoned entry is always dirty.
type entry struct {
	obj       *stateObject
	dirty     bool
	tombstone bool
}

func (e *entry) copy(db *StateDB) *entry {
	if e == nil {
		return nil
	}
	return &entry{obj: e.obj.copy(db), dirty: e.dirty, tombstone: e.tombstone}
}

// checkpointRecord is the prior value recorded for one address the first
// time it is touched after a checkpoint was opened. had=false means the
// address had no entry at all before this checkpoint (revert must delete
// it, not restore it).
type checkpointRecord struct {
	had   bool
	prior *entry
}

// checkpoint is one frame of the checkpoint stack: the oldest prior value
// per address touched since it was opened, plus the refund counter, logs
// length, and self-destruct-set additions to rewind on revert.
type checkpoint struct {
	entries        map[common.Address]*checkpointRecord
	refundMark     uint64
	logsMark       int
	destructsAdded []common.Address
}

// StateDB is the World State: a mapping Address → entry, backed by a
// world trie, with a refund counter, self-destruct set, logs list, and
// checkpoint stack all scoped to the current transaction.
type StateDB struct {
	db   *trie.Database
	trie *trie.Trie
	root common.Hash // last committed world root

	entries map[common.Address]*entry

	refund    uint64
	logs      []*types.Log
	destructs mapset.Set[common.Address]

	checkpoints []*checkpoint
}

// New opens the World State rooted at root, over db. An empty root opens a
// fresh, empty world trie.
func New(root common.Hash, db *trie.Database) (*StateDB, error) {
	tr, err := trie.New(root, db)
	if err != nil {
		return nil, fmt.Errorf("state: open world trie: %w", err)
	}
	return &StateDB{
		db:        db,
		trie:      tr,
		root:      root,
		entries:   make(map[common.Address]*entry),
		destructs: mapset.NewSet[common.Address](),
	}, nil
}

// worldTrieKey is the key an address is indexed under in the world trie:
// keccak256(address), the same "secure trie" convention real Ethereum
// clients use.
func worldTrieKey(addr common.Address) []byte {
	return crypto.Keccak256(addr.Bytes())
}

// snapshotBeforeWrite implements the snapshot-on-first-write rule: before
// any mutation that will set an entry dirty, record its pre-mutation value
// into the top checkpoint frame, but only the first time this address is
// touched since that frame opened.
func (s *StateDB) snapshotBeforeWrite(addr common.Address) {
	if len(s.checkpoints) == 0 {
		return
	}
	top := s.checkpoints[len(s.checkpoints)-1]
	if _, ok := top.entries[addr]; ok {
		return
	}
	e, had := s.entries[addr]
	top.entries[addr] = &checkpointRecord{had: had, prior: e.copy(s)}
}

// getEntry returns the live entry for addr, loading it from the world trie
// on first access and populating the cache. A missing account reports
// ok=false without error.
func (s *StateDB) getEntry(addr common.Address) (*entry, bool, error) {
	if e, ok := s.entries[addr]; ok {
		return e, !e.tombstone, nil
	}
	enc, err := s.trie.Get(worldTrieKey(addr))
	if err != nil {
		return nil, false, fmt.Errorf("state: read account %s: %w", addr, err)
	}
	if enc == nil {
		return nil, false, nil
	}
	acc, err := types.DecodeAccountRLP(enc)
	if err != nil {
		return nil, false, fmt.Errorf("state: decode account %s: %w", addr, err)
	}
	e := &entry{obj: newStateObject(s, addr, *acc)}
	s.entries[addr] = e
	return e, true, nil
}

// getOrCreateEntry returns the entry for addr, inserting an empty one if
// absent, without marking it dirty (a plain read accessor never dirties).
// A tombstoned entry is returned as-is: a balance credited to a
// self-destructed account later in the same transaction must land on the
// tombstone and burn at commit, not resurrect the account.
func (s *StateDB) getOrCreateEntry(addr common.Address) (*entry, error) {
	if e, ok := s.entries[addr]; ok {
		return e, nil
	}
	e, ok, err := s.getEntry(addr)
	if err != nil {
		return nil, err
	}
	if ok {
		return e, nil
	}
	e = &entry{obj: newStateObject(s, addr, *types.NewEmptyStateAccount())}
	s.entries[addr] = e
	return e, nil
}

// markDirty snapshots addr's prior value (if not already captured in the
// current frame) and flags its entry dirty.
func (s *StateDB) markDirty(addr common.Address) error {
	// Resolve (and, if it exists, cache) the address's true pre-mutation
	// state *before* snapshotting, so an address that genuinely has no
	// entry yet is snapshotted as "had=false" rather than as the
	// about-to-be-created empty placeholder.
	if _, _, err := s.getEntry(addr); err != nil {
		return err
	}
	s.snapshotBeforeWrite(addr)
	e, err := s.getOrCreateEntry(addr)
	if err != nil {
		return err
	}
	e.dirty = true
	return nil
}

// CreateAccount replaces any existing record at addr with a fresh one
// (balance, nonce, code as given) and reinitializes the storage trie to
// empty. A created contract never inherits prior storage.
func (s *StateDB) CreateAccount(addr common.Address, balance *uint256.Int, nonce uint64, code []byte) error {
	s.snapshotBeforeWrite(addr)
	acc := types.NewEmptyStateAccount()
	acc.Nonce = nonce
	if balance != nil {
		acc.Balance = balance.ToBig()
	}
	obj := newStateObject(s, addr, *acc)
	if len(code) > 0 {
		obj.SetCode(code)
	}
	s.entries[addr] = &entry{obj: obj, dirty: true}
	return nil
}

// Exist reports whether addr has an entry, in cache or in the world trie.
func (s *StateDB) Exist(addr common.Address) (bool, error) {
	_, ok, err := s.getEntry(addr)
	return ok, err
}

// Empty reports whether addr exists and is empty per EIP-161.
func (s *StateDB) Empty(addr common.Address) (bool, error) {
	e, ok, err := s.getEntry(addr)
	if err != nil || !ok {
		return false, err
	}
	return e.obj.empty(), nil
}

// ExistAndNotEmpty reports whether addr exists and is not empty (EIP-161's
// exist_and_not_null).
func (s *StateDB) ExistAndNotEmpty(addr common.Address) (bool, error) {
	e, ok, err := s.getEntry(addr)
	if err != nil || !ok {
		return false, err
	}
	return !e.obj.empty(), nil
}

// GetBalance returns addr's balance, zero if the account does not exist.
func (s *StateDB) GetBalance(addr common.Address) (*uint256.Int, error) {
	e, ok, err := s.getEntry(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(uint256.Int), nil
	}
	return e.obj.Balance(), nil
}

// GetNonce returns addr's nonce, zero if the account does not exist.
func (s *StateDB) GetNonce(addr common.Address) (uint64, error) {
	e, ok, err := s.getEntry(addr)
	if err != nil || !ok {
		return 0, err
	}
	return e.obj.Nonce(), nil
}

// SetNonce sets addr's nonce directly.
func (s *StateDB) SetNonce(addr common.Address, nonce uint64) error {
	if err := s.markDirty(addr); err != nil {
		return err
	}
	s.entries[addr].obj.SetNonce(nonce)
	return nil
}

// IncrNonce increments addr's nonce by one.
func (s *StateDB) IncrNonce(addr common.Address) error {
	if err := s.markDirty(addr); err != nil {
		return err
	}
	s.entries[addr].obj.IncrNonce()
	return nil
}

// GetCodeHash returns addr's code_hash, the empty hash if the account does
// not exist.
func (s *StateDB) GetCodeHash(addr common.Address) (common.Hash, error) {
	e, ok, err := s.getEntry(addr)
	if err != nil || !ok {
		return common.Hash{}, err
	}
	return e.obj.CodeHash(), nil
}

// GetCode returns addr's code, nil if the account does not exist or has no
// code.
func (s *StateDB) GetCode(addr common.Address) ([]byte, error) {
	e, ok, err := s.getEntry(addr)
	if err != nil || !ok {
		return nil, err
	}
	return e.obj.Code()
}

// GetCodeSize returns len(GetCode(addr)).
func (s *StateDB) GetCodeSize(addr common.Address) (int, error) {
	code, err := s.GetCode(addr)
	if err != nil {
		return 0, err
	}
	return len(code), nil
}

// SetCode installs code as addr's code.
func (s *StateDB) SetCode(addr common.Address, code []byte) error {
	if err := s.markDirty(addr); err != nil {
		return err
	}
	s.entries[addr].obj.SetCode(code)
	return nil
}

// SetBalance overwrites addr's balance directly, creating the account if
// necessary.
func (s *StateDB) SetBalance(addr common.Address, amount *uint256.Int) error {
	if err := s.markDirty(addr); err != nil {
		return err
	}
	s.entries[addr].obj.SetBalance(amount)
	return nil
}

// AddBalance credits amount to addr's balance, creating the account if
// necessary.
func (s *StateDB) AddBalance(addr common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		// A zero-value touch still counts as a touch for EIP-161 purposes,
		// but since it mutates nothing observable we skip the dirty mark
		// entirely, whether or not the account exists (a missing account
		// is not created); CALL's value-transfer path is responsible for
		// explicitly touching empty recipients.
		return nil
	}
	if err := s.markDirty(addr); err != nil {
		return err
	}
	s.entries[addr].obj.AddBalance(amount)
	return nil
}

// SubBalance debits amount from addr's balance.
func (s *StateDB) SubBalance(addr common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	if err := s.markDirty(addr); err != nil {
		return err
	}
	return s.entries[addr].obj.SubBalance(amount)
}

// Transfer atomically moves v from `from` to `to`, erroring on insufficient
// balance without mutating either side.
func (s *StateDB) Transfer(from, to common.Address, v *uint256.Int) error {
	if v == nil || v.IsZero() {
		return s.Touch(to)
	}
	bal, err := s.GetBalance(from)
	if err != nil {
		return err
	}
	if bal.Lt(v) {
		return fmt.Errorf("%w: address=%s balance=%s amount=%s", ErrInsufficientBalance, from, bal, v)
	}
	if err := s.SubBalance(from, v); err != nil {
		return err
	}
	return s.AddBalance(to, v)
}

// Touch records a zero-value visit to addr: per EIP-161, this must dirty
// (and thus make tombstone-eligible) an empty account without changing any
// field, so that an empty account touched this way disappears on commit
// unless something else gave it state. Touching an address that does not
// exist at all does nothing (invariant 6: it stays nonexistent).
func (s *StateDB) Touch(addr common.Address) error {
	ok, err := s.Exist(addr)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	empty, err := s.Empty(addr)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}
	return s.markDirty(addr)
}

// GetState returns the current value at key for addr.
func (s *StateDB) GetState(addr common.Address, key common.Hash) (uint256.Int, error) {
	e, ok, err := s.getEntry(addr)
	if err != nil || !ok {
		return uint256.Int{}, err
	}
	return e.obj.GetState(key)
}

// GetCommittedState returns the pre-transaction value at key for addr,
// i.e. original_storage, used by EIP-2200 SSTORE metering.
func (s *StateDB) GetCommittedState(addr common.Address, key common.Hash) (uint256.Int, error) {
	e, ok, err := s.getEntry(addr)
	if err != nil || !ok {
		return uint256.Int{}, err
	}
	return e.obj.GetCommittedState(key)
}

// SetState writes value at key for addr.
func (s *StateDB) SetState(addr common.Address, key common.Hash, value uint256.Int) error {
	if err := s.markDirty(addr); err != nil {
		return err
	}
	return s.entries[addr].obj.SetState(key, value)
}

// AddRefund credits the refund counter.
func (s *StateDB) AddRefund(v uint64) { s.refund += v }

// SubRefund debits the refund counter; a negative refund can only
// indicate a bookkeeping bug upstream, never legal EVM execution, so
// underflow panics.
func (s *StateDB) SubRefund(v uint64) {
	if v > s.refund {
		panic(fmt.Sprintf("state: refund counter below zero: refund=%d sub=%d", s.refund, v))
	}
	s.refund -= v
}

// GetRefund returns the current (uncapped) refund counter.
func (s *StateDB) GetRefund() uint64 { return s.refund }

// AddLog appends a LOG emission in opcode-emission order.
func (s *StateDB) AddLog(addr common.Address, topics []common.Hash, data []byte) {
	s.logs = append(s.logs, &types.Log{
		Address: addr,
		Topics:  topics,
		Data:    data,
		Index:   uint(len(s.logs)),
	})
}

// Logs returns the logs accumulated so far, in emission order.
func (s *StateDB) Logs() []*types.Log { return s.logs }

// SelfDestruct transfers addr's full balance to beneficiary, marks addr
// tombstoned, and records it in the self-destruct set.
func (s *StateDB) SelfDestruct(addr, beneficiary common.Address) error {
	bal, err := s.GetBalance(addr)
	if err != nil {
		return err
	}
	if addr != beneficiary {
		if err := s.Transfer(addr, beneficiary, bal); err != nil {
			return err
		}
	}
	if err := s.markDirty(addr); err != nil {
		return err
	}
	s.entries[addr].tombstone = true
	if !s.destructs.Contains(addr) {
		s.destructs.Add(addr)
		if len(s.checkpoints) > 0 {
			top := s.checkpoints[len(s.checkpoints)-1]
			top.destructsAdded = append(top.destructsAdded, addr)
		}
	}
	return nil
}

// HasSelfDestructed reports whether addr is in the current transaction's
// self-destruct set.
func (s *StateDB) HasSelfDestructed(addr common.Address) bool {
	return s.destructs.Contains(addr)
}

// SelfDestructed returns every address in the current self-destruct set.
func (s *StateDB) SelfDestructed() []common.Address {
	return s.destructs.ToSlice()
}

// ClearSelfDestructs empties the self-destruct set; called by the driver
// once it has processed the set after the top-level frame completes.
func (s *StateDB) ClearSelfDestructs() { s.destructs.Clear() }

// Checkpoint pushes a new, empty snapshot frame onto the stack and
// returns the resulting depth (1-based).
func (s *StateDB) Checkpoint() int {
	s.checkpoints = append(s.checkpoints, &checkpoint{
		entries:    make(map[common.Address]*checkpointRecord),
		refundMark: s.refund,
		logsMark:   len(s.logs),
	})
	return len(s.checkpoints)
}

// DiscardCheckpoint merges the top frame into the one below it, retaining
// the oldest prior value per address: an address already recorded in the
// lower frame keeps its original (older) prior value. If there is no lower
// frame, the top frame's entries are simply dropped. A checkpoint only
// remembers what to restore on revert; once discarded, nothing above the
// transaction root needs that memory anymore.
func (s *StateDB) DiscardCheckpoint() error {
	if len(s.checkpoints) == 0 {
		return ErrNoCheckpoint
	}
	top := s.checkpoints[len(s.checkpoints)-1]
	s.checkpoints = s.checkpoints[:len(s.checkpoints)-1]
	if len(s.checkpoints) == 0 {
		return nil
	}
	below := s.checkpoints[len(s.checkpoints)-1]
	for addr, rec := range top.entries {
		if _, exists := below.entries[addr]; !exists {
			below.entries[addr] = rec
		}
	}
	below.destructsAdded = append(below.destructsAdded, top.destructsAdded...)
	return nil
}

// RevertCheckpoint pops the top frame and restores every address it
// recorded: an existing prior entry is merged back into the live cache: a
// "None" prior removes the live entry, but only if it is currently dirty
// (an address read-only since the checkpoint, never written, has nothing
// to undo). Refund, logs, and the self-destruct set are rewound to the
// markers captured at Checkpoint() time.
func (s *StateDB) RevertCheckpoint() error {
	if len(s.checkpoints) == 0 {
		return ErrNoCheckpoint
	}
	top := s.checkpoints[len(s.checkpoints)-1]
	s.checkpoints = s.checkpoints[:len(s.checkpoints)-1]

	for addr, rec := range top.entries {
		if rec.had {
			s.entries[addr] = rec.prior
		} else if e, ok := s.entries[addr]; ok && e.dirty {
			delete(s.entries, addr)
		}
	}
	for _, addr := range top.destructsAdded {
		s.destructs.Remove(addr)
	}
	s.refund = top.refundMark
	if top.logsMark < len(s.logs) {
		s.logs = s.logs[:top.logsMark]
	}
	return nil
}

// Commit flushes every dirty entry into the world trie: tombstones are
// removed, live entries have their storage tries flushed and rehashed,
// their code persisted, and their Account Record re-encoded and
// upserted. It is only legal once the checkpoint stack is empty.
func (s *StateDB) Commit() (common.Hash, error) {
	if len(s.checkpoints) != 0 {
		return common.Hash{}, ErrCommitWithOpenCheckpoint
	}
	var updated, removed int
	for addr, e := range s.entries {
		if !e.dirty {
			continue
		}
		// EIP-161: an account that is dirty (touched) but empty at commit
		// time is removed rather than written as an empty record, exactly
		// like an explicit tombstone.
		if e.tombstone || e.obj.empty() {
			if err := s.trie.Delete(worldTrieKey(addr)); err != nil {
				return common.Hash{}, fmt.Errorf("state: delete account %s: %w", addr, err)
			}
			e.dirty = false
			delete(s.entries, addr)
			removed++
			continue
		}
		if _, err := e.obj.finalizeStorage(); err != nil {
			return common.Hash{}, err
		}
		if e.obj.dirtyCode && len(e.obj.code) > 0 {
			s.db.PutCode(e.obj.CodeHash(), e.obj.code)
			e.obj.dirtyCode = false
		}
		enc, err := e.obj.data.EncodeRLP()
		if err != nil {
			return common.Hash{}, fmt.Errorf("state: encode account %s: %w", addr, err)
		}
		if err := s.trie.Update(worldTrieKey(addr), enc); err != nil {
			return common.Hash{}, fmt.Errorf("state: write account %s: %w", addr, err)
		}
		e.dirty = false
		updated++
	}
	root, err := s.trie.Commit()
	if err != nil {
		return common.Hash{}, fmt.Errorf("state: commit world trie: %w", err)
	}
	s.root = root
	slog.Debug("Committed world state", "root", root, "updated", updated, "removed", removed)
	return root, nil
}

// Root returns the last committed world root.
func (s *StateDB) Root() common.Hash { return s.root }
