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

package state

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/ethcore-go/evmcore/common"
	"github.com/ethcore-go/evmcore/trie"
)

var (
	addr1 = common.HexToAddress("0x1000000000000000000000000000000000000001")
	addr2 = common.HexToAddress("0x1000000000000000000000000000000000000002")
	key0  = common.Hash{}
)

func newTestStateDB(t *testing.T) *StateDB {
	t.Helper()
	sdb, err := New(common.Hash{}, trie.NewDatabase())
	require.NoError(t, err)
	return sdb
}

// Invariant 1: checkpoint round-trip. Opening and reverting a checkpoint
// around a mutation restores every value it touched.
func TestCheckpointRevertRoundTrip(t *testing.T) {
	sdb := newTestStateDB(t)
	require.NoError(t, sdb.CreateAccount(addr1, uint256.NewInt(100), 1, nil))

	sdb.Checkpoint()
	require.NoError(t, sdb.SetBalance(addr1, uint256.NewInt(999)))
	require.NoError(t, sdb.SetNonce(addr1, 42))
	require.NoError(t, sdb.SetState(addr1, key0, *uint256.NewInt(7)))
	require.NoError(t, sdb.RevertCheckpoint())

	bal, err := sdb.GetBalance(addr1)
	require.NoError(t, err)
	require.True(t, bal.Eq(uint256.NewInt(100)))

	nonce, err := sdb.GetNonce(addr1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)

	v, err := sdb.GetState(addr1, key0)
	require.NoError(t, err)
	require.True(t, v.IsZero())
}

// The checkpoint round-trip covers the transaction-scoped accumulators
// too: refund counter, log count, and the self-destruct set all rewind to
// their values at Checkpoint() time.
func TestCheckpointRevertRewindsAccumulators(t *testing.T) {
	sdb := newTestStateDB(t)
	require.NoError(t, sdb.CreateAccount(addr1, uint256.NewInt(10), 1, nil))
	sdb.AddRefund(100)
	sdb.AddLog(addr1, nil, []byte("before"))

	sdb.Checkpoint()
	sdb.AddRefund(24000)
	sdb.AddLog(addr1, nil, []byte("inside"))
	require.NoError(t, sdb.SelfDestruct(addr1, addr2))
	require.True(t, sdb.HasSelfDestructed(addr1))
	require.NoError(t, sdb.RevertCheckpoint())

	require.Equal(t, uint64(100), sdb.GetRefund())
	require.Len(t, sdb.Logs(), 1)
	require.False(t, sdb.HasSelfDestructed(addr1))

	bal, err := sdb.GetBalance(addr1)
	require.NoError(t, err)
	require.True(t, bal.Eq(uint256.NewInt(10)), "the drained balance is restored")
}

// Invariant 2: discard equivalence. Discarding a checkpoint after a
// mutation must leave exactly the same live state as if no checkpoint had
// ever been opened.
func TestDiscardCheckpointEquivalence(t *testing.T) {
	direct := newTestStateDB(t)
	require.NoError(t, direct.CreateAccount(addr1, uint256.NewInt(5), 0, nil))
	require.NoError(t, direct.AddBalance(addr1, uint256.NewInt(10)))

	checkpointed := newTestStateDB(t)
	require.NoError(t, checkpointed.CreateAccount(addr1, uint256.NewInt(5), 0, nil))
	checkpointed.Checkpoint()
	require.NoError(t, checkpointed.AddBalance(addr1, uint256.NewInt(10)))
	require.NoError(t, checkpointed.DiscardCheckpoint())

	db, err := direct.GetBalance(addr1)
	require.NoError(t, err)
	cb, err := checkpointed.GetBalance(addr1)
	require.NoError(t, err)
	require.True(t, db.Eq(cb))
}

// Invariant 3: oldest-wins merge. Across two nested checkpoints touching the
// same address, reverting both must restore the value from before the
// outer checkpoint, not the intermediate one.
func TestOldestWinsMerge(t *testing.T) {
	sdb := newTestStateDB(t)
	require.NoError(t, sdb.CreateAccount(addr1, uint256.NewInt(1), 0, nil))

	sdb.Checkpoint() // outer
	require.NoError(t, sdb.SetBalance(addr1, uint256.NewInt(2)))
	sdb.Checkpoint() // inner
	require.NoError(t, sdb.SetBalance(addr1, uint256.NewInt(3)))
	require.NoError(t, sdb.DiscardCheckpoint()) // merge inner into outer

	bal, err := sdb.GetBalance(addr1)
	require.NoError(t, err)
	require.True(t, bal.Eq(uint256.NewInt(3)), "discard keeps the live (latest) value")

	require.NoError(t, sdb.RevertCheckpoint()) // revert outer: must restore pre-outer value 1
	bal, err = sdb.GetBalance(addr1)
	require.NoError(t, err)
	require.True(t, bal.Eq(uint256.NewInt(1)))
}

// Invariant 4: commit idempotence. Committing with no dirty entries leaves
// Root() unchanged.
func TestCommitIdempotence(t *testing.T) {
	sdb := newTestStateDB(t)
	require.NoError(t, sdb.CreateAccount(addr1, uint256.NewInt(1), 1, nil))
	root1, err := sdb.Commit()
	require.NoError(t, err)

	root2, err := sdb.Commit()
	require.NoError(t, err)
	require.Equal(t, root1, root2)
}

// Invariant 5: root determinism. Two state databases that apply identical
// operation sequences commit to bitwise-equal roots.
func TestRootDeterminism(t *testing.T) {
	build := func() common.Hash {
		sdb := newTestStateDB(t)
		require.NoError(t, sdb.CreateAccount(addr1, uint256.NewInt(7), 1, []byte{0x60, 0x00}))
		require.NoError(t, sdb.SetState(addr1, key0, *uint256.NewInt(42)))
		require.NoError(t, sdb.AddBalance(addr2, uint256.NewInt(3)))
		root, err := sdb.Commit()
		require.NoError(t, err)
		return root
	}
	require.Equal(t, build(), build())
}

// Invariant 6: EIP-161. A zero-value touch of an empty account leaves it
// nonexistent; a nonzero-value touch of a nonexistent account creates it.
func TestEIP161Touch(t *testing.T) {
	sdb := newTestStateDB(t)
	require.NoError(t, sdb.CreateAccount(addr1, new(uint256.Int), 0, nil)) // empty
	require.NoError(t, sdb.Touch(addr1))
	_, err := sdb.Commit()
	require.NoError(t, err)
	exists, err := sdb.Exist(addr1)
	require.NoError(t, err)
	require.False(t, exists, "touched empty account must not survive commit")

	require.NoError(t, sdb.AddBalance(addr2, uint256.NewInt(5)))
	_, err = sdb.Commit()
	require.NoError(t, err)
	exists, err = sdb.Exist(addr2)
	require.NoError(t, err)
	require.True(t, exists)
	nonce, err := sdb.GetNonce(addr2)
	require.NoError(t, err)
	require.Zero(t, nonce)
}

// Invariant: self-destruct drains the balance to the beneficiary and
// tombstones the account at commit.
func TestSelfDestructDrainsAndTombstones(t *testing.T) {
	sdb := newTestStateDB(t)
	require.NoError(t, sdb.CreateAccount(addr1, uint256.NewInt(50), 1, nil))
	require.NoError(t, sdb.SelfDestruct(addr1, addr2))
	require.True(t, sdb.HasSelfDestructed(addr1))

	bal1, err := sdb.GetBalance(addr1)
	require.NoError(t, err)
	require.True(t, bal1.IsZero())
	bal2, err := sdb.GetBalance(addr2)
	require.NoError(t, err)
	require.True(t, bal2.Eq(uint256.NewInt(50)))

	sdb.ClearSelfDestructs()
	_, err = sdb.Commit()
	require.NoError(t, err)
	exists, err := sdb.Exist(addr1)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestCommitRejectsOpenCheckpoint(t *testing.T) {
	sdb := newTestStateDB(t)
	sdb.Checkpoint()
	_, err := sdb.Commit()
	require.ErrorIs(t, err, ErrCommitWithOpenCheckpoint)
}

func TestSubBalanceInsufficientFunds(t *testing.T) {
	sdb := newTestStateDB(t)
	require.NoError(t, sdb.CreateAccount(addr1, uint256.NewInt(1), 0, nil))
	err := sdb.SubBalance(addr1, uint256.NewInt(2))
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestStorageZeroElision(t *testing.T) {
	sdb := newTestStateDB(t)
	require.NoError(t, sdb.CreateAccount(addr1, uint256.NewInt(1), 0, nil))
	require.NoError(t, sdb.SetState(addr1, key0, *uint256.NewInt(9)))
	_, err := sdb.Commit()
	require.NoError(t, err)

	require.NoError(t, sdb.SetState(addr1, key0, uint256.Int{}))
	root, err := sdb.Commit()
	require.NoError(t, err)

	fresh, err := New(root, sdb.db)
	require.NoError(t, err)
	v, err := fresh.GetState(addr1, key0)
	require.NoError(t, err)
	require.True(t, v.IsZero())
}
