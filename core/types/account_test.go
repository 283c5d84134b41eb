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
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethcore-go/evmcore/common"
	"github.com/ethcore-go/evmcore/crypto"
)

// The Account Record's RLP encoding is the one persisted invariant this
// module must keep bit-compatible with Ethereum: the canonical empty
// account encodes to a fixed, well-known byte string.
func TestEmptyAccountCanonicalRLP(t *testing.T) {
	enc, err := NewEmptyStateAccount().EncodeRLP()
	require.NoError(t, err)
	require.Equal(t,
		"f8448080"+
			"a056e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421"+
			"a0c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hex.EncodeToString(enc))
}

func TestAccountRLPRoundTrip(t *testing.T) {
	in := &StateAccount{
		Nonce:    7,
		Balance:  new(big.Int).Lsh(big.NewInt(3), 100),
		Root:     crypto.Keccak256Hash([]byte("storage")),
		CodeHash: crypto.Keccak256([]byte{0x60, 0x00}),
	}
	enc, err := in.EncodeRLP()
	require.NoError(t, err)

	out, err := DecodeAccountRLP(enc)
	require.NoError(t, err)
	require.Equal(t, in.Nonce, out.Nonce)
	require.Zero(t, in.Balance.Cmp(out.Balance))
	require.Equal(t, in.Root, out.Root)
	require.Equal(t, in.CodeHash, out.CodeHash)
}

func TestAccountEmpty(t *testing.T) {
	acc := NewEmptyStateAccount()
	require.True(t, acc.Empty())

	acc.Nonce = 1
	require.False(t, acc.Empty())

	acc = NewEmptyStateAccount()
	acc.Balance = big.NewInt(1)
	require.False(t, acc.Empty())

	acc = NewEmptyStateAccount()
	acc.CodeHash = crypto.Keccak256([]byte{0x00})
	require.False(t, acc.Empty())
}

func TestAccountCopyIsDeep(t *testing.T) {
	orig := &StateAccount{Nonce: 1, Balance: big.NewInt(10), Root: common.Hash{0x01}, CodeHash: []byte{0xaa}}
	cp := orig.Copy()
	cp.Balance.SetInt64(999)
	cp.CodeHash[0] = 0xbb
	require.Zero(t, orig.Balance.Cmp(big.NewInt(10)))
	require.Equal(t, byte(0xaa), orig.CodeHash[0])
}
