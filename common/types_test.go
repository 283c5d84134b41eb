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

package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytesToHashAlignment(t *testing.T) {
	h := BytesToHash([]byte{0x01, 0x02})
	require.Equal(t, byte(0x01), h[30])
	require.Equal(t, byte(0x02), h[31])

	long := make([]byte, 40)
	long[39] = 0xff
	require.Equal(t, byte(0xff), BytesToHash(long)[31], "overlong input keeps the rightmost bytes")
}

func TestBytesToAddressAlignment(t *testing.T) {
	a := BytesToAddress([]byte{0xab})
	require.Equal(t, byte(0xab), a[19])
	require.True(t, BytesToAddress(nil).IsZero())
}

func TestHexRoundTrip(t *testing.T) {
	addr := HexToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	require.Equal(t, "0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0", addr.Hex())

	h := HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	require.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", h.Hex())
}

func TestAddressHashLeftPads(t *testing.T) {
	addr := HexToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	h := addr.Hash()
	require.Equal(t, make([]byte, 12), h.Bytes()[:12])
	require.Equal(t, addr.Bytes(), h.Bytes()[12:])
}
