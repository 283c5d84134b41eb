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

// Package common holds the fixed-size byte types shared by the trie, state
// and vm packages: 20-byte addresses and 32-byte words.
package common

import (
	"encoding/hex"
	"fmt"
)

const (
	// HashLength is the expected length of the word used to identify state
	// items (storage keys/values, hashes, roots).
	HashLength = 32
	// AddressLength is the expected length of an account address.
	AddressLength = 20
)

// Hash is a 32-byte word, used for hashes and storage keys/values.
type Hash [HashLength]byte

// BytesToHash returns a Hash containing the right-aligned bytes of b,
// truncating the left if b is longer than HashLength.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// Bytes returns the byte slice representation of h.
func (h Hash) Bytes() []byte { return h[:] }

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) String() string { return hexutil("0x", h[:]) }

func (h Hash) Hex() string { return h.String() }

// Address is a 20-byte account identifier.
type Address [AddressLength]byte

// BytesToAddress returns an Address containing the right-aligned bytes of b.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

func (a Address) Bytes() []byte { return a[:] }

func (a Address) IsZero() bool { return a == Address{} }

func (a Address) String() string { return hexutil("0x", a[:]) }

func (a Address) Hex() string { return a.String() }

// Hash returns the left-padded word form of the address, as used when an
// address is stored as a 32-byte trie key or RLP word.
func (a Address) Hash() Hash { return BytesToHash(a[:]) }

func hexutil(prefix string, b []byte) string {
	return prefix + hex.EncodeToString(b)
}

// HexToAddress parses a hex string (with or without "0x" prefix) into an
// Address, panicking on malformed input. Used only for well-known constants.
func HexToAddress(s string) Address { return BytesToAddress(fromHex(s)) }

// HexToHash parses a hex string into a Hash, panicking on malformed input.
func HexToHash(s string) Hash { return BytesToHash(fromHex(s)) }

func fromHex(s string) []byte {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("common: invalid hex string %q: %v", s, err))
	}
	return b
}
