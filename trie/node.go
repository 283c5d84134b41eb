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

package trie

// node is the interface satisfied by every trie node kind.
type node interface {
	fstring(indent string) string
}

type (
	// fullNode is a 17-way branch: 16 nibble children plus a value slot for
	// a key that terminates exactly at this node.
	fullNode struct {
		Children [17]node
	}

	// shortNode is an extension or leaf node: Key holds the shared nibble
	// path (with the trailing terminator nibble if it is a leaf), Val is
	// either a child node (extension) or a valueNode (leaf).
	shortNode struct {
		Key []byte
		Val node
	}

	// hashNode is a reference to a node stored in the Database, keyed by
	// its 32-byte hash.
	hashNode []byte

	// valueNode is a leaf's stored value (here, always an RLP-encoded
	// Account Record or the RLP encoding of a storage slot's big-endian
	// value bytes).
	valueNode []byte
)

func (n *fullNode) copy() *fullNode {
	cp := *n
	return &cp
}

func (n *fullNode) fstring(ind string) string  { return "fullNode" }
func (n *shortNode) fstring(ind string) string { return "shortNode" }
func (n hashNode) fstring(ind string) string   { return "hashNode" }
func (n valueNode) fstring(ind string) string  { return "valueNode" }
