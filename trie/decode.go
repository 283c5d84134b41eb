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

import "github.com/ethcore-go/evmcore/rlp"

// decodeNode reconstructs a node from its RLP encoding, as read back from
// the Database when a hashNode is dereferenced.
func decodeNode(buf []byte) (node, error) {
	elems, _, err := rlp.SplitList(buf)
	if err != nil {
		return nil, err
	}
	return decodeNodeFromElems(elems)
}

func decodeNodeFromElems(elems [][]byte) (node, error) {
	switch len(elems) {
	case 2:
		keyContent, _, err := rlp.SplitString(elems[0])
		if err != nil {
			return nil, err
		}
		key := compactToHex(keyContent)
		// The terminator nibble decides leaf vs extension: a leaf's second
		// element is always the stored value, never a child reference, so it
		// must not be length-sniffed by decodeRef (a 32-byte value would be
		// indistinguishable from a hash).
		if hasTerm(key) {
			content, _, err := rlp.SplitString(elems[1])
			if err != nil {
				return nil, err
			}
			return &shortNode{Key: key, Val: valueNode(content)}, nil
		}
		val, err := decodeRef(elems[1])
		if err != nil {
			return nil, err
		}
		return &shortNode{Key: key, Val: val}, nil
	case 17:
		var fn fullNode
		for i := 0; i < 16; i++ {
			child, err := decodeRef(elems[i])
			if err != nil {
				return nil, err
			}
			fn.Children[i] = child
		}
		// Slot 16 is always a value.
		content, _, err := rlp.SplitString(elems[16])
		if err != nil {
			return nil, err
		}
		if len(content) > 0 {
			fn.Children[16] = valueNode(content)
		}
		return &fn, nil
	default:
		return nil, ErrMalformed
	}
}

// decodeRef decodes one child reference: an embedded node (encoded as a
// list), a hash reference (a 32-byte string), or an empty child (empty
// string). Values never pass through here; leaves and branch slot 16 are
// decoded by decodeNodeFromElems directly.
func decodeRef(raw []byte) (node, error) {
	if elems, _, err := rlp.SplitList(raw); err == nil {
		return decodeNodeFromElems(elems)
	}
	content, _, err := rlp.SplitString(raw)
	if err != nil {
		return nil, err
	}
	switch {
	case len(content) == 0:
		return nil, nil
	case len(content) == 32:
		return hashNode(content), nil
	default:
		return nil, ErrMalformed
	}
}
