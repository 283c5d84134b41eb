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

package rlp

// SplitString parses b as a single RLP byte string, returning its content
// and the bytes following it. Used by trie's node decoder to pull apart a
// stored node's encoding without going through the reflective Decode path.
func SplitString(b []byte) (content, rest []byte, err error) {
	it, rest, err := splitItem(b)
	if err != nil {
		return nil, nil, err
	}
	if it.isList {
		return nil, nil, ErrMalformed
	}
	return it.data, rest, nil
}

// SplitList parses b as a single RLP list, returning the still-encoded
// bytes of each element and the bytes following the list.
func SplitList(b []byte) (elems [][]byte, rest []byte, err error) {
	it, rest, err := splitItem(b)
	if err != nil {
		return nil, nil, err
	}
	if !it.isList {
		return nil, nil, ErrMalformed
	}
	items, err := listElems(it.data)
	if err != nil {
		return nil, nil, err
	}
	out := make([][]byte, len(items))
	payload := it.data
	for i, e := range items {
		out[i] = rawEncodingOf(e, payload)
		_ = i
	}
	return out, rest, nil
}

// rawEncodingOf reconstructs the exact encoded bytes of an already-split
// item by re-encoding its header; simpler than threading offsets through
// splitItem, and these structures are small (trie nodes have ≤17 children).
func rawEncodingOf(it item, _ []byte) []byte {
	if !it.isList {
		return encodeStringRaw(it.data)
	}
	return encodeListRaw(it.data)
}

func encodeStringRaw(data []byte) []byte {
	var tmp []byte
	switch {
	case len(data) == 1 && data[0] <= 0x7f:
		tmp = append(tmp, data[0])
	case len(data) <= 55:
		tmp = append(tmp, 0x80+byte(len(data)))
		tmp = append(tmp, data...)
	default:
		tmp = appendLong(tmp, 0xb7, len(data))
		tmp = append(tmp, data...)
	}
	return tmp
}

func encodeListRaw(payload []byte) []byte {
	var tmp []byte
	switch {
	case len(payload) <= 55:
		tmp = append(tmp, 0xc0+byte(len(payload)))
	default:
		tmp = appendLong(tmp, 0xf7, len(payload))
	}
	return append(tmp, payload...)
}

func appendLong(dst []byte, offset byte, length int) []byte {
	var buf [8]byte
	for i := 7; i >= 0; i-- {
		buf[i] = byte(length)
		length >>= 8
	}
	n := 0
	for n < 8 && buf[n] == 0 {
		n++
	}
	dst = append(dst, offset+byte(8-n))
	return append(dst, buf[n:]...)
}
