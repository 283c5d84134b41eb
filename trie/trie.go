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

// Package trie implements an in-memory Merkle-Patricia Trie: the
// authenticated KV store the World State layers its account and
// per-account storage tries over. Nodes live in a content-addressed
// in-memory Database; committing a Trie produces a deterministic root
// hash and persists every touched node. There is no disk-backed cache,
// pruning, or reference counting; persistence beyond process memory is
// not this package's concern.
package trie

import (
	"bytes"
	"errors"

	"github.com/ethcore-go/evmcore/common"
	"github.com/ethcore-go/evmcore/crypto"
	"github.com/ethcore-go/evmcore/rlp"
)

// ErrNotFound is returned when resolving a hashNode whose bytes are not
// present in the backing Database, an infrastructure error surfaced to
// callers rather than swallowed.
var ErrNotFound = errors.New("trie: missing node")

// ErrMalformed is returned when a node's stored encoding cannot be parsed.
var ErrMalformed = errors.New("trie: malformed node encoding")

// Trie is a single Merkle-Patricia Trie instance, mapping byte-string keys
// to byte-string values. Both the world trie (Address-hash → Account
// Record RLP) and each account's storage trie (storage-key-hash → RLP
// encoding of the U256's big-endian bytes) are *Trie instances over the
// same Database.
type Trie struct {
	db   *Database
	root node
}

// New opens the trie rooted at root. An EmptyRootHash opens a fresh, empty
// trie; any other hash is resolved lazily from db as nodes are visited.
func New(root common.Hash, db *Database) (*Trie, error) {
	t := &Trie{db: db}
	if root != (common.Hash{}) && root != crypto.EmptyRootHash {
		t.root = hashNode(root.Bytes())
	}
	return t, nil
}

// NewEmpty returns a fresh, empty trie over db.
func NewEmpty(db *Database) *Trie {
	t, _ := New(common.Hash{}, db)
	return t
}

// Get returns the value stored for key, or nil if absent.
func (t *Trie) Get(key []byte) ([]byte, error) {
	v, newroot, didResolve, err := t.get(t.root, keybytesToHex(key), 0)
	if err != nil {
		return nil, err
	}
	if didResolve {
		t.root = newroot
	}
	if v == nil {
		return nil, nil
	}
	return []byte(v.(valueNode)), nil
}

func (t *Trie) get(n node, key []byte, pos int) (value node, newnode node, didResolve bool, err error) {
	switch n := n.(type) {
	case nil:
		return nil, nil, false, nil
	case valueNode:
		return n, n, false, nil
	case *shortNode:
		if len(key)-pos < len(n.Key) || !bytes.Equal(n.Key, key[pos:pos+len(n.Key)]) {
			return nil, n, false, nil
		}
		value, newnode, didResolve, err = t.get(n.Val, key, pos+len(n.Key))
		if err == nil && didResolve {
			n = n.copy()
			n.Val = newnode
		}
		return value, n, didResolve, err
	case *fullNode:
		child := n.Children[key[pos]]
		value, newnode, didResolve, err = t.get(child, key, pos+1)
		if err == nil && didResolve {
			n = n.copy()
			n.Children[key[pos]] = newnode
		}
		return value, n, didResolve, err
	case hashNode:
		resolved, err := t.resolveHash(n)
		if err != nil {
			return nil, n, true, err
		}
		value, newnode, _, err := t.get(resolved, key, pos)
		return value, newnode, true, err
	default:
		panic("trie: invalid node type")
	}
}

func (n *shortNode) copy() *shortNode {
	cp := *n
	return &cp
}

func (t *Trie) resolveHash(n hashNode) (node, error) {
	enc, ok := t.db.get(common.BytesToHash(n))
	if !ok {
		return nil, ErrNotFound
	}
	return decodeNode(enc)
}

// Update associates key with value, inserting it into the trie.
func (t *Trie) Update(key, value []byte) error {
	k := keybytesToHex(key)
	if len(value) != 0 {
		n, err := t.insert(t.root, k, 0, valueNode(value))
		if err != nil {
			return err
		}
		t.root = n
		return nil
	}
	n, err := t.delete(t.root, k, 0)
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

func (t *Trie) insert(n node, key []byte, pos int, value node) (node, error) {
	if pos == len(key) {
		if v, ok := n.(valueNode); ok {
			if bytes.Equal([]byte(v), []byte(value.(valueNode))) {
				return n, nil
			}
		}
		return value, nil
	}
	switch n := n.(type) {
	case nil:
		return &shortNode{Key: append([]byte(nil), key[pos:]...), Val: value}, nil

	case *shortNode:
		matchlen := prefixLen(key[pos:], n.Key)
		if matchlen == len(n.Key) {
			nn, err := t.insert(n.Val, key, pos+matchlen, value)
			if err != nil {
				return nil, err
			}
			return &shortNode{Key: n.Key, Val: nn}, nil
		}
		branch := &fullNode{}
		var err error
		branch.Children[n.Key[matchlen]], err = t.insert(nil, n.Key, matchlen+1, n.Val)
		if err != nil {
			return nil, err
		}
		branch.Children[key[pos+matchlen]], err = t.insert(nil, key, pos+matchlen+1, value)
		if err != nil {
			return nil, err
		}
		if matchlen == 0 {
			return branch, nil
		}
		return &shortNode{Key: append([]byte(nil), key[pos:pos+matchlen]...), Val: branch}, nil

	case *fullNode:
		nn, err := t.insert(n.Children[key[pos]], key, pos+1, value)
		if err != nil {
			return nil, err
		}
		cp := n.copy()
		cp.Children[key[pos]] = nn
		return cp, nil

	case hashNode:
		resolved, err := t.resolveHash(n)
		if err != nil {
			return nil, err
		}
		return t.insert(resolved, key, pos, value)

	default:
		panic("trie: invalid node type")
	}
}

// Delete removes key from the trie.
func (t *Trie) Delete(key []byte) error {
	n, err := t.delete(t.root, keybytesToHex(key), 0)
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

func (t *Trie) delete(n node, key []byte, pos int) (node, error) {
	switch n := n.(type) {
	case nil:
		return nil, nil
	case valueNode:
		return nil, nil
	case *shortNode:
		matchlen := prefixLen(key[pos:], n.Key)
		if matchlen < len(n.Key) {
			return n, nil // key not present
		}
		if pos+matchlen == len(key) {
			return nil, nil
		}
		child, err := t.delete(n.Val, key, pos+matchlen)
		if err != nil {
			return nil, err
		}
		switch cn := child.(type) {
		case nil:
			return nil, nil
		case *shortNode:
			return &shortNode{Key: append(append([]byte(nil), n.Key...), cn.Key...), Val: cn.Val}, nil
		default:
			return &shortNode{Key: n.Key, Val: child}, nil
		}
	case *fullNode:
		cp := n.copy()
		nn, err := t.delete(cp.Children[key[pos]], key, pos+1)
		if err != nil {
			return nil, err
		}
		cp.Children[key[pos]] = nn
		collapsed := collapseFullNode(cp)
		// A lone surviving child referenced by hash is resolved, so that a
		// shortNode behind it is merged into the collapsed node as well.
		if sn, ok := collapsed.(*shortNode); ok {
			if hn, ok := sn.Val.(hashNode); ok {
				resolved, err := t.resolveHash(hn)
				if err != nil {
					return nil, err
				}
				if rs, ok := resolved.(*shortNode); ok {
					return &shortNode{Key: append(append([]byte(nil), sn.Key...), rs.Key...), Val: rs.Val}, nil
				}
			}
		}
		return collapsed, nil
	case hashNode:
		resolved, err := t.resolveHash(n)
		if err != nil {
			return nil, err
		}
		return t.delete(resolved, key, pos)
	default:
		panic("trie: invalid node type")
	}
}

// collapseFullNode reduces a fullNode with only one remaining child (and no
// value) into a shortNode, matching standard MPT compaction rules.
func collapseFullNode(n *fullNode) node {
	used, idx := 0, -1
	for i, c := range n.Children {
		if c != nil {
			used++
			idx = i
		}
	}
	if used != 1 {
		return n
	}
	if idx == 16 {
		return &shortNode{Key: []byte{16}, Val: n.Children[16]}
	}
	child := n.Children[idx]
	if cn, ok := child.(*shortNode); ok {
		return &shortNode{Key: append([]byte{byte(idx)}, cn.Key...), Val: cn.Val}
	}
	return &shortNode{Key: []byte{byte(idx)}, Val: child}
}

// Hash returns the root hash of the trie without persisting any node.
func (t *Trie) Hash() common.Hash {
	h, _ := t.hashRoot(nil)
	return h
}

// Commit computes the root hash and persists every touched node into the
// backing Database, analogous to the authenticated KV store's commit().
func (t *Trie) Commit() (common.Hash, error) {
	var puts []func()
	h, err := t.hashRoot(&puts)
	if err != nil {
		return common.Hash{}, err
	}
	for _, p := range puts {
		p()
	}
	return h, nil
}

// hashRoot is shared by Hash (puts == nil, nothing persisted) and Commit
// (puts collects deferred Database writes, applied only once the whole
// tree has hashed successfully).
func (t *Trie) hashRoot(puts *[]func()) (common.Hash, error) {
	if t.root == nil {
		return crypto.EmptyRootHash, nil
	}
	enc, _, err := hashNodeRec(t.root, t.db, puts)
	if err != nil {
		return common.Hash{}, err
	}
	if hn, ok := enc.(hashNode); ok {
		return common.BytesToHash(hn), nil
	}
	// Root encoding was small enough to inline; hash it explicitly so the
	// trie always reports a stable 32-byte root regardless of node size,
	// and persist it on commit. A root is always resolved by hash when
	// the trie is reopened, never inlined into a parent.
	raw, err := encodeNode(t.root, t.db, puts)
	if err != nil {
		return common.Hash{}, err
	}
	h := crypto.Keccak256Hash(raw)
	if puts != nil {
		rawCopy := append([]byte(nil), raw...)
		*puts = append(*puts, func() { t.db.put(h, rawCopy) })
	}
	return h, nil
}

// hashNodeRec returns the node collapsed to a hashNode if its RLP encoding
// is 32 bytes or more (standard MPT inlining rule), else the node's own
// encoding as raw bytes. The raw encoding is only ever inlined directly
// into a parent's child slot, never read back as a get() result.
func hashNodeRec(n node, db *Database, puts *[]func()) (node, []byte, error) {
	switch n := n.(type) {
	case nil:
		return nil, nil, nil
	case hashNode:
		return n, n, nil
	case valueNode:
		enc, err := rlp.EncodeToBytes([]byte(n))
		return n, enc, err
	case *shortNode:
		cn, childEnc, err := hashNodeRec(n.Val, db, puts)
		if err != nil {
			return nil, nil, err
		}
		enc, err := encodeShort(n.Key, childEnc, cn)
		if err != nil {
			return nil, nil, err
		}
		return finishHash(enc, db, puts)
	case *fullNode:
		var childEncs [17][]byte
		for i, c := range n.Children {
			_, ce, err := hashNodeRec(c, db, puts)
			if err != nil {
				return nil, nil, err
			}
			childEncs[i] = ce
		}
		enc, err := encodeFull(childEncs)
		if err != nil {
			return nil, nil, err
		}
		return finishHash(enc, db, puts)
	default:
		panic("trie: invalid node type")
	}
}

func finishHash(enc []byte, db *Database, puts *[]func()) (node, []byte, error) {
	if len(enc) < 32 {
		return nil, enc, nil
	}
	h := crypto.Keccak256Hash(enc)
	if puts != nil {
		encCopy := append([]byte(nil), enc...)
		*puts = append(*puts, func() { db.put(h, encCopy) })
	}
	return hashNode(h.Bytes()), h.Bytes(), nil
}

// encodeNode is used only for the top-level root, which is always hashed
// explicitly regardless of its inline size.
func encodeNode(n node, db *Database, puts *[]func()) ([]byte, error) {
	switch n := n.(type) {
	case *shortNode:
		cn, childEnc, err := hashNodeRec(n.Val, db, puts)
		if err != nil {
			return nil, err
		}
		return encodeShort(n.Key, childEnc, cn)
	case *fullNode:
		var childEncs [17][]byte
		for i, c := range n.Children {
			_, ce, err := hashNodeRec(c, db, puts)
			if err != nil {
				return nil, err
			}
			childEncs[i] = ce
		}
		return encodeFull(childEncs)
	case valueNode:
		return rlp.EncodeToBytes([]byte(n))
	default:
		return nil, errors.New("trie: unexpected root node type")
	}
}

func encodeShort(key []byte, childEnc []byte, child node) ([]byte, error) {
	compact := hexToCompact(key)
	var childRaw interface{}
	if hn, ok := child.(hashNode); ok {
		childRaw = []byte(hn)
	} else {
		childRaw = rlp.RawValue(childEnc)
	}
	return rlp.EncodeToBytes([]interface{}{compact, childRaw})
}

func encodeFull(childEncs [17][]byte) ([]byte, error) {
	items := make([]interface{}, 17)
	for i, ce := range childEncs {
		switch {
		case ce == nil:
			items[i] = []byte{}
		case i == 16:
			// Slot 16 is the branch's own value, already a complete RLP
			// string; splice it verbatim so a 32-byte value is not mistaken
			// for a hash reference on the way back in.
			items[i] = rlp.RawValue(ce)
		case len(ce) == 32:
			items[i] = ce
		default:
			items[i] = rlp.RawValue(ce)
		}
	}
	return rlp.EncodeToBytes(items)
}
