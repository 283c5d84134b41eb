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

import (
	"sync"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/ethcore-go/evmcore/common"
)

// codeCacheBytes bounds the in-memory fast-path code cache; the
// authoritative blobs stay in-process, so the cache only exists to skip
// map+mutex traffic on hot contracts.
const codeCacheBytes = 64 * 1024 * 1024

// Database is the content-addressed node and code store behind every
// Trie: a map from node hash to its encoded bytes, purely in-memory,
// guarded by a mutex since a *Trie may be shared across a transaction's
// nested frames within one goroutine but read concurrently by callers that
// inspect committed roots. Code blobs additionally sit behind a fastcache
// fast path, since code is re-fetched on every cold state object and a
// repeatedly-called contract's code is the hottest read in this package.
type Database struct {
	mu    sync.RWMutex
	nodes map[common.Hash][]byte
	code  map[common.Hash][]byte

	codeCache *fastcache.Cache
}

// NewDatabase returns an empty node database.
func NewDatabase() *Database {
	return &Database{
		nodes:     make(map[common.Hash][]byte),
		code:      make(map[common.Hash][]byte),
		codeCache: fastcache.New(codeCacheBytes),
	}
}

func (db *Database) get(hash common.Hash) ([]byte, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	b, ok := db.nodes[hash]
	return b, ok
}

func (db *Database) put(hash common.Hash, enc []byte) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nodes[hash] = enc
}

// PutCode stores an immutable code blob under its keccak256 hash. Callers
// should dedupe by hash first (code cache), this just persists the bytes.
func (db *Database) PutCode(hash common.Hash, code []byte) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.code[hash] = code
	db.codeCache.Set(hash.Bytes(), code)
}

// GetCode returns the code blob for hash, if known, serving from the
// fastcache fast path before falling back to the authoritative map.
func (db *Database) GetCode(hash common.Hash) ([]byte, bool) {
	if c, ok := db.codeCache.HasGet(nil, hash.Bytes()); ok {
		return c, true
	}
	db.mu.RLock()
	c, ok := db.code[hash]
	db.mu.RUnlock()
	if ok {
		db.codeCache.Set(hash.Bytes(), c)
	}
	return c, ok
}
