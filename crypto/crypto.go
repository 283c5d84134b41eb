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

// Package crypto provides the hashing and signature-recovery primitives the
// rest of this module treats as external collaborators per its scope: the
// default Keccak256 hasher, an alternate blake2b hasher selectable at
// construction time (the "Hasher" build-time knob from the external
// interfaces), and secp256k1 ECRECOVER used by the ECRECOVER precompile.
package crypto

import (
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/ethcore-go/evmcore/common"
	"github.com/ethcore-go/evmcore/rlp"
)

// HasherKind selects the Hasher implementation that NewHasher returns.
// Address derivation (CreateAddress, CreateAddress2), the trie and the
// state package always call Keccak256 directly and do not consult a Hasher.
type HasherKind int

const (
	// Keccak256Hasher is the default; Blake2bHasher selects blake2b-256.
	Keccak256Hasher HasherKind = iota
	Blake2bHasher
)

// Hasher computes a 32-byte digest over its inputs. It is a standalone
// primitive: no other package in this module derives hashes through it.
type Hasher interface {
	Hash(data ...[]byte) common.Hash
}

type keccakHasher struct{}

func (keccakHasher) Hash(data ...[]byte) common.Hash {
	return Keccak256Hash(data...)
}

type blake2bHasher struct{}

func (blake2bHasher) Hash(data ...[]byte) common.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err) // only fails on a bad key, and we pass none
	}
	for _, d := range data {
		h.Write(d)
	}
	return common.BytesToHash(h.Sum(nil))
}

// NewHasher returns the Hasher implementation for kind.
func NewHasher(kind HasherKind) Hasher {
	if kind == Blake2bHasher {
		return blake2bHasher{}
	}
	return keccakHasher{}
}

// Keccak256 returns the Keccak256 digest of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Keccak256Hash is Keccak256 wrapped as a common.Hash.
func Keccak256Hash(data ...[]byte) common.Hash {
	return common.BytesToHash(Keccak256(data...))
}

// EmptyCodeHash is keccak256(""), the code hash of an account with no code.
var EmptyCodeHash = Keccak256Hash(nil)

// EmptyRootHash is the root hash of an empty Merkle-Patricia trie, i.e.
// keccak256(rlp(nil)) = keccak256(0x80).
var EmptyRootHash = Keccak256Hash([]byte{0x80})

// secp256k1N is the order of the secp256k1 curve's base point; ECRECOVER
// signatures must carry r, s in [1, secp256k1N).
var secp256k1N, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)

// ErrInvalidSignature is returned by Ecrecover when sig is not 65 bytes
// long (bounds on r, s and v are checked by ValidSignatureValues); the
// precompile itself never surfaces this as an error, it maps it to an
// empty return value.
var ErrInvalidSignature = errors.New("crypto: invalid signature")

// ValidSignatureValues reports whether v, r, s satisfy the bounds the
// Yellow Paper (Appendix F) requires of an ECDSA recoverable signature:
// v is the recovery id in {0,1} (ECRECOVER's 27/28 with 27 subtracted by
// the caller), r and s in [1, secp256k1N).
func ValidSignatureValues(v byte, r, s *big.Int) bool {
	if r == nil || s == nil {
		return false
	}
	if r.Sign() <= 0 || s.Sign() <= 0 {
		return false
	}
	if r.Cmp(secp256k1N) >= 0 || s.Cmp(secp256k1N) >= 0 {
		return false
	}
	return v == 0 || v == 1
}

// Ecrecover recovers the uncompressed public key that produced sig over
// hash. sig is the 65-byte [R || S || V] signature with V in {0,1}.
func Ecrecover(hash, sig []byte) ([]byte, error) {
	if len(sig) != 65 {
		return nil, ErrInvalidSignature
	}
	// btcec expects the recovery-id-prefixed compact signature format.
	compact := make([]byte, 65)
	compact[0] = sig[64] + 27
	copy(compact[1:], sig[:64])
	pub, _, err := ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, err
	}
	return pub.SerializeUncompressed(), nil
}

// PubkeyToAddress derives the 20-byte address from an uncompressed
// (0x04-prefixed, 65-byte) secp256k1 public key: the low 20 bytes of
// keccak256 of the 64-byte X||Y portion.
func PubkeyToAddress(pub []byte) common.Address {
	if len(pub) == 65 && pub[0] == 4 {
		pub = pub[1:]
	}
	return common.BytesToAddress(Keccak256(pub)[12:])
}

// CreateAddress derives the address of a contract created via CREATE:
// keccak256(rlp([sender, nonce]))[12:].
func CreateAddress(sender common.Address, nonce uint64) common.Address {
	enc, err := rlp.EncodeToBytes([]interface{}{sender.Bytes(), nonce})
	if err != nil {
		panic(err)
	}
	return common.BytesToAddress(Keccak256(enc)[12:])
}

// CreateAddress2 derives the address of a contract created via CREATE2
// (EIP-1014): keccak256(0xff ++ sender ++ salt ++ keccak256(initCode))[12:].
func CreateAddress2(sender common.Address, salt common.Hash, initCodeHash []byte) common.Address {
	data := Keccak256([]byte{0xff}, sender.Bytes(), salt.Bytes(), initCodeHash)
	return common.BytesToAddress(data[12:])
}
