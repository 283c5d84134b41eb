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

package vm

import (
	"crypto/sha256"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"golang.org/x/crypto/ripemd160" //lint:ignore SA1019 required for the RIPEMD160 precompile

	"github.com/ethcore-go/evmcore/common"
	"github.com/ethcore-go/evmcore/crypto"
)

// PrecompiledContract is the native-contract interface: a gas function
// and a run function, nothing else.
type PrecompiledContract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

// precompiles is the fixed dispatch table for addresses 0x01-0x08, the
// Byzantium-era set plus MODEXP.
var precompiles = map[common.Address]PrecompiledContract{
	common.BytesToAddress([]byte{1}): ecrecoverContract{},
	common.BytesToAddress([]byte{2}): sha256Contract{},
	common.BytesToAddress([]byte{3}): ripemd160Contract{},
	common.BytesToAddress([]byte{4}): identityContract{},
	common.BytesToAddress([]byte{5}): bigModExpContract{},
	common.BytesToAddress([]byte{6}): bn256AddContract{},
	common.BytesToAddress([]byte{7}): bn256ScalarMulContract{},
	common.BytesToAddress([]byte{8}): bn256PairingContract{},
}

// runPrecompile charges pc's required gas against gas and, if affordable,
// runs it. A precompile failure (bad input) is reported as
// ErrExecutionReverted with zero gas left, so all gas supplied is consumed,
// matching the Yellow Paper's "precompile revert consumes all gas" rule.
func runPrecompile(pc PrecompiledContract, input []byte, gas uint64) ([]byte, uint64, error) {
	cost := pc.RequiredGas(input)
	if cost > gas {
		return nil, 0, ErrOutOfGas
	}
	out, err := pc.Run(input)
	if err != nil {
		return nil, 0, ErrExecutionReverted
	}
	return out, gas - cost, nil
}

const wordSize = 32

func numWords(n int) uint64 {
	return (uint64(n) + wordSize - 1) / wordSize
}

// rightPad returns input padded (or truncated) to exactly n bytes.
func rightPad(input []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, input)
	return out
}

// ecrecoverContract implements address 0x01: ECDSA public key recovery,
// delegating the curve work to crypto.Ecrecover. Any malformed input
// recovers nothing rather than erroring.
type ecrecoverContract struct{}

func (ecrecoverContract) RequiredGas([]byte) uint64 { return 3000 }

func (ecrecoverContract) Run(input []byte) ([]byte, error) {
	input = rightPad(input, 128)

	hash := input[0:32]
	v := input[63]
	r := new(big.Int).SetBytes(input[64:96])
	s := new(big.Int).SetBytes(input[96:128])

	for _, b := range input[32:63] {
		if b != 0 {
			return nil, nil
		}
	}
	if v != 27 && v != 28 {
		return nil, nil
	}
	if !crypto.ValidSignatureValues(v-27, r, s) {
		return nil, nil
	}

	// Ecrecover's r, s slots expect fixed 32-byte big-endian fields; re-pack
	// with zero-padding so short r/s values land at the right offset.
	packed := make([]byte, 65)
	rBytes, sBytes := r.Bytes(), s.Bytes()
	copy(packed[32-len(rBytes):32], rBytes)
	copy(packed[64-len(sBytes):64], sBytes)
	packed[64] = v - 27

	pub, err := crypto.Ecrecover(hash, packed)
	if err != nil {
		return nil, nil
	}
	addr := crypto.PubkeyToAddress(pub)
	out := make([]byte, 32)
	copy(out[12:], addr.Bytes())
	return out, nil
}

// sha256Contract implements address 0x02.
type sha256Contract struct{}

func (sha256Contract) RequiredGas(input []byte) uint64 {
	return numWords(len(input))*12 + 60
}

func (sha256Contract) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

// ripemd160Contract implements address 0x03, left-padded to 32 bytes per
// the Yellow Paper's output convention for this precompile.
type ripemd160Contract struct{}

func (ripemd160Contract) RequiredGas(input []byte) uint64 {
	return numWords(len(input))*120 + 600
}

func (ripemd160Contract) Run(input []byte) ([]byte, error) {
	h := ripemd160.New()
	h.Write(input)
	out := make([]byte, 32)
	copy(out[12:], h.Sum(nil))
	return out, nil
}

// identityContract implements address 0x04: the data-copy precompile.
type identityContract struct{}

func (identityContract) RequiredGas(input []byte) uint64 {
	return numWords(len(input))*3 + 15
}

func (identityContract) Run(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	copy(out, input)
	return out, nil
}

// bigModExpContract implements address 0x05 (EIP-198): arbitrary-precision
// modular exponentiation, metered on the pre-EIP-2565
// quadratic-complexity schedule.
type bigModExpContract struct{}

func (bigModExpContract) lengths(input []byte) (baseLen, expLen, modLen uint64) {
	input = rightPad(input, 96)
	baseLen = new(big.Int).SetBytes(input[0:32]).Uint64()
	expLen = new(big.Int).SetBytes(input[32:64]).Uint64()
	modLen = new(big.Int).SetBytes(input[64:96]).Uint64()
	return
}

func multComplexity(x uint64) uint64 {
	switch {
	case x <= 64:
		return x * x
	case x <= 1024:
		return x*x/4 + 96*x - 3072
	default:
		return x*x/16 + 480*x - 199680
	}
}

func (c bigModExpContract) RequiredGas(input []byte) uint64 {
	baseLen, expLen, modLen := c.lengths(input)
	if baseLen == 0 && modLen == 0 {
		return 0
	}

	var expHead *big.Int
	if uint64(len(input)) > 96+baseLen {
		rest := input[96+baseLen:]
		head := rightPad(rest, 32)
		if expLen < 32 {
			head = rightPad(rest[:min64(expLen, uint64(len(rest)))], int(expLen))
		}
		expHead = new(big.Int).SetBytes(head)
	} else {
		expHead = new(big.Int)
	}

	adjExpLen := uint64(0)
	if expHead.Sign() != 0 {
		adjExpLen = uint64(expHead.BitLen() - 1)
	}
	if expLen > 32 {
		adjExpLen += 8 * (expLen - 32)
	}
	if adjExpLen == 0 {
		adjExpLen = 1
	}

	m := baseLen
	if modLen > m {
		m = modLen
	}
	gas := multComplexity(m) * adjExpLen
	return gas / 20
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func (c bigModExpContract) Run(input []byte) ([]byte, error) {
	baseLen, expLen, modLen := c.lengths(input)
	if baseLen == 0 && modLen == 0 {
		return nil, nil
	}

	body := input
	if uint64(len(body)) < 96 {
		body = rightPad(body, 96)
	}
	body = body[96:]
	body = rightPad(body, int(baseLen+expLen+modLen))

	base := new(big.Int).SetBytes(body[0:baseLen])
	exp := new(big.Int).SetBytes(body[baseLen : baseLen+expLen])
	mod := new(big.Int).SetBytes(body[baseLen+expLen : baseLen+expLen+modLen])

	var result *big.Int
	if mod.Sign() == 0 {
		result = new(big.Int)
	} else {
		result = new(big.Int).Exp(base, exp, mod)
	}

	out := make([]byte, modLen)
	result.FillBytes(out)
	return out, nil
}

// bn256Point parses a 64-byte [x|y] alt_bn128 G1 point, treating an
// all-zero encoding as the point at infinity.
func bn256Point(input []byte) (bn254.G1Affine, error) {
	input = rightPad(input, 64)
	var p bn254.G1Affine
	allZero := true
	for _, b := range input {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return p, nil
	}
	if err := p.X.SetBytesCanonical(input[0:32]); err != nil {
		return p, err
	}
	if err := p.Y.SetBytesCanonical(input[32:64]); err != nil {
		return p, err
	}
	if !p.IsOnCurve() {
		return p, ErrExecutionReverted
	}
	return p, nil
}

func marshalPoint(p *bn254.G1Affine) []byte {
	out := make([]byte, 64)
	xb, yb := p.X.Bytes(), p.Y.Bytes()
	copy(out[0:32], xb[:])
	copy(out[32:64], yb[:])
	return out
}

// bn256AddContract implements address 0x06 (EIP-196): alt_bn128 point
// addition, using the gnark-crypto bn254 implementation for the curve
// arithmetic itself.
type bn256AddContract struct{}

func (bn256AddContract) RequiredGas([]byte) uint64 { return 500 }

func (bn256AddContract) Run(input []byte) ([]byte, error) {
	input = rightPad(input, 128)
	p1, err := bn256Point(input[0:64])
	if err != nil {
		return nil, err
	}
	p2, err := bn256Point(input[64:128])
	if err != nil {
		return nil, err
	}
	var sum bn254.G1Affine
	sum.Add(&p1, &p2)
	return marshalPoint(&sum), nil
}

// bn256ScalarMulContract implements address 0x07 (EIP-196).
type bn256ScalarMulContract struct{}

func (bn256ScalarMulContract) RequiredGas([]byte) uint64 { return 40000 }

func (bn256ScalarMulContract) Run(input []byte) ([]byte, error) {
	input = rightPad(input, 96)
	p, err := bn256Point(input[0:64])
	if err != nil {
		return nil, err
	}
	scalar := new(big.Int).SetBytes(input[64:96])
	var out bn254.G1Affine
	out.ScalarMultiplication(&p, scalar)
	return marshalPoint(&out), nil
}

// bn256PairingContract implements address 0x08 (EIP-197): the alt_bn128
// pairing check. Each 192-byte input group is a G1 point followed by a G2
// point, G2's two Fq2 coordinates each encoded imaginary-part-first.
type bn256PairingContract struct{}

func (bn256PairingContract) RequiredGas(input []byte) uint64 {
	return 100000 + uint64(len(input)/192)*80000
}

func (bn256PairingContract) Run(input []byte) ([]byte, error) {
	if len(input)%192 != 0 {
		return nil, ErrExecutionReverted
	}
	out := make([]byte, 32)
	if len(input) == 0 {
		out[31] = 1
		return out, nil
	}

	n := len(input) / 192
	g1s := make([]bn254.G1Affine, 0, n)
	g2s := make([]bn254.G2Affine, 0, n)
	for i := 0; i < n; i++ {
		chunk := input[i*192 : i*192+192]
		p, err := bn256Point(chunk[0:64])
		if err != nil {
			return nil, err
		}

		var q bn254.G2Affine
		allZero := true
		for _, b := range chunk[64:192] {
			if b != 0 {
				allZero = false
				break
			}
		}
		if !allZero {
			if err := q.X.A1.SetBytesCanonical(chunk[64:96]); err != nil {
				return nil, err
			}
			if err := q.X.A0.SetBytesCanonical(chunk[96:128]); err != nil {
				return nil, err
			}
			if err := q.Y.A1.SetBytesCanonical(chunk[128:160]); err != nil {
				return nil, err
			}
			if err := q.Y.A0.SetBytesCanonical(chunk[160:192]); err != nil {
				return nil, err
			}
			if !q.IsInSubGroup() {
				return nil, ErrExecutionReverted
			}
		}

		g1s = append(g1s, p)
		g2s = append(g2s, q)
	}

	ok, err := bn254.PairingCheck(g1s, g2s)
	if err != nil {
		return nil, err
	}
	if ok {
		out[31] = 1
	}
	return out, nil
}
