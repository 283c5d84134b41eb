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

// Package rlp implements the subset of Ethereum's Recursive Length Prefix
// encoding this module needs: unsigned integers, byte strings, and structs
// of the above (the Account Record and CREATE address derivation inputs).
// It does not attempt interface-based encoder registration or streaming
// decode, only what core/types, trie and crypto actually call.
package rlp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"reflect"
)

// RawValue represents an already RLP-encoded value. Encode writes it to the
// output stream verbatim, without re-wrapping it as a byte string. The trie
// uses it to splice a child node's pre-computed encoding into its parent's
// list.
type RawValue []byte

// EncodeToBytes returns the RLP encoding of val.
func EncodeToBytes(val interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, val); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the RLP encoding of val to w.
func Encode(w *bytes.Buffer, val interface{}) error {
	return encodeValue(w, reflect.ValueOf(val))
}

var (
	rawValueType = reflect.TypeOf(RawValue(nil))
	bigIntType   = reflect.TypeOf(big.Int{})
)

func encodeValue(w *bytes.Buffer, v reflect.Value) error {
	if v.Type() == rawValueType {
		w.Write(v.Bytes())
		return nil
	}
	// big.Int must be caught before the Struct kind below would walk its
	// unexported fields and emit an empty list.
	if v.Type() == bigIntType {
		bi := v.Interface().(big.Int)
		return encodeBigInt(w, &bi)
	}
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return encodeValue(w, reflect.ValueOf(uint64(0)))
		}
		return encodeValue(w, v.Elem())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return encodeUint(w, v.Uint())
	case reflect.String:
		return encodeBytes(w, []byte(v.String()))
	case reflect.Bool:
		if v.Bool() {
			return encodeUint(w, 1)
		}
		return encodeUint(w, 0)
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return encodeBytes(w, toBytes(v))
		}
		return encodeList(w, v)
	case reflect.Struct:
		return encodeStruct(w, v)
	case reflect.Interface:
		if v.IsNil() {
			return encodeBytes(w, nil)
		}
		return encodeValue(w, v.Elem())
	default:
		return fmt.Errorf("rlp: unsupported kind %s", v.Kind())
	}
}

func toBytes(v reflect.Value) []byte {
	if v.Kind() == reflect.Slice {
		return v.Bytes()
	}
	b := make([]byte, v.Len())
	for i := 0; i < v.Len(); i++ {
		b[i] = byte(v.Index(i).Uint())
	}
	return b
}

func encodeBigInt(w *bytes.Buffer, bi *big.Int) error {
	if bi == nil {
		return encodeBytes(w, nil)
	}
	if bi.Sign() == 0 {
		return encodeBytes(w, nil)
	}
	return encodeBytes(w, bi.Bytes())
}

func encodeUint(w *bytes.Buffer, i uint64) error {
	if i == 0 {
		return encodeBytes(w, nil)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], i)
	n := 0
	for n < 8 && buf[n] == 0 {
		n++
	}
	return encodeBytes(w, buf[n:])
}

func encodeBytes(w *bytes.Buffer, b []byte) error {
	switch {
	case len(b) == 1 && b[0] <= 0x7f:
		w.WriteByte(b[0])
	case len(b) <= 55:
		w.WriteByte(0x80 + byte(len(b)))
		w.Write(b)
	default:
		writeLength(w, 0xb7, len(b))
		w.Write(b)
	}
	return nil
}

func encodeList(w *bytes.Buffer, v reflect.Value) error {
	var body bytes.Buffer
	for i := 0; i < v.Len(); i++ {
		if err := encodeValue(&body, v.Index(i)); err != nil {
			return err
		}
	}
	return writeListHeader(w, body.Bytes())
}

func encodeStruct(w *bytes.Buffer, v reflect.Value) error {
	var body bytes.Buffer
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).PkgPath != "" {
			continue // unexported
		}
		if err := encodeValue(&body, v.Field(i)); err != nil {
			return err
		}
	}
	return writeListHeader(w, body.Bytes())
}

func writeListHeader(w *bytes.Buffer, body []byte) error {
	switch {
	case len(body) <= 55:
		w.WriteByte(0xc0 + byte(len(body)))
	default:
		writeLength(w, 0xf7, len(body))
	}
	w.Write(body)
	return nil
}

func writeLength(w *bytes.Buffer, offset byte, length int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(length))
	n := 0
	for n < 8 && buf[n] == 0 {
		n++
	}
	lenOfLen := 8 - n
	w.WriteByte(offset + byte(lenOfLen))
	w.Write(buf[n:])
}
