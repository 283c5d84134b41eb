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

import (
	"encoding/binary"
	"errors"
	"math/big"
	"reflect"
)

// ErrMalformed is returned for any structurally invalid RLP input.
var ErrMalformed = errors.New("rlp: malformed input")

// DecodeBytes parses the RLP-encoded data in b into val, which must be a
// non-nil pointer.
func DecodeBytes(b []byte, val interface{}) error {
	item, rest, err := splitItem(b)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return ErrMalformed
	}
	rv := reflect.ValueOf(val)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("rlp: Decode requires a non-nil pointer")
	}
	return decodeInto(item, rv.Elem())
}

// item is one parsed RLP value: either a byte string or an ordered list of
// sub-items (the raw, still-encoded bytes of each).
type item struct {
	isList bool
	data   []byte // payload bytes for a string; concatenated element encodings for a list
}

func splitItem(b []byte) (item, []byte, error) {
	if len(b) == 0 {
		return item{}, nil, ErrMalformed
	}
	h := b[0]
	switch {
	case h <= 0x7f:
		return item{data: b[:1]}, b[1:], nil
	case h <= 0xb7:
		size := int(h - 0x80)
		if len(b) < 1+size {
			return item{}, nil, ErrMalformed
		}
		return item{data: b[1 : 1+size]}, b[1+size:], nil
	case h <= 0xbf:
		lenOfLen := int(h - 0xb7)
		size, rest, err := readLength(b[1:], lenOfLen)
		if err != nil {
			return item{}, nil, err
		}
		if len(rest) < size {
			return item{}, nil, ErrMalformed
		}
		return item{data: rest[:size]}, rest[size:], nil
	case h <= 0xf7:
		size := int(h - 0xc0)
		if len(b) < 1+size {
			return item{}, nil, ErrMalformed
		}
		return item{isList: true, data: b[1 : 1+size]}, b[1+size:], nil
	default:
		lenOfLen := int(h - 0xf7)
		size, rest, err := readLength(b[1:], lenOfLen)
		if err != nil {
			return item{}, nil, err
		}
		if len(rest) < size {
			return item{}, nil, ErrMalformed
		}
		return item{isList: true, data: rest[:size]}, rest[size:], nil
	}
}

func readLength(b []byte, lenOfLen int) (int, []byte, error) {
	if len(b) < lenOfLen {
		return 0, nil, ErrMalformed
	}
	var buf [8]byte
	copy(buf[8-lenOfLen:], b[:lenOfLen])
	return int(binary.BigEndian.Uint64(buf[:])), b[lenOfLen:], nil
}

// listElems splits a list item's payload into its element items.
func listElems(payload []byte) ([]item, error) {
	var elems []item
	for len(payload) > 0 {
		it, rest, err := splitItem(payload)
		if err != nil {
			return nil, err
		}
		elems = append(elems, it)
		payload = rest
	}
	return elems, nil
}

func decodeInto(it item, v reflect.Value) error {
	if v.Type() == bigIntType {
		if it.isList {
			return ErrMalformed
		}
		bi := new(big.Int).SetBytes(it.data)
		v.Set(reflect.ValueOf(*bi))
		return nil
	}
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return decodeInto(it, v.Elem())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if it.isList {
			return ErrMalformed
		}
		v.SetUint(bytesToUint64(it.data))
		return nil
	case reflect.String:
		if it.isList {
			return ErrMalformed
		}
		v.SetString(string(it.data))
		return nil
	case reflect.Bool:
		if it.isList {
			return ErrMalformed
		}
		v.SetBool(bytesToUint64(it.data) != 0)
		return nil
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			if it.isList {
				return ErrMalformed
			}
			v.SetBytes(append([]byte(nil), it.data...))
			return nil
		}
		elems, err := listElems(it.data)
		if err != nil {
			return err
		}
		s := reflect.MakeSlice(v.Type(), len(elems), len(elems))
		for i, e := range elems {
			if err := decodeInto(e, s.Index(i)); err != nil {
				return err
			}
		}
		v.Set(s)
		return nil
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			if it.isList || len(it.data) > v.Len() {
				return ErrMalformed
			}
			reflect.Copy(v, reflect.ValueOf(it.data))
			return nil
		}
		elems, err := listElems(it.data)
		if err != nil {
			return err
		}
		for i := 0; i < v.Len() && i < len(elems); i++ {
			if err := decodeInto(elems[i], v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		if !it.isList {
			return ErrMalformed
		}
		elems, err := listElems(it.data)
		if err != nil {
			return err
		}
		t := v.Type()
		fi := 0
		for i := 0; i < t.NumField() && fi < len(elems); i++ {
			if t.Field(i).PkgPath != "" {
				continue
			}
			if err := decodeInto(elems[fi], v.Field(i)); err != nil {
				return err
			}
			fi++
		}
		return nil
	default:
		return errors.New("rlp: unsupported kind " + v.Kind().String())
	}
}

func bytesToUint64(b []byte) uint64 {
	var buf [8]byte
	copy(buf[8-len(b):], b)
	return binary.BigEndian.Uint64(buf[:])
}
