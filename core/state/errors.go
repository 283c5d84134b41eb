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

package state

import "errors"

// Sentinel errors for the World State / State Object contract, grouped in
// one file per package following eth/etherror's flat var-block idiom.
var (
	// ErrCodeMissing is returned when a State Object's code_hash points at
	// a blob the code cache and backing database both lack.
	ErrCodeMissing = errors.New("state: code missing for known hash")

	// ErrInsufficientBalance is the BalanceError surfaced when SubBalance
	// or Transfer would drive a balance negative.
	ErrInsufficientBalance = errors.New("state: insufficient balance")

	// ErrCommitWithOpenCheckpoint is returned by Commit when the checkpoint
	// stack is non-empty; commit is only legal once the driver has resolved
	// every open frame.
	ErrCommitWithOpenCheckpoint = errors.New("state: commit called with an open checkpoint")

	// ErrNoCheckpoint is returned by DiscardCheckpoint/RevertCheckpoint when
	// the checkpoint stack is empty.
	ErrNoCheckpoint = errors.New("state: no open checkpoint")
)
