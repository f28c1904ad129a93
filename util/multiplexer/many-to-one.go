// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package multiplexer

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("multiplexer has been closed")

// A many to one multiplexer
// Raw channels already fan in, but sending to a closed channel explodes,
// so this wraps the channel with a close-safe Send
type ManyToOne[T any] struct {
	outbound chan T
	lock     sync.RWMutex
	closed   bool
}

// NewManyToOne creates a new ManyToOne multiplexer
// All messages will be sent to the given channel
func NewManyToOne[T any](receiver chan T) *ManyToOne[T] {
	return &ManyToOne[T]{outbound: receiver}
}

// Send a message through the plexer
// Blocks until the receiver takes the message. Returns ErrClosed after Close.
func (m *ManyToOne[T]) Send(msg T) error {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.closed {
		return ErrClosed
	}
	m.outbound <- msg
	return nil
}

// Close the outbound channel and mark the plexer as closed
// Blocks until in-flight Send calls have delivered their message
func (m *ManyToOne[T]) Close() {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.outbound)
}
