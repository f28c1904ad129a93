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

var ErrReceiverExists = errors.New("receiver with that name already exists")

// A one to many multiplexer: everything sent into the sender channel is
// broadcast to all registered receivers. Delivery is best effort — a
// receiver that isn't draining its channel misses messages instead of
// stalling the broadcast loop.
type OneToMany[T any] struct {
	inbound   chan T
	outbound  map[string]chan T // map to give names to outbound channels
	lock      sync.Mutex
	closeChan chan struct{}
	closed    bool
}

func NewOneToMany[T any](buffer int) *OneToMany[T] {
	return &OneToMany[T]{
		inbound:   make(chan T, buffer),
		outbound:  make(map[string]chan T),
		closeChan: make(chan struct{}),
	}
}

// Get the channel to send things into
func (o *OneToMany[T]) GetSender() chan<- T {
	return o.inbound
}

// Create a new named receiver for the plexer to broadcast to
// Don't close it manually, use CloseReceiver
func (o *OneToMany[T]) MakeReceiver(name string, buffer int) (<-chan T, error) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.closed {
		return nil, ErrClosed
	}
	if _, ok := o.outbound[name]; ok {
		return nil, ErrReceiverExists
	}
	rec := make(chan T, buffer)
	o.outbound[name] = rec
	return rec, nil
}

// Close the receiver with the given name and remove it from the plexer
func (o *OneToMany[T]) CloseReceiver(name string) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.closed {
		return
	}
	if rec, ok := o.outbound[name]; ok {
		close(rec)
		delete(o.outbound, name)
	}
}

// Run the broadcast loop until CloseSender is called
// Intended to run as a goroutine (`go plexer.Run()`)
func (o *OneToMany[T]) Run() {
	for {
		select {
		case msg := <-o.inbound:
			o.lock.Lock()
			for _, rec := range o.outbound {
				// Non-blocking: a full receiver drops the message
				select {
				case rec <- msg:
				default:
				}
			}
			o.lock.Unlock()
		case <-o.closeChan:
			o.lock.Lock()
			for _, rec := range o.outbound {
				close(rec)
			}
			o.outbound = make(map[string]chan T)
			o.closed = true
			o.lock.Unlock()
			return
		}
	}
}

// Stop the broadcast loop and close all receiver channels
func (o *OneToMany[T]) CloseSender() {
	close(o.closeChan)
}
