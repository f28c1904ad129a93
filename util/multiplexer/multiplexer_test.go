package multiplexer

import (
	"sync"
	"testing"
	"time"
)

func TestManyToOneFansIn(t *testing.T) {
	sink := make(chan int, 16)
	plexer := NewManyToOne(sink)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			if err := plexer.Send(v); err != nil {
				t.Errorf("Send(%d) failed: %v", v, err)
			}
		}(i)
	}
	wg.Wait()
	plexer.Close()

	got := 0
	for range sink {
		got++
	}
	if got != 4 {
		t.Errorf("expected 4 messages, got %d", got)
	}
}

func TestManyToOneSendAfterClose(t *testing.T) {
	plexer := NewManyToOne(make(chan string, 1))
	plexer.Close()
	if err := plexer.Send("too late"); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	// Closing twice must not panic
	plexer.Close()
}

func TestOneToManyBroadcasts(t *testing.T) {
	plexer := NewOneToMany[int](4)
	a, err := plexer.MakeReceiver("a", 4)
	if err != nil {
		t.Fatalf("MakeReceiver(a): %v", err)
	}
	b, err := plexer.MakeReceiver("b", 4)
	if err != nil {
		t.Fatalf("MakeReceiver(b): %v", err)
	}
	go plexer.Run()

	plexer.GetSender() <- 7
	plexer.GetSender() <- 8

	for name, rec := range map[string]<-chan int{"a": a, "b": b} {
		if got := <-rec; got != 7 {
			t.Errorf("receiver %s got %d, expected 7", name, got)
		}
		if got := <-rec; got != 8 {
			t.Errorf("receiver %s got %d, expected 8", name, got)
		}
	}

	plexer.CloseSender()
	if _, open := <-a; open {
		t.Error("receiver should be closed after CloseSender")
	}
}

func TestOneToManyDuplicateReceiverName(t *testing.T) {
	plexer := NewOneToMany[int](1)
	if _, err := plexer.MakeReceiver("dup", 1); err != nil {
		t.Fatalf("first MakeReceiver: %v", err)
	}
	if _, err := plexer.MakeReceiver("dup", 1); err != ErrReceiverExists {
		t.Errorf("expected ErrReceiverExists, got %v", err)
	}
}

func TestOneToManyFullReceiverDropsInsteadOfStalling(t *testing.T) {
	plexer := NewOneToMany[int](8)
	slow, err := plexer.MakeReceiver("slow", 1)
	if err != nil {
		t.Fatalf("MakeReceiver: %v", err)
	}
	go plexer.Run()

	for i := 0; i < 8; i++ {
		plexer.GetSender() <- i
	}
	// Give the broadcast loop time to drain the inbound buffer
	time.Sleep(50 * time.Millisecond)
	plexer.CloseSender()

	got := []int{}
	for v := range slow {
		got = append(got, v)
	}
	if len(got) == 0 {
		t.Error("expected at least the first message to arrive")
	}
	if len(got) > 1 {
		t.Errorf("receiver with buffer 1 should have dropped messages, got %v", got)
	}
}
