package delivery

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/evanreyes/drawcast/internal/session"
)

func TestCoordinatorCompressesAndDeliversViaReliableWriter(t *testing.T) {
	sess := session.New("s1")

	var mu sync.Mutex
	var received [][]byte
	sess.SetReliableWriter(func(frame []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, frame)
		return nil
	})

	c, err := NewCoordinator(sess)
	if err != nil {
		t.Fatal(err)
	}
	go c.Run()

	sess.Outbound <- []byte("hello frame")
	time.Sleep(50 * time.Millisecond)
	sess.CloseOutbound()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("coordinator did not stop after outbound closed")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected exactly one delivered frame, got %d", len(received))
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	got, err := dec.DecodeAll(received[0], nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("hello frame")) {
		t.Fatalf("round-trip mismatch: got %q", got)
	}
}

func TestCoordinatorPrefersUnreliableWriter(t *testing.T) {
	sess := session.New("s1")

	var unreliableHit, reliableHit bool
	var mu sync.Mutex
	sess.SetUnreliableWriter(func(frame []byte) error {
		mu.Lock()
		unreliableHit = true
		mu.Unlock()
		return nil
	})
	sess.SetReliableWriter(func(frame []byte) error {
		mu.Lock()
		reliableHit = true
		mu.Unlock()
		return nil
	})

	c, err := NewCoordinator(sess)
	if err != nil {
		t.Fatal(err)
	}
	go c.Run()

	sess.Outbound <- []byte("frame")
	time.Sleep(50 * time.Millisecond)
	sess.CloseOutbound()
	<-c.Done()

	mu.Lock()
	defer mu.Unlock()
	if !unreliableHit || reliableHit {
		t.Fatalf("expected unreliable writer used exclusively, unreliable=%v reliable=%v", unreliableHit, reliableHit)
	}
}

func TestCoordinatorFallsBackWhenUnreliableWriterErrors(t *testing.T) {
	sess := session.New("s1")

	var mu sync.Mutex
	reliableHit := false
	sess.SetUnreliableWriter(func(frame []byte) error { return errUnreliableClosed })
	sess.SetReliableWriter(func(frame []byte) error {
		mu.Lock()
		reliableHit = true
		mu.Unlock()
		return nil
	})

	c, err := NewCoordinator(sess)
	if err != nil {
		t.Fatal(err)
	}
	go c.Run()

	sess.Outbound <- []byte("frame")
	time.Sleep(50 * time.Millisecond)
	sess.CloseOutbound()
	<-c.Done()

	mu.Lock()
	defer mu.Unlock()
	if !reliableHit {
		t.Fatalf("expected fallback to reliable writer on unreliable error")
	}
}

type coordErr string

func (e coordErr) Error() string { return string(e) }

const errUnreliableClosed = coordErr("data channel closed")
