package procsync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/statefork/statefork/procsync"
)

func TestPair_SendReceive(t *testing.T) {
	a, b := procsync.Pair()
	ctx := testContext(t)

	if err := a.Send(ctx, procsync.SaveRequest()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case msg := <-b.Messages():
		if msg.Type != procsync.TypeStateSave {
			t.Errorf("received type %s, want state-save", msg.Type)
		}
		if msg.ID == "" {
			t.Error("message has no ID")
		}
	case <-time.After(time.Second):
		t.Fatal("message did not arrive")
	}
}

func TestPair_CloseEndsPeerStream(t *testing.T) {
	a, b := procsync.Pair()
	a.Close()

	select {
	case _, ok := <-b.Messages():
		if ok {
			t.Error("received a message from a closed peer")
		}
	case <-time.After(time.Second):
		t.Fatal("peer stream did not end")
	}
}

func TestPair_SendAfterCloseFails(t *testing.T) {
	a, _ := procsync.Pair()
	a.Close()

	err := a.Send(context.Background(), procsync.SaveRequest())
	if !errors.Is(err, procsync.ErrChannelClosed) {
		t.Errorf("Send() after Close error = %v, want ErrChannelClosed", err)
	}

	// Close is idempotent.
	if err := a.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestPair_FaultRetainsFirstOnly(t *testing.T) {
	a, _ := procsync.Pair()

	first := errors.New("first")
	a.Fault(first)
	a.Fault(errors.New("second"))

	select {
	case err := <-a.Faults():
		if !errors.Is(err, first) {
			t.Errorf("Faults() = %v, want first fault", err)
		}
	default:
		t.Fatal("no fault available")
	}
}
