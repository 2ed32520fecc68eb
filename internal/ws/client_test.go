package ws

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"campuschat/internal/chat"
)

// A peer that stops reading eventually kills the write pump on a write
// deadline. The read loop may be blocked queueing an ack at that moment and
// has to unblock, or the session's deferred cleanup can never run.
func TestAckUnblocksAfterWriterExit(t *testing.T) {
	c := newClient(nil, chat.Identity{}, nil, nil, zap.NewNop())

	// Fill the ack queue the way a pipelining client does when nothing is
	// draining it.
	for i := 0; i < ackQueueDepth; i++ {
		c.ack(chat.Event{Type: chat.EventAccepted})
	}

	released := make(chan struct{})
	go func() {
		c.ack(chat.Event{Type: chat.EventAccepted})
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("ack returned with a full queue and a live writer")
	case <-time.After(50 * time.Millisecond):
	}

	// What writePump's defer does once the socket write errors out.
	close(c.writerGone)

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("ack stayed blocked after the writer exited")
	}
}
