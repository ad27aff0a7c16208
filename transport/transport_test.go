package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramingMultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	msg1 := []byte(`{"method":"one"}`)
	msg2 := []byte(`{"method":"two"}`)

	if err := writeMessage(&buf, "application/json", msg1); err != nil {
		t.Fatalf("write message 1: %v", err)
	}
	if err := writeMessage(&buf, "application/msgpack", msg2); err != nil {
		t.Fatalf("write message 2: %v", err)
	}

	reader := bufio.NewReader(bytes.NewReader(buf.Bytes()))
	got1, ct1, err := readMessage(reader)
	if err != nil {
		t.Fatalf("read message 1: %v", err)
	}
	got2, ct2, err := readMessage(reader)
	if err != nil {
		t.Fatalf("read message 2: %v", err)
	}

	if string(got1) != string(msg1) || ct1 != "application/json" {
		t.Fatalf("unexpected message 1: %s (%s)", got1, ct1)
	}
	if string(got2) != string(msg2) || ct2 != "application/msgpack" {
		t.Fatalf("unexpected message 2: %s (%s)", got2, ct2)
	}
}

func TestFramingRequiresContentLength(t *testing.T) {
	_, _, err := readMessage(bufio.NewReader(bytes.NewBufferString("Content-Type: x\r\n\r\n{}")))
	assert.ErrorContains(t, err, "missing Content-Length")
}

// host is the far end of a net.Pipe. Each request is passed to respond;
// a nil reply means no answer.
type host struct {
	conn     net.Conn
	requests chan frame
}

func newPair(t *testing.T, respond func(f frame) *outgoing, opts ...Option) (*Client, *host) {
	t.Helper()
	a, b := net.Pipe()
	c := NewClient(a, opts...)
	h := &host{conn: b, requests: make(chan frame, 16)}

	go c.Run(context.Background())
	go func() {
		r := bufio.NewReader(b)
		for {
			payload, contentType, err := readMessage(r)
			if err != nil {
				return
			}
			codec, _ := codecForContentType(contentType)
			f, err := codec.decodeFrame(payload)
			if err != nil {
				return
			}
			h.requests <- f
			if out := respond(f); out != nil {
				out.ID = f.id
				h.send(codec, *out)
			}
		}
	}()
	t.Cleanup(func() {
		c.Close()
		b.Close()
	})
	return c, h
}

func (h *host) send(codec Codec, msg outgoing) {
	payload, _ := codec.Marshal(msg)
	_ = writeMessage(h.conn, codec.ContentType(), payload)
}

func noReply(frame) *outgoing { return nil }

func TestDocumentLoadAndSaveJSON(t *testing.T) {
	var saved Document
	c, _ := newPair(t, func(f frame) *outgoing {
		switch f.method {
		case MethodLoad:
			return &outgoing{Result: Document{Path: "a.mmd", Source: "graph TD\n"}}
		case MethodSave:
			_ = JSON.Unmarshal(f.params, &saved)
			return &outgoing{Result: true}
		}
		return &outgoing{Error: &Error{Code: 1, Message: "unknown method"}}
	})
	svc := NewDocumentService(c, "a.mmd")

	source, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "graph TD\n", source)

	require.NoError(t, svc.Save(context.Background(), "graph LR\n"))
	assert.Equal(t, Document{Path: "a.mmd", Source: "graph LR\n"}, saved)
}

func TestMsgpackCodec(t *testing.T) {
	c, h := newPair(t, func(f frame) *outgoing {
		return &outgoing{Result: Document{Source: "graph LR\n"}}
	}, WithCodec(Msgpack))

	source, err := NewDocumentService(c, "b.mmd").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "graph LR\n", source)

	req := <-h.requests
	var params Document
	require.NoError(t, Msgpack.Unmarshal(req.params, &params))
	assert.Equal(t, "b.mmd", params.Path)
}

func TestErrorPayload(t *testing.T) {
	c, _ := newPair(t, func(frame) *outgoing {
		return &outgoing{Error: &Error{Code: 404, Message: "no such document"}}
	})

	_, err := NewDocumentService(c, "missing.mmd").Load(context.Background())
	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 404, terr.Code)
	assert.Contains(t, err.Error(), "missing.mmd")
}

func TestCallTimeoutForgetsPendingCall(t *testing.T) {
	c, _ := newPair(t, noReply, WithTimeout(50*time.Millisecond))

	err := c.Call(context.Background(), "slow", nil, nil)
	assert.ErrorIs(t, err, ErrTimeout)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.pending)
}

func TestCloseRejectsPendingCalls(t *testing.T) {
	c, h := newPair(t, noReply)

	done := make(chan error, 1)
	go func() { done <- c.Call(context.Background(), "hang", nil, nil) }()

	<-h.requests
	require.NoError(t, c.Close())
	assert.ErrorIs(t, <-done, ErrClosed)
	assert.ErrorIs(t, c.Call(context.Background(), "after", nil, nil), ErrClosed)
}

func TestEventsLastHandlerWins(t *testing.T) {
	c, h := newPair(t, noReply)
	svc := NewDocumentService(c, "a.mmd")

	first := make(chan string, 1)
	second := make(chan string, 1)
	svc.OnChangedExternally(func(source string) { first <- source })
	svc.OnChangedExternally(func(source string) { second <- source })

	h.send(JSON, outgoing{Method: EventChanged, Params: Document{Path: "a.mmd", Source: "graph RL\n"}})

	select {
	case got := <-second:
		assert.Equal(t, "graph RL\n", got)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
	assert.Empty(t, first)
}

func TestOnSavedFiltersByPath(t *testing.T) {
	c, h := newPair(t, noReply)
	svc := NewDocumentService(c, "a.mmd")

	saved := make(chan struct{}, 2)
	svc.OnSaved(func() { saved <- struct{}{} })

	h.send(JSON, outgoing{Method: EventSaved, Params: Document{Path: "other.mmd"}})
	h.send(JSON, outgoing{Method: EventSaved, Params: Document{Path: "a.mmd"}})

	select {
	case <-saved:
	case <-time.After(time.Second):
		t.Fatal("save event not delivered")
	}
	assert.Empty(t, saved, "events for other documents are ignored")
}

func TestCodecByName(t *testing.T) {
	c, err := CodecByName("msgpack")
	require.NoError(t, err)
	assert.Equal(t, "msgpack", c.Name())

	c, err = CodecByName("")
	require.NoError(t, err)
	assert.Equal(t, JSON, c)

	_, err = CodecByName("xml")
	assert.Error(t, err)
}
