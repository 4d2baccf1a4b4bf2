package chat

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakeUI answers like the webui plugin: messages are echoed back and pings
// get a pong. Every received frame is recorded.
type fakeUI struct {
	mu       sync.Mutex
	received []frame
}

func (u *fakeUI) frames() []frame {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]frame(nil), u.received...)
}

func (u *fakeUI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return
		}
		u.mu.Lock()
		u.received = append(u.received, f)
		u.mu.Unlock()

		switch f.Type {
		case "ping":
			_ = wsjson.Write(ctx, conn, frame{Type: "pong"})
		case "message":
			_ = wsjson.Write(ctx, conn, frame{Type: "athena/tool-call", Data: map[string]interface{}{
				"name": "ui/send-message", "summary": "Replying...",
			}})
			_ = wsjson.Write(ctx, conn, frame{Type: "message", Data: map[string]interface{}{
				"content": "echo: " + f.str("content"),
			}})
		}
	}
}

func TestSession(t *testing.T) {
	color.NoColor = true

	ui := &fakeUI{}
	srv := httptest.NewServer(ui)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out := &syncBuffer{}
	p := newPrinter(out, false)
	s, err := dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), p)
	require.NoError(t, err)

	in, stdin := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- s.run(ctx, in) }()

	_, err = io.WriteString(stdin, "hello\n")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "echo: hello")
	}, 5*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(stdin, "/ping\n")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "pong")
	}, 5*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(stdin, "/quit\n")
	require.NoError(t, err)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("session did not stop on /quit")
	}

	text := out.String()
	assert.Contains(t, text, "you\nhello")
	assert.Contains(t, text, "-> Replying...")

	received := ui.frames()
	require.Len(t, received, 2)
	assert.Equal(t, frame{Type: "message", Data: map[string]interface{}{"content": "hello"}}, received[0])
	assert.Equal(t, "ping", received[1].Type)
}

func TestPrinterFrames(t *testing.T) {
	color.NoColor = true
	out := &syncBuffer{}
	p := newPrinter(out, false)

	p.frame(frame{Type: "cerebrum/thinking", Data: map[string]interface{}{"content": "pondering"}})
	p.frame(frame{Type: "athena/tool-result", Data: map[string]interface{}{"name": "clock/get-current-time"}})
	p.frame(frame{Type: "cerebrum/busy", Data: map[string]interface{}{"busy": false}})
	p.frame(frame{Type: "error", Data: map[string]interface{}{"content": "unknown frame type"}})

	assert.Equal(t, "pondering\n<- clock/get-current-time\nError: unknown frame type\n", out.String())
}
