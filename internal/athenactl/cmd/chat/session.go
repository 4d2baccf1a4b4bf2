package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/kiosk404/athena/pkg/safego"
)

// frame mirrors the {type, data} messages of the webui plugin.
type frame struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
}

func (f frame) str(key string) string {
	s, _ := f.Data[key].(string)
	return s
}

// summary prefers the explanation summary and falls back to the name.
func (f frame) summary() string {
	if s := f.str("summary"); s != "" {
		return s
	}
	return f.str("name")
}

// session is one websocket connection to the webui plugin.
type session struct {
	conn    *websocket.Conn
	printer *printer
}

func dial(ctx context.Context, addr string, p *printer) (*session, error) {
	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	conn.SetReadLimit(1 << 22)
	return &session{conn: conn, printer: p}, nil
}

func (s *session) send(ctx context.Context, typ string, data map[string]interface{}) error {
	return wsjson.Write(ctx, s.conn, frame{Type: typ, Data: data})
}

// readLoop prints frames until the connection closes.
func (s *session) readLoop(ctx context.Context) error {
	for {
		var f frame
		if err := wsjson.Read(ctx, s.conn, &f); err != nil {
			return err
		}
		s.printer.frame(f)
	}
}

// run reads prompts from in until EOF or /quit and sends them as messages.
func (s *session) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readErr := make(chan error, 1)
	safego.Go(ctx, func() { readErr <- s.readLoop(ctx) })

	lines := make(chan string)
	safego.Go(ctx, func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	})

	for {
		select {
		case err := <-readErr:
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		case line, ok := <-lines:
			if !ok {
				return s.close()
			}
			line = strings.TrimSpace(line)
			var err error
			switch line {
			case "":
				continue
			case "/quit", "/exit":
				return s.close()
			case "/ping":
				err = s.send(ctx, "ping", nil)
			default:
				s.printer.user(line)
				err = s.send(ctx, "message", map[string]interface{}{"content": line})
			}
			if err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}

func (s *session) close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "bye")
}
