package webui

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/kiosk404/athena/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// frame is the wire shape in both directions.
type frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

func errorFrame(msg string) frame {
	return frame{Type: "error", Data: map[string]interface{}{"content": msg}}
}

type client struct {
	remote string
	conn   *websocket.Conn
	out    chan frame
}

func (c *client) enqueue(f frame) bool {
	select {
	case c.out <- f:
		return true
	default:
		return false
	}
}

// handleSocket runs on a plain net/http handler: Accept has to hijack a
// writer that has not flushed its headers yet.
func (p *Plugin) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: p.cfg.OriginPatterns,
	})
	if err != nil {
		logger.WarnX(logModule, "websocket accept from %s: %v", r.RemoteAddr, err)
		return
	}

	c := &client{remote: r.RemoteAddr, conn: conn, out: make(chan frame, 64)}
	p.conns.Add(1)
	defer p.conns.Done()
	if !p.register(c) {
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer p.unregister(c)
	logger.InfoX(logModule, "client %s connected", c.remote)

	p.mu.Lock()
	parent := p.ctx
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(parent)
	g.Go(func() error { return p.readLoop(gctx, c) })
	g.Go(func() error { return p.writeLoop(gctx, c) })
	err = g.Wait()

	status := websocket.CloseStatus(err)
	switch {
	case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
		_ = conn.Close(websocket.StatusNormalClosure, "")
	case errors.Is(err, context.Canceled):
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
	default:
		logger.DebugX(logModule, "client %s: %v", c.remote, err)
		_ = conn.Close(websocket.StatusInternalError, "")
	}
	logger.InfoX(logModule, "client %s disconnected", c.remote)
}

func (p *Plugin) readLoop(ctx context.Context, c *client) error {
	for {
		var in frame
		if err := wsjson.Read(ctx, c.conn, &in); err != nil {
			return err
		}
		p.handle(c, in)
	}
}

func (p *Plugin) writeLoop(ctx context.Context, c *client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-c.out:
			writeCtx, cancel := context.WithTimeout(ctx, p.cfg.WriteTimeout)
			err := wsjson.Write(writeCtx, c.conn, f)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
