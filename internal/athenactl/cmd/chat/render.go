package chat

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/moby/term"
	"github.com/muesli/termenv"
)

const defaultWidth = 80

var (
	labelColor    = color.New(color.Bold, color.FgHiMagenta)
	youColor      = color.New(color.Bold, color.FgHiBlue)
	thinkingColor = color.New(color.Faint, color.Italic)
	toolColor     = color.New(color.FgCyan)
	errorColor    = color.New(color.Bold, color.FgRed)
	dimColor      = color.New(color.Faint)
)

// terminalWidth returns the width of the terminal behind out, or the default.
func terminalWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok {
		return defaultWidth
	}
	fd, isTerm := term.GetFdInfo(f)
	if !isTerm {
		return defaultWidth
	}
	ws, err := term.GetWinsize(fd)
	if err != nil || ws.Width == 0 {
		return defaultWidth
	}
	return int(ws.Width)
}

// printer writes server frames to the terminal. It is shared by the reader
// goroutine and the prompt loop.
type printer struct {
	mu       sync.Mutex
	out      io.Writer
	width    int
	markdown *glamour.TermRenderer
}

func newPrinter(out io.Writer, renderMarkdown bool) *printer {
	p := &printer{out: out, width: terminalWidth(out)}
	if renderMarkdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithColorProfile(termenv.ANSI256),
			glamour.WithWordWrap(p.width-4),
		)
		if err == nil {
			p.markdown = r
		}
	}
	return p
}

func (p *printer) render(content string) string {
	if p.markdown == nil {
		return content
	}
	rendered, err := p.markdown.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

func (p *printer) separator() string {
	n := p.width - 2
	if n < 20 {
		n = 20
	}
	return dimColor.Sprint(strings.Repeat("-", n))
}

func (p *printer) banner(uiAddr, version string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, p.separator())
	fmt.Fprintf(p.out, "%s %s\n\n", labelColor.Sprint("Athena Chat"), version)
	fmt.Fprintf(p.out, "  UI:  %s\n\n", uiAddr)
	fmt.Fprintln(p.out, "  Type a message and press Enter to send")
	fmt.Fprintln(p.out, "  /ping  - check the connection")
	fmt.Fprintln(p.out, "  /quit  - exit")
	fmt.Fprintln(p.out, p.separator())
}

func (p *printer) user(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, p.separator())
	fmt.Fprintln(p.out, youColor.Sprint("you"))
	fmt.Fprintln(p.out, msg)
}

func (p *printer) errorf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, errorColor.Sprintf("Error: "+format, args...))
}

func (p *printer) frame(f frame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch f.Type {
	case "message":
		fmt.Fprintln(p.out, p.separator())
		fmt.Fprintln(p.out, labelColor.Sprint("athena"))
		fmt.Fprintln(p.out, p.render(f.str("content")))
	case "cerebrum/thinking":
		fmt.Fprintln(p.out, thinkingColor.Sprint(f.str("content")))
	case "athena/tool-call":
		fmt.Fprintln(p.out, toolColor.Sprintf("-> %s", f.summary()))
	case "athena/tool-result":
		fmt.Fprintln(p.out, toolColor.Sprintf("<- %s", f.summary()))
	case "athena/event":
		fmt.Fprintln(p.out, dimColor.Sprintf("event %s", f.summary()))
	case "cerebrum/busy":
		if busy, _ := f.Data["busy"].(bool); busy {
			fmt.Fprintln(p.out, dimColor.Sprint("thinking..."))
		}
	case "cerebrum/error", "error":
		fmt.Fprintln(p.out, errorColor.Sprintf("Error: %s", f.str("content")))
	case "pong":
		fmt.Fprintln(p.out, dimColor.Sprint("pong"))
	}
}
