package boardpresenter

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/park285/cheese-board-stream/pkg/boarddto"
)

// Presenter writes formatted output without coupling to the command layer.
type Presenter struct {
	mu  sync.Mutex
	out io.Writer
	f   *Formatter
}

func NewPresenter(out io.Writer, f *Formatter) *Presenter {
	return &Presenter{out: out, f: f}
}

func (p *Presenter) Formatter() *Formatter { return p.f }

// Board prints the snapshot text followed by the diagram when given.
func (p *Presenter) Board(s *boarddto.Snapshot, drawing string) error {
	if p == nil || s == nil {
		return nil
	}
	text := p.f.Snapshot(s)
	if d := strings.TrimRight(drawing, "\n"); d != "" {
		text = d + "\n" + text
	}
	return p.Line(text)
}

func (p *Presenter) Line(text string) error {
	if p == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintln(p.out, text)
	return err
}
