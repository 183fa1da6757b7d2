// Package listener records entity mutations as replayable code.
//
// A Listener is anchored at an entity and logs operations on that entity
// and anything it contains, addressing each target by its path from the
// anchor. A log written to a sink is a single (seq ...) form: the prefix
// is written when the listener is created and the closing suffix when it
// is closed, so a log cut off between entries only lacks the final paren.
package listener

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/signadot/entitree/debug"
	"github.com/signadot/entitree/encode"
	"github.com/signadot/entitree/entity"
	"github.com/signadot/entitree/huffman"
	"github.com/signadot/entitree/ir"
)

const (
	Prefix = "(seq\n"
	Suffix = ")\n"
)

// Metrics receives one observation per logged entry.
type Metrics interface {
	ObserveEntry(kind string, bytes int)
}

type Config struct {
	// Sink receives the log text. Nil disables streaming.
	Sink io.WriteCloser
	// Retain keeps entries in memory for Entries.
	Retain   bool
	Pretty   bool
	SortKeys bool
	// Compress, when set, writes the sink as Huffman blocks with this
	// code's table at the front.
	Compress *huffman.Code
	Logger   *slog.Logger
	Metrics  Metrics
}

type Listener struct {
	mu      sync.Mutex
	anchor  *entity.Entity
	cfg     Config
	logger  *slog.Logger
	bw      *bufio.Writer
	scratch bytes.Buffer
	seq     uint64
	entries []Entry
	err     error
	closed  bool
}

func New(anchor *entity.Entity, cfg Config) *Listener {
	l := &Listener{anchor: anchor, cfg: cfg, logger: cfg.Logger}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if cfg.Sink != nil {
		var w io.Writer = cfg.Sink
		if cfg.Compress != nil {
			w = huffman.NewWriter(cfg.Sink, cfg.Compress)
		}
		l.bw = bufio.NewWriter(w)
		l.bw.WriteString(Prefix)
		l.flush()
	}
	return l
}

func (l *Listener) Anchor() *entity.Entity { return l.anchor }

// Err returns the first sink error. Entries are still retained after a
// sink error but no longer written.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Entries returns the retained entries in the order they were logged.
func (l *Listener) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// Flush pushes buffered output, including batched print entries, to the
// sink.
func (l *Listener) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flush()
	return l.err
}

// Close writes the suffix and closes the sink. It is safe to call more
// than once.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return l.err
	}
	l.closed = true
	if l.bw == nil {
		return nil
	}
	if l.err == nil {
		l.bw.WriteString(Suffix)
		l.flush()
	}
	if err := l.cfg.Sink.Close(); err != nil && l.err == nil {
		l.err = err
	}
	return l.err
}

// flush requires l.mu.
func (l *Listener) flush() {
	if l.bw == nil || l.err != nil {
		return
	}
	if err := l.bw.Flush(); err != nil {
		l.err = err
		l.logger.Warn("listener sink write failed", "error", err)
	}
}

// path gives the path from the anchor to target, or false if target is
// not under the anchor.
func (l *Listener) path(target *entity.Entity) (entity.Path, bool) {
	p := entity.PathBetween(l.anchor, target)
	if p == nil {
		if debug.Listener() {
			debug.Logf("listener", "target outside anchor, entry dropped")
		}
		return nil, false
	}
	return p, true
}

// append requires l.mu. Entries whose code cannot be written are dropped.
func (l *Listener) append(e Entry, flush bool) {
	if l.closed {
		return
	}
	l.scratch.Reset()
	l.scratch.WriteByte('\t')
	err := encode.Encode(e.Node(), &l.scratch,
		encode.EncodePretty(l.cfg.Pretty),
		encode.EncodeSortKeys(l.cfg.SortKeys),
		encode.EncodeIndent(1))
	if err != nil {
		l.logger.Debug("listener entry dropped", "kind", e.Kind, "error", err)
		return
	}
	l.scratch.WriteByte('\n')
	l.seq++
	e.Seq = l.seq
	if l.cfg.Retain {
		l.entries = append(l.entries, e)
	}
	if l.bw != nil && l.err == nil {
		l.bw.Write(l.scratch.Bytes())
		if flush {
			l.flush()
		}
	}
	if debug.Listener() {
		debug.Logf("listener", "%d %s %s", e.Seq, e.Kind, e.Path)
	}
	if l.cfg.Metrics != nil {
		l.cfg.Metrics.ObserveEntry(e.Kind.String(), l.scratch.Len())
	}
}

func (l *Listener) logTarget(k Kind, target *entity.Entity, payload ...*ir.Node) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.path(target)
	if !ok {
		return
	}
	l.append(Entry{Kind: k, Path: p, Payload: payload}, true)
}
