package journal

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"hftexec/internal/bus"
	"hftexec/internal/clock"
	"hftexec/internal/errors"
	"hftexec/pkg/exception"
)

// Writer journals bus messages into size and time bounded segment files.
// Publish never blocks: records are queued and written by the Start
// goroutine, and dropped when the queue is full.
type Writer struct {
	cfg   Config
	clock clock.Clock
	ch    chan Record
	wg    sync.WaitGroup
	err   atomic.Value

	seq     atomic.Uint64
	dropped atomic.Uint64
	started atomic.Bool
	closed  atomic.Bool

	warnMu   sync.Mutex
	lastWarn time.Time

	// owned by the run goroutine
	seg    *segment
	segID  uint64
	header [recordHeaderSize]byte
}

var _ bus.Sink = (*Writer)(nil)

type segment struct {
	file     *os.File
	buf      *bufio.Writer
	size     int64
	openedAt time.Time
}

type WriterOption func(*Writer)

func WithClock(c clock.Clock) WriterOption {
	return func(w *Writer) { w.clock = c }
}

func NewWriter(cfg Config, opts ...WriterOption) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create journal dir %s", cfg.Dir)
	}
	w := &Writer{
		cfg:   cfg,
		clock: clock.Live{},
		ch:    make(chan Record, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *Writer) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return exception.ErrJournalStarted
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	return nil
}

// Close writes what is queued, syncs the open segment and waits for the
// writer goroutine.
func (w *Writer) Close() error {
	if w.closed.CompareAndSwap(false, true) {
		close(w.ch)
	}
	w.wg.Wait()
	return w.Err()
}

// Err returns the first write error. The writer stops on error.
func (w *Writer) Err() error {
	if v := w.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func (w *Writer) Dropped() uint64 { return w.dropped.Load() }

// Publish encodes msg as JSON and queues it.
func (w *Writer) Publish(topic string, msg any) {
	if !w.journals(topic) {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		logs.Errorf("journal: encode %T on %s, err: %+v", msg, topic, err)
		return
	}
	if err := w.TryAppend(topic, payload); err != nil {
		w.dropped.Add(1)
		w.warnDrop(topic, err)
	}
}

// TryAppend queues a record without blocking and assigns its sequence.
func (w *Writer) TryAppend(topic string, payload []byte) error {
	switch {
	case w.closed.Load():
		return exception.ErrJournalClosed
	case !w.started.Load():
		return exception.ErrJournalNotStarted
	case len(topic) > maxTopicLen, uint64(len(payload)) > maxPayloadLen:
		return exception.ErrJournalPayloadTooLarge
	}
	if err := w.Err(); err != nil {
		return err
	}
	r := Record{Seq: w.seq.Add(1), TsPub: w.clock.NowNs(), Topic: topic, Payload: payload}
	select {
	case w.ch <- r:
		return nil
	default:
		return exception.ErrJournalQueueFull
	}
}

func (w *Writer) journals(topic string) bool {
	if len(w.cfg.Topics) == 0 {
		return true
	}
	for _, p := range w.cfg.Topics {
		if bus.Match(p, topic) {
			return true
		}
	}
	return false
}

func (w *Writer) warnDrop(topic string, err error) {
	now := w.clock.Now()
	w.warnMu.Lock()
	defer w.warnMu.Unlock()
	if now.Sub(w.lastWarn) < time.Second {
		return
	}
	w.lastWarn = now
	logs.Warnf("journal: dropped record on %s, dropped=%d, err: %+v", topic, w.dropped.Load(), err)
}

func (w *Writer) run(ctx context.Context) {
	var flushC <-chan time.Time
	if w.cfg.FlushInterval > 0 {
		t := time.NewTicker(w.cfg.FlushInterval)
		defer t.Stop()
		flushC = t.C
	}
	defer func() {
		if err := w.closeSegment(); err != nil {
			w.setErr(err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case r, ok := <-w.ch:
			if !ok {
				return
			}
			if err := w.write(r); err != nil {
				w.setErr(err)
				return
			}
		case <-flushC:
			if w.seg == nil {
				continue
			}
			if err := w.seg.buf.Flush(); err != nil {
				w.setErr(err)
				return
			}
		}
	}
}

func (w *Writer) drain() {
	for {
		select {
		case r, ok := <-w.ch:
			if !ok {
				return
			}
			if err := w.write(r); err != nil {
				w.setErr(err)
				return
			}
		default:
			return
		}
	}
}

func (w *Writer) write(r Record) error {
	now := w.clock.Now()
	size := r.size()
	if w.rotateDue(now, size) {
		if err := w.closeSegment(); err != nil {
			return err
		}
		if err := w.openSegment(now); err != nil {
			return err
		}
	}

	encodeHeader(w.header[:], r)
	var sum [recordChecksumSize]byte
	binary.LittleEndian.PutUint32(sum[:], checksum(w.header[:], []byte(r.Topic), r.Payload))

	buf := w.seg.buf
	if _, err := buf.Write(w.header[:]); err != nil {
		return err
	}
	if _, err := buf.WriteString(r.Topic); err != nil {
		return err
	}
	if _, err := buf.Write(r.Payload); err != nil {
		return err
	}
	if _, err := buf.Write(sum[:]); err != nil {
		return err
	}
	w.seg.size += size
	return nil
}

func (w *Writer) rotateDue(now time.Time, next int64) bool {
	switch {
	case w.seg == nil:
		return true
	case w.seg.size > 0 && w.seg.size+next > w.cfg.SegmentMaxBytes:
		return true
	case w.cfg.SegmentMaxDuration > 0 && now.Sub(w.seg.openedAt) >= w.cfg.SegmentMaxDuration:
		return true
	}
	return false
}

func (w *Writer) openSegment(now time.Time) error {
	stamp := now.UTC().Format("20060102-150405")
	for {
		w.segID++
		name := fmt.Sprintf("%s-%s-%06d%s", w.cfg.FilePrefix, stamp, w.segID, fileSuffix)
		file, err := os.OpenFile(filepath.Join(w.cfg.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "open journal segment %s", name)
		}
		w.seg = &segment{
			file:     file,
			buf:      bufio.NewWriterSize(file, w.cfg.BufferSize),
			openedAt: now,
		}
		return nil
	}
}

func (w *Writer) closeSegment() error {
	seg := w.seg
	if seg == nil {
		return nil
	}
	w.seg = nil
	err := seg.buf.Flush()
	if err == nil {
		err = seg.file.Sync()
	}
	if cerr := seg.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (w *Writer) setErr(err error) {
	if err == nil || w.err.Load() != nil {
		return
	}
	logs.Errorf("journal: writer stopped, err: %+v", err)
	w.err.Store(err)
}
