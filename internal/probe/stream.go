package probe

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"fortio.org/safecast"
)

// StreamVersion is the version written into stream headers.
const StreamVersion uint16 = 1

const headerSize = 8

var (
	// ErrBadMagic is returned when a stream does not start with the EVTP magic.
	ErrBadMagic = errors.New("probe: bad stream magic")
	// ErrVersion is returned for streams written by a newer version.
	ErrVersion = errors.New("probe: unsupported stream version")
)

var streamMagic = [4]byte{'E', 'V', 'T', 'P'}

// Header starts every probe stream file: magic, version, schema and one
// reserved byte. Records follow, each prefixed with its uint16 size like a
// perf sample.
type Header struct {
	Version uint16
	Schema  Schema
}

func (h Header) encode() []byte {
	out := make([]byte, headerSize)
	copy(out[:4], streamMagic[:])
	binary.LittleEndian.PutUint16(out[4:6], h.Version)
	out[6] = byte(h.Schema)
	return out
}

func readHeader(r io.Reader) (Header, error) {
	var raw [headerSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Header{}, fmt.Errorf("read stream header: %w", err)
	}
	if [4]byte(raw[:4]) != streamMagic {
		return Header{}, ErrBadMagic
	}
	h := Header{
		Version: binary.LittleEndian.Uint16(raw[4:6]),
		Schema:  Schema(raw[6]),
	}
	if h.Version == 0 || h.Version > StreamVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	return h, nil
}

// DefaultQueueSize is the number of hits a Writer holds before it starts
// dropping them.
const DefaultQueueSize = 8192

// hit is one Enter or Exit call waiting to be encoded.
type hit struct {
	dir      Direction
	ts       uint64
	exprID   uint64
	line     uint32
	column   uint32
	exprType string
	file     string
}

// Writer writes probe records to a stream. It is the in-process stand-in for
// the kernel tracer and doubles as a trace.ProbeSink.
//
// Enter and Exit only queue the hit; a background goroutine encodes and
// writes it. They never block on the underlying writer: when the queue is
// full or a write has failed the hit is dropped and counted.
type Writer struct {
	mu     sync.RWMutex // serializes Close against queue sends
	closed bool
	queue  chan hit
	done   chan struct{}

	w      *bufio.Writer
	closer io.Closer
	schema Schema
	err    error // owned by the drain goroutine until done is closed

	written atomic.Uint64
	dropped atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

// NewWriter is NewWriterSize with DefaultQueueSize.
func NewWriter(w io.Writer, schema Schema) (*Writer, error) {
	return NewWriterSize(w, schema, DefaultQueueSize)
}

// NewWriterSize writes the stream header and starts the writer goroutine.
// queueSize bounds the number of pending hits. If w is an io.Closer, Close
// closes it.
func NewWriterSize(w io.Writer, schema Schema, queueSize int) (*Writer, error) {
	if schema != SchemaCombined && schema != SchemaSplit {
		return nil, fmt.Errorf("unknown probe schema: %v", schema)
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	bw := bufio.NewWriterSize(w, 64<<10)
	if _, err := bw.Write(Header{Version: StreamVersion, Schema: schema}.encode()); err != nil {
		return nil, fmt.Errorf("write stream header: %w", err)
	}
	pw := &Writer{
		queue:  make(chan hit, queueSize),
		done:   make(chan struct{}),
		w:      bw,
		schema: schema,
	}
	if c, ok := w.(io.Closer); ok {
		pw.closer = c
	}
	go pw.drain()
	return pw, nil
}

// Schema returns the schema the writer emits.
func (w *Writer) Schema() Schema {
	return w.schema
}

// Enter queues an entry hit.
func (w *Writer) Enter(ts, exprID uint64, exprType, file string, line, column uint32) {
	w.push(hit{dir: DirEntry, ts: ts, exprID: exprID, line: line, column: column, exprType: exprType, file: file})
}

// Exit queues an exit hit.
func (w *Writer) Exit(ts, exprID uint64, exprType string) {
	w.push(hit{dir: DirExit, ts: ts, exprID: exprID, exprType: exprType})
}

func (w *Writer) push(h hit) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.dropped.Add(1)
		return
	}
	select {
	case w.queue <- h:
	default:
		w.dropped.Add(1)
	}
}

// drain encodes queued hits into reused frames until the queue is closed.
// The stream is flushed whenever the queue runs empty so a live reader
// sees hits promptly.
func (w *Writer) drain() {
	defer close(w.done)

	var (
		full Event
		exit ExitEvent
		fbuf [EventSize]byte
		xbuf [ExitEventSize]byte
	)
	for h := range w.queue {
		var payload []byte
		switch {
		case h.dir == DirEntry:
			full = NewEntry(h.ts, h.exprID, h.exprType, h.file, h.line, h.column)
			full.encodeTo(&fbuf)
			payload = fbuf[:]
		case w.schema == SchemaSplit:
			exit = ExitEvent{TS: h.ts, ExprID: h.exprID}
			exit.encodeTo(&xbuf)
			payload = xbuf[:]
		default:
			full = NewCombinedExit(h.ts, h.exprID, h.exprType)
			full.encodeTo(&fbuf)
			payload = fbuf[:]
		}
		w.writeFrame(payload)

		if len(w.queue) == 0 && w.err == nil {
			w.err = w.w.Flush()
		}
	}
	if w.err == nil {
		w.err = w.w.Flush()
	}
}

func (w *Writer) writeFrame(payload []byte) {
	if w.err != nil {
		w.dropped.Add(1)
		return
	}
	size, err := safecast.Conv[uint16](len(payload))
	if err != nil {
		w.dropped.Add(1)
		return
	}
	var prefix [2]byte
	binary.LittleEndian.PutUint16(prefix[:], size)

	if _, err := w.w.Write(prefix[:]); err != nil {
		w.err = err
		w.dropped.Add(1)
		return
	}
	if _, err := w.w.Write(payload); err != nil {
		w.err = err
		w.dropped.Add(1)
		return
	}
	w.written.Add(1)
}

// Written returns the number of records handed to the underlying writer.
func (w *Writer) Written() uint64 {
	return w.written.Load()
}

// Dropped returns the number of hits lost to a full queue, a closed writer
// or write errors.
func (w *Writer) Dropped() uint64 {
	return w.dropped.Load()
}

// Close stops accepting hits, writes the queued ones, flushes and closes the
// underlying writer if it is an io.Closer. It returns the first write error.
// Close waits for pending writes, so it blocks while the underlying writer
// does.
func (w *Writer) Close() error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.queue)
		w.mu.Unlock()

		<-w.done
		err := w.err
		if w.closer != nil {
			if cerr := w.closer.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		w.closeErr = err
	})
	return w.closeErr
}

// Source yields decoded probe records until io.EOF.
type Source interface {
	Read() (Record, error)
	Close() error
}

// Reader reads a probe stream written by Writer.
type Reader struct {
	r      *bufio.Reader
	closer io.Closer
	hdr    Header
	frame  []byte
}

// NewReader reads and validates the stream header.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	hdr, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	pr := &Reader{r: br, hdr: hdr, frame: make([]byte, EventSize)}
	if c, ok := r.(io.Closer); ok {
		pr.closer = c
	}
	return pr, nil
}

// Header returns the stream header.
func (r *Reader) Header() Header {
	return r.hdr
}

// Read returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Read() (Record, error) {
	var prefix [2]byte
	if _, err := io.ReadFull(r.r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("read record size: %w", err)
	}
	size := int(binary.LittleEndian.Uint16(prefix[:]))
	if size > len(r.frame) {
		r.frame = make([]byte, size)
	}
	frame := r.frame[:size]
	if _, err := io.ReadFull(r.r, frame); err != nil {
		return Record{}, fmt.Errorf("read record: %w", err)
	}
	return DecodeSample(frame)
}

// Close closes the underlying reader if it is an io.Closer.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
