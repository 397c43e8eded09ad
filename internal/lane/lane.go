// Package lane gives internal/list a bounded pool of undo-log lanes so
// that every multi-field update the list layer makes (OOB header
// writes, ring-link fixups, root resize) is atomically visible at a
// crash boundary.
//
// The protocol is log-then-mutate-then-clear: a transaction logs the
// old value of every field it is about to overwrite before writing the
// new one, and a crashed-but-uncommitted log is replayed backwards on
// the next boot. The log operates purely on byte ranges within a
// pool's mapped file, addressed by offset rather than pointer, so a
// logged entry stays meaningful across a close and remap.
package lane

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fenilsonani/pmemobj/internal/pmemrt"
)

const (
	// Size is the on-media footprint of a single lane.
	Size = 8192

	headerSize  = 16
	entryHeader = 16 // offset(8) + length(4) + pad(4)
	entryData   = 48
	entrySize   = entryHeader + entryData
	maxEntries  = (Size - headerSize) / entrySize

	hdrCountOff = 0

	// DefaultCount is how many lanes a freshly created pool gets.
	DefaultCount = 8
)

// ErrLogFull is returned when a transaction logs more field updates than
// a single lane can hold; callers should split the mutation across more
// than one list operation (no caller in this module currently needs to).
var ErrLogFull = errors.New("lane: undo log full")

// lane is one fixed-size undo-log slot within the pool's lane region.
type lane struct {
	h      *pmemrt.Handle
	base   uint64
	count  uint32
}

// Pool is the process-local set of lanes available for a pool, modeled
// as a buffered channel: acquiring a lane is a channel receive,
// releasing one is a send.
type Pool struct {
	lanes chan *lane
}

// Boot attaches to (or initializes) the lane region described by h,
// replaying and discarding any transaction left uncommitted by a crash.
func Boot(h *pmemrt.Handle) (*Pool, error) {
	if h.NLanes == 0 {
		return nil, fmt.Errorf("lane: pool has zero lanes")
	}
	p := &Pool{lanes: make(chan *lane, h.NLanes)}
	for i := uint64(0); i < h.NLanes; i++ {
		l := &lane{h: h, base: h.LanesOffset + i*h.LaneSize}
		l.count = l.readCount()
		if l.count > 0 {
			l.replay()
		}
		p.lanes <- l
	}
	return p, nil
}

// Begin acquires a lane and starts a transaction on it, blocking until one
// is free.
func (p *Pool) Begin() *Tx {
	l := <-p.lanes
	return &Tx{pool: p, l: l}
}

// Tx is an in-progress undo-protected sequence of field updates.
type Tx struct {
	pool *Pool
	l    *lane
	done bool
}

// Set overwrites h.Mapping[off:off+len(newData)] with newData, first
// durably logging the bytes being replaced so a crash before Commit can
// be rolled back.
func (t *Tx) Set(off uint64, newData []byte) error {
	if len(newData) > entryData {
		return fmt.Errorf("lane: entry of %d bytes exceeds capacity %d", len(newData), entryData)
	}
	if t.l.count >= maxEntries {
		return ErrLogFull
	}

	h := t.l.h
	old := make([]byte, len(newData))
	copy(old, h.Mapping[off:off+uint64(len(newData))])

	t.l.writeEntry(t.l.count, off, old)
	t.l.count++
	t.l.persistCount()

	h.Ops.MemcpyPersist(h.Mapping, off, newData)
	return nil
}

// Commit discards the undo log, making every Set in this transaction
// permanent, and returns the lane to the pool.
func (t *Tx) Commit() error {
	if t.done {
		return errors.New("lane: transaction already finished")
	}
	t.l.count = 0
	t.l.persistCount()
	t.finish()
	return nil
}

// Abort replays the undo log in reverse, restoring every field Set wrote
// to its pre-transaction value, and returns the lane to the pool.
func (t *Tx) Abort() error {
	if t.done {
		return errors.New("lane: transaction already finished")
	}
	t.l.replay()
	t.finish()
	return nil
}

func (t *Tx) finish() {
	t.done = true
	t.pool.lanes <- t.l
}

func (l *lane) readCount() uint32 {
	return binary.LittleEndian.Uint32(l.h.Mapping[l.base+hdrCountOff:])
}

func (l *lane) persistCount() {
	binary.LittleEndian.PutUint32(l.h.Mapping[l.base+hdrCountOff:], l.count)
	l.h.Ops.Persist(l.h.Mapping, l.base+hdrCountOff, 4)
}

func (l *lane) entryOff(i uint32) uint64 {
	return l.base + headerSize + uint64(i)*entrySize
}

func (l *lane) writeEntry(i uint32, off uint64, old []byte) {
	e := l.h.Mapping[l.entryOff(i) : l.entryOff(i)+entrySize]
	binary.LittleEndian.PutUint64(e[0:8], off)
	binary.LittleEndian.PutUint32(e[8:12], uint32(len(old)))
	copy(e[entryHeader:entryHeader+len(old)], old)
	l.h.Ops.Persist(l.h.Mapping, l.entryOff(i), entrySize)
}

func (l *lane) readEntry(i uint32) (off uint64, data []byte) {
	e := l.h.Mapping[l.entryOff(i) : l.entryOff(i)+entrySize]
	off = binary.LittleEndian.Uint64(e[0:8])
	n := binary.LittleEndian.Uint32(e[8:12])
	data = make([]byte, n)
	copy(data, e[entryHeader:entryHeader+n])
	return off, data
}

// replay restores every logged field from the most recently written
// entry back to the first, then clears the log.
func (l *lane) replay() {
	for i := int(l.count) - 1; i >= 0; i-- {
		off, data := l.readEntry(uint32(i))
		l.h.Ops.MemcpyPersist(l.h.Mapping, off, data)
	}
	l.count = 0
	l.persistCount()
}

// Check inspects the lane region of a pool that has not been booted,
// without replaying anything: every lane's entry count must be within a
// single lane's capacity. A nonzero count only means a transaction was
// in flight at a crash; the next writable open replays it, so it does
// not make the pool inconsistent.
func Check(h *pmemrt.Handle) bool {
	if h.NLanes == 0 {
		return false
	}
	for i := uint64(0); i < h.NLanes; i++ {
		l := &lane{h: h, base: h.LanesOffset + i*h.LaneSize}
		if l.readCount() > maxEntries {
			return false
		}
	}
	return true
}

// Check reports whether every idle lane's in-memory undo-log entry
// count is within bounds. It reads no on-media state: Boot has already
// replayed (and so cleared) any lane left uncommitted by a crash, and
// lanes held by an open transaction are not inspected.
func (p *Pool) Check() bool {
	n := len(p.lanes)
	drained := make([]*lane, 0, n)
	ok := true
	for i := 0; i < n; i++ {
		l := <-p.lanes
		drained = append(drained, l)
		if l.count > maxEntries {
			ok = false
		}
	}
	for _, l := range drained {
		p.lanes <- l
	}
	return ok
}
