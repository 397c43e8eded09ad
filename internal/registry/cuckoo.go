// Package registry is the process-wide pool registry: every open pool
// is keyed by its uuid_lo so a dangling OID can be
// resolved back to the runtime handle that maps it. CuckooHashTable is
// a real two-table bounded-displacement implementation hashed with
// github.com/cespare/xxhash/v2.
package registry

import (
	"encoding/binary"
	"errors"

	"github.com/cespare/xxhash/v2"
)

// ErrAlreadyPresent is returned by Insert when uuidLo is already
// registered.
var ErrAlreadyPresent = errors.New("registry: pool already open")

const (
	defaultSlots  = 64
	maxDisplace   = 32
	loadThreshold = 0.6
)

type slot struct {
	used bool
	key  uint64
	val  interface{}
}

// CuckooHashTable is a two-table cuckoo hash map from uint64 keys to
// arbitrary values, with a small overflow stash for the rare case a
// bounded displacement chain fails to settle.
type CuckooHashTable struct {
	t1, t2 []slot
	stash  map[uint64]interface{}
	count  int
}

// NewCuckooHashTable allocates a table sized for at least size entries
// before a grow is needed.
func NewCuckooHashTable(size int) *CuckooHashTable {
	n := nextPow2(size)
	if n < defaultSlots {
		n = defaultSlots
	}
	return &CuckooHashTable{
		t1:    make([]slot, n),
		t2:    make([]slot, n),
		stash: make(map[uint64]interface{}),
	}
}

// Insert adds key/val, growing and rehashing the table once the load
// factor crosses loadThreshold. A key whose displacement chain does not
// settle within maxDisplace steps goes to the overflow stash.
func (c *CuckooHashTable) Insert(key uint64, val interface{}) {
	if _, ok := c.Get(key); ok {
		return
	}
	c.insert(key, val)
	c.count++
	if float64(c.count) > loadThreshold*float64(len(c.t1)+len(c.t2)) {
		c.grow()
	}
}

// Get looks up key, checking both tables and the overflow stash.
func (c *CuckooHashTable) Get(key uint64) (interface{}, bool) {
	i1 := c.h1(key)
	if c.t1[i1].used && c.t1[i1].key == key {
		return c.t1[i1].val, true
	}
	i2 := c.h2(key)
	if c.t2[i2].used && c.t2[i2].key == key {
		return c.t2[i2].val, true
	}
	v, ok := c.stash[key]
	return v, ok
}

// Remove deletes key if present, reporting whether it was found.
func (c *CuckooHashTable) Remove(key uint64) bool {
	i1 := c.h1(key)
	if c.t1[i1].used && c.t1[i1].key == key {
		c.t1[i1] = slot{}
		c.count--
		return true
	}
	i2 := c.h2(key)
	if c.t2[i2].used && c.t2[i2].key == key {
		c.t2[i2] = slot{}
		c.count--
		return true
	}
	if _, ok := c.stash[key]; ok {
		delete(c.stash, key)
		c.count--
		return true
	}
	return false
}

// Len reports how many keys are currently stored.
func (c *CuckooHashTable) Len() int { return c.count }

func (c *CuckooHashTable) insert(key uint64, val interface{}) {
	cur := slot{used: true, key: key, val: val}
	useFirst := true
	for i := 0; i < maxDisplace; i++ {
		var idx int
		var table []slot
		if useFirst {
			idx, table = c.h1(cur.key), c.t1
		} else {
			idx, table = c.h2(cur.key), c.t2
		}
		if !table[idx].used {
			table[idx] = cur
			return
		}
		table[idx], cur = cur, table[idx]
		useFirst = !useFirst
	}
	c.stash[cur.key] = cur.val
}

func (c *CuckooHashTable) grow() {
	old1, old2, oldStash := c.t1, c.t2, c.stash
	c.t1 = make([]slot, len(old1)*2)
	c.t2 = make([]slot, len(old2)*2)
	c.stash = make(map[uint64]interface{})
	c.count = 0
	for _, s := range old1 {
		if s.used {
			c.insert(s.key, s.val)
			c.count++
		}
	}
	for _, s := range old2 {
		if s.used {
			c.insert(s.key, s.val)
			c.count++
		}
	}
	for k, v := range oldStash {
		c.insert(k, v)
		c.count++
	}
}

func (c *CuckooHashTable) h1(key uint64) int {
	return int(hash64(key, 0x1) % uint64(len(c.t1)))
}

func (c *CuckooHashTable) h2(key uint64) int {
	return int(hash64(key, 0x9e3779b97f4a7c15) % uint64(len(c.t2)))
}

func hash64(key, salt uint64) uint64 {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:8], key)
	binary.LittleEndian.PutUint64(b[8:16], salt)
	return xxhash.Sum64(b[:])
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
