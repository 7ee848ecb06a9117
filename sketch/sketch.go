// Package sketch implements a Count-Min frequency estimator used by the
// W-TinyLFU admission filter to approximate how often a key has been seen
// without retaining the keys themselves.
package sketch

import (
	"math/bits"
	"sync"

	"github.com/nullforge/corecache/internal/util"
)

// Variant selects the frequency-sketch implementation a cache uses.
type Variant int

const (
	// None disables frequency tracking; Increment/Estimate are no-ops.
	None Variant = iota
	// Basic is a plain Count-Min sketch with periodic aging.
	Basic
	// Optimized adds a doorkeeper bitset that gates the first increment of
	// a key within an aging epoch, damping one-hit-wonder pollution.
	Optimized
)

const (
	rows           = 4 // d: independent hash rows
	bitsPerCounter = 4 // saturating counter width
	counterMax     = (1 << bitsPerCounter) - 1
	counterMask    = uint64(0xF)
	countersPerU64 = 64 / bitsPerCounter
)

// Sketch estimates access frequency for recently seen keys via a
// Count-Min structure: d rows of w saturating counters each, packed four
// bits to a nibble inside 64-bit words. A counter is the minimum across
// the d rows indexed by independent hashes of the key.
//
// Sample counts accumulate until they reach 10*w, at which point every
// counter is halved so the estimator tracks recency rather than lifetime
// totals. Aging and increments share mu; the critical section is a
// handful of shifts and masks, never a map operation.
type Sketch struct {
	variant Variant

	mu         sync.Mutex
	table      []uint64 // rows * wordsPerRow words
	width      uint64   // w, power of two
	widthMask  uint64
	sampleSize int64
	sampleAdd  int64

	doorkeeper []uint64 // bitset of width bits, Optimized only
}

// New builds a Sketch sized for approximately maximumSize distinct keys.
// width is rounded up to the next power of two so index masking replaces
// modulo on the hot path.
func New(variant Variant, maximumSize int) *Sketch {
	if maximumSize < 1 {
		maximumSize = 1
	}
	w := util.NextPow2(uint64(maximumSize))
	if w < 8 {
		w = 8
	}
	s := &Sketch{
		variant:    variant,
		width:      w,
		widthMask:  w - 1,
		sampleSize: int64(10 * w),
	}
	if variant == None {
		return s
	}
	words := (w + countersPerU64 - 1) / countersPerU64
	s.table = make([]uint64, rows*words)
	if variant == Optimized {
		s.doorkeeper = make([]uint64, (w+63)/64)
	}
	return s
}

// Reset clears all counters, the sample count, and the doorkeeper.
func (s *Sketch) Reset() {
	if s.variant == None {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.table {
		s.table[i] = 0
	}
	for i := range s.doorkeeper {
		s.doorkeeper[i] = 0
	}
	s.sampleAdd = 0
}

// Increment records an observation of hash, aging the whole table when
// the sample threshold is reached. For the Optimized variant, a key's
// first increment within an epoch only sets its doorkeeper bit; the
// counters themselves start incrementing on its second observation.
func (s *Sketch) Increment(hash uint64) {
	if s.variant == None {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.variant == Optimized {
		bit := hash & s.widthMask
		word, mask := bit/64, uint64(1)<<(bit%64)
		if s.doorkeeper[word]&mask == 0 {
			s.doorkeeper[word] |= mask
			s.sampleAdd++
			s.maybeAgeLocked()
			return
		}
	}

	added := false
	for r := 0; r < rows; r++ {
		i := indexFor(hash, r, s.widthMask)
		if s.incrementAtLocked(r, i) {
			added = true
		}
	}
	if added {
		s.sampleAdd++
	}
	s.maybeAgeLocked()
}

// Estimate returns the minimum counter across all rows for hash, i.e.
// the Count-Min estimate of how many times it has been observed since
// the last aging event.
func (s *Sketch) Estimate(hash uint64) int {
	if s.variant == None {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	min := counterMax
	for r := 0; r < rows; r++ {
		i := indexFor(hash, r, s.widthMask)
		if v := s.counterAtLocked(r, i); v < min {
			min = v
		}
	}
	return min
}

func (s *Sketch) maybeAgeLocked() {
	if s.sampleAdd < s.sampleSize {
		return
	}
	for i := range s.table {
		// Halve every nibble in the word simultaneously: shift right one
		// bit then mask off the bit borrowed from the neighboring nibble.
		s.table[i] = (s.table[i] >> 1) & 0x7777777777777777
	}
	for i := range s.doorkeeper {
		s.doorkeeper[i] = 0
	}
	s.sampleAdd = 0
}

func (s *Sketch) wordsPerRow() uint64 {
	return (s.width + countersPerU64 - 1) / countersPerU64
}

func (s *Sketch) counterAtLocked(row int, idx uint64) int {
	word := uint64(row)*s.wordsPerRow() + idx/countersPerU64
	shift := (idx % countersPerU64) * bitsPerCounter
	return int((s.table[word] >> shift) & counterMask)
}

func (s *Sketch) incrementAtLocked(row int, idx uint64) bool {
	word := uint64(row)*s.wordsPerRow() + idx/countersPerU64
	shift := (idx % countersPerU64) * bitsPerCounter
	v := (s.table[word] >> shift) & counterMask
	if v >= counterMax {
		return false
	}
	s.table[word] += 1 << shift
	return true
}

// indexFor derives row r's table index from hash via double hashing: two
// halves of the 64-bit hash are combined with the row number so the rows
// behave as independent hash functions without computing d of them.
func indexFor(hash uint64, row int, mask uint64) uint64 {
	h1 := hash
	h2 := bits.RotateLeft64(hash, 32)
	return (h1 + uint64(row)*h2) & mask
}
