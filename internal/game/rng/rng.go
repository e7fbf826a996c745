// Package rng provides the seeded random source for the spin pipeline.
//
// A spin is driven by a root seed; each cascade step derives a sub-seed from
// it. Streams are pure with respect to their seed: replaying a seed
// reproduces every draw, which is what makes spin results replayable.
package rng

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Service is the cryptographic seed source. It is safe for concurrent use;
// per-spin state lives in Streams, not here.
type Service struct{}

// NewService returns the seed service.
func NewService() *Service {
	return &Service{}
}

// GenerateSeed returns a fresh 256-bit seed in hex.
func (s *Service) GenerateSeed() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// UUID returns a new random identifier.
func (s *Service) UUID() uuid.UUID {
	return uuid.New()
}

// HashCommitment returns the SHA-256 commitment for a seed, published before
// the seed itself is revealed.
func HashCommitment(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// SubSeed derives the seed for one cascade step: root seed concatenated with
// the zero-padded step number.
func SubSeed(root string, step int) string {
	return fmt.Sprintf("%s%04d", root, step)
}

// Event is one audit record emitted per draw. Seq is a draw counter rather
// than wall time so that replays produce identical logs.
type Event struct {
	Seq       int64  `json:"t"`
	Component string `json:"component"`
	Kind      string `json:"kind"`
	Data      string `json:"data"`
}

// Recorder accumulates audit events across the streams of one spin.
type Recorder struct {
	seq    int64
	events []Event
}

// NewRecorder returns an empty audit recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(component, kind, data string) {
	if r == nil {
		return
	}
	r.seq++
	r.events = append(r.events, Event{Seq: r.seq, Component: component, Kind: kind, Data: data})
}

// Events returns the recorded events in draw order.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	return r.events
}

// Stream is a deterministic random stream: an HMAC-SHA256 counter keyed by
// the seed. Each block yields 32 bytes which are consumed front to back.
type Stream struct {
	key       []byte
	counter   uint64
	buf       [sha256.Size]byte
	off       int
	component string
	rec       *Recorder
}

// NewStream returns a stream seeded by the given hex seed.
func NewStream(seed string) *Stream {
	st := &Stream{key: []byte(seed)}
	st.off = len(st.buf) // force refill on first draw
	return st
}

// WithAudit attaches an audit recorder; every draw on the stream emits an
// event tagged with the component name.
func (st *Stream) WithAudit(rec *Recorder, component string) *Stream {
	st.rec = rec
	st.component = component
	return st
}

func (st *Stream) refill() {
	mac := hmac.New(sha256.New, st.key)
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], st.counter)
	mac.Write(ctr[:])
	mac.Sum(st.buf[:0])
	st.counter++
	st.off = 0
}

// Uint64 returns the next 64 bits of the stream.
func (st *Stream) Uint64() uint64 {
	if st.off+8 > len(st.buf) {
		st.refill()
	}
	v := binary.BigEndian.Uint64(st.buf[st.off : st.off+8])
	st.off += 8
	return v
}

// Float64 returns the next draw in [0, 1).
func (st *Stream) Float64() float64 {
	v := float64(st.Uint64()>>11) / (1 << 53)
	st.rec.record(st.component, "float64", fmt.Sprintf("%.6f", v))
	return v
}

// IntN returns a uniform draw in [0, n). Panics if n <= 0.
func (st *Stream) IntN(n int) int {
	if n <= 0 {
		panic("rng: IntN called with non-positive n")
	}
	v := int(st.uint64n(uint64(n)))
	st.rec.record(st.component, "intn", fmt.Sprintf("%d/%d", v, n))
	return v
}

// uint64n draws uniformly in [0, n) by rejection sampling: values from the
// short interval at the top of the 64-bit range are redrawn, so ranges that
// do not divide 2^64 carry no modulo bias.
func (st *Stream) uint64n(n uint64) uint64 {
	if n&(n-1) == 0 {
		return st.Uint64() & (n - 1)
	}
	skew := (math.MaxUint64%n + 1) % n // 2^64 mod n
	max := math.MaxUint64 - skew
	for {
		if v := st.Uint64(); v <= max {
			return v % n
		}
	}
}

// WeightedIndex draws an index from the weight slice, with probability
// proportional to weight. Zero-weight entries are never selected.
func (st *Stream) WeightedIndex(weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		panic("rng: WeightedIndex with no positive weights")
	}
	draw := int(st.uint64n(uint64(total)))
	for i, w := range weights {
		draw -= w
		if draw < 0 {
			st.rec.record(st.component, "weighted", fmt.Sprintf("%d", i))
			return i
		}
	}
	return len(weights) - 1
}
