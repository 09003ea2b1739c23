package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/diskstore/document"
)

// RNG wraps a seeded random source. It is safe for concurrent use.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0,1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Shuffle shuffles records in place.
func (r *RNG) Shuffle(records []document.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })
}

// Zipf returns a Zipfian-distributed value in [0, n), P(k) ∝ 1/k^s.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked samples by inverse transform. Caller must hold the lock.
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}
	return n - 1
}

var syllables = []string{"an", "bo", "ci", "da", "el", "fu", "ga", "hi", "io", "ju", "ka", "lo", "mi", "no", "or", "pe"}

func (r *RNG) nameLocked() string {
	n := 2 + r.rand.Intn(2)
	b := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		b = append(b, syllables[r.rand.Intn(len(syllables))]...)
	}
	return string(b)
}

// Name returns a pronounceable lower-case name.
func (r *RNG) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nameLocked()
}

// Users generates n user records without primary keys. Emails are unique.
// Each age is null with probability missingRate.
func (r *RNG) Users(n int, missingRate float64) []document.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]document.Record, n)
	for i := range out {
		name := r.nameLocked()
		age := document.Null()
		if r.rand.Float64() >= missingRate {
			age = document.Int(int64(r.rand.Intn(90)))
		}
		out[i] = document.Record{
			"name":  document.String(name),
			"email": document.String(fmt.Sprintf("%s.%d@example.com", name, i)),
			"age":   age,
		}
	}
	return out
}

// Posts generates n post records whose author attribute references user ids
// 1..users. Authors are Zipf-distributed with skew s, so a few users own most
// posts and some own none.
func (r *RNG) Posts(n, users int, s float64) []document.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]document.Record, n)
	for i := range out {
		out[i] = document.Record{
			"title":  document.String(r.nameLocked()),
			"author": document.Int(int64(r.zipfLocked(users, s) + 1)),
			"score":  document.Float(math.Round(r.rand.Float64()*1000) / 10),
		}
	}
	return out
}

// Filter returns the records matching pred, in input order.
func Filter(records []document.Record, pred func(document.Record) bool) []document.Record {
	var out []document.Record
	for _, rec := range records {
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// GroupBy buckets records by the key of an attribute. Records without the
// attribute or with a null value are skipped.
func GroupBy(records []document.Record, attr string) map[string][]document.Record {
	out := make(map[string][]document.Record)
	for _, rec := range records {
		v, ok := rec[attr]
		if !ok || v.IsNull() {
			continue
		}
		out[v.Key()] = append(out[v.Key()], rec)
	}
	return out
}

// Strings extracts a string attribute from every record and sorts the result.
func Strings(records []document.Record, attr string) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec[attr].S)
	}
	sort.Strings(out)
	return out
}
