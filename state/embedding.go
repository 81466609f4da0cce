package state

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"slices"
	"strconv"
	"strings"
)

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

type embedding struct {
	h    []float64
	bias float64
}

// EmbeddingStore maps node ids to latent vectors and biases. Entries are
// created on first reference and never removed; the table only grows over
// the lifetime of the owning agent.
type EmbeddingStore struct {
	entries map[NodeId]*embedding
}

func NewEmbeddingStore() *EmbeddingStore {
	return &EmbeddingStore{
		entries: make(map[NodeId]*embedding),
	}
}

// Get returns the stored vector and bias, or a zero vector and zero bias
// for an unknown id. The returned slice is the live store entry for known
// ids and must not be mutated by the caller.
func (e *EmbeddingStore) Get(id NodeId) ([]float64, float64) {
	ent, ok := e.entries[id]
	if !ok {
		return make([]float64, EmbeddingDim), 0
	}
	return ent.h, ent.bias
}

func (e *EmbeddingStore) Contains(id NodeId) bool {
	_, ok := e.entries[id]
	return ok
}

// Set overwrites the vector for id. The vector is copied.
func (e *EmbeddingStore) Set(id NodeId, h []float64) error {
	if len(h) != EmbeddingDim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(h), EmbeddingDim)
	}
	ent := e.entry(id)
	ent.h = slices.Clone(h)
	return nil
}

func (e *EmbeddingStore) SetBias(id NodeId, bias float64) {
	e.entry(id).bias = bias
}

// Update applies h[i] += rate * gradient[i]. An unknown id is initialized
// to a zero entry before the gradient is checked, so a rejected update can
// still leave a fresh zero vector behind. No normalization or clamping is
// applied; vectors may grow without bound.
func (e *EmbeddingStore) Update(id NodeId, gradient []float64, rate float64) error {
	ent := e.entry(id)
	if len(gradient) != EmbeddingDim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(gradient), EmbeddingDim)
	}
	for i := range ent.h {
		ent.h[i] += rate * gradient[i]
	}
	return nil
}

// UpdateBias applies b += rate * gradient, zero-creating the entry if absent.
func (e *EmbeddingStore) UpdateBias(id NodeId, gradient float64, rate float64) {
	ent := e.entry(id)
	ent.bias += rate * gradient
}

// Generate returns the stored vector for id, or creates a fresh uniform
// random vector in [-1, 1] with zero bias for nodes the trainer has never
// seen.
func (e *EmbeddingStore) Generate(id NodeId) []float64 {
	if ent, ok := e.entries[id]; ok {
		return ent.h
	}
	h := make([]float64, EmbeddingDim)
	for i := range h {
		h[i] = rand.Float64()*2 - 1
	}
	e.entries[id] = &embedding{h: h}
	return h
}

func (e *EmbeddingStore) Len() int {
	return len(e.entries)
}

func (e *EmbeddingStore) Ids() []NodeId {
	ids := make([]NodeId, 0, len(e.entries))
	for id := range e.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// MemoryKB estimates the table footprint, D+1 float64 per entry.
func (e *EmbeddingStore) MemoryKB() float64 {
	return float64(len(e.entries)*(EmbeddingDim+1)*8) / 1024.0
}

// Load replaces the store contents with rows of the form
// id,h_0,...,h_15,bias. A row with fewer than D+2 fields or an unparsable
// id is skipped; an unparsable float field loads as 0.0 without dropping
// the row. Returns the number of entries loaded.
func (e *EmbeddingStore) Load(r io.Reader) (int, error) {
	e.entries = make(map[NodeId]*embedding)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < EmbeddingDim+2 {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 32)
		if err != nil {
			continue
		}
		h := make([]float64, EmbeddingDim)
		for i := range h {
			h[i] = parseFloatOrZero(fields[1+i])
		}
		e.entries[NodeId(id)] = &embedding{
			h:    h,
			bias: parseFloatOrZero(fields[EmbeddingDim+1]),
		}
	}
	if err := scanner.Err(); err != nil {
		return len(e.entries), err
	}
	return len(e.entries), nil
}

// LoadFile loads the table from a csv file. Failure to open the file is
// reported to the caller and leaves the store untouched.
func (e *EmbeddingStore) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("cannot open embedding file: %w", err)
	}
	defer f.Close()
	return e.Load(f)
}

// Save writes one row per stored id in ascending id order. Entries whose
// vector length differs from D are skipped.
func (e *EmbeddingStore) Save(w io.Writer) (int, error) {
	count := 0
	for _, id := range e.Ids() {
		ent := e.entries[id]
		if len(ent.h) != EmbeddingDim {
			continue
		}
		var sb strings.Builder
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
		for _, v := range ent.h {
			sb.WriteByte(',')
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(ent.bias, 'g', -1, 64))
		sb.WriteByte('\n')
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// SaveFile writes the table to a csv file.
func (e *EmbeddingStore) SaveFile(path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("cannot create embedding file: %w", err)
	}
	defer f.Close()
	return e.Save(f)
}

func (e *EmbeddingStore) entry(id NodeId) *embedding {
	ent, ok := e.entries[id]
	if !ok {
		ent = &embedding{h: make([]float64, EmbeddingDim)}
		e.entries[id] = ent
	}
	return ent
}

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
