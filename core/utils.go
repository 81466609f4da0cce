package core

import (
	"reflect"

	"github.com/ethan-al/gsqr/state"
)

func Get[T state.GsqrModule](s *state.State) T {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return s.Modules[t.String()].(T)
}

func TryGet[T state.GsqrModule](s *state.State) (T, bool) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	m, ok := s.Modules[t.String()].(T)
	return m, ok
}

// DotProduct returns 0 for mismatched lengths instead of failing; in
// practice both vectors have dimension state.EmbeddingDim.
func DotProduct(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
