package vm

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cespare/xxhash/v2"

	"github.com/nightjar-lang/nightjar/internal/reader"
	"github.com/nightjar-lang/nightjar/internal/value"
)

// memoKey identifies one memoized call: which parselet, at what entry
// offset, with which concrete arguments.
type memoKey struct {
	calleeIdx int
	offset    reader.Offset
	argsHash  uint64
}

// memoEntry is a cached call outcome. Because a call always collapses to
// a single capture at its call site, replaying a hit only needs the
// collapsed value and where the reader ends up, not a full capture-stack
// snapshot.
type memoEntry struct {
	ok         bool
	value      value.Value
	exitOffset reader.Offset
}

// memoTable caches call outcomes for one Thread's run, bounded so a
// pathological grammar can't grow it without limit.
type memoTable struct {
	cache *lru.Cache[memoKey, memoEntry]
}

const memoCapacity = 8192

func newMemoTable() *memoTable {
	c, err := lru.New[memoKey, memoEntry](memoCapacity)
	if err != nil {
		// Only returns an error for a non-positive size, which memoCapacity
		// never is.
		panic(err)
	}
	return &memoTable{cache: c}
}

func (m *memoTable) get(k memoKey) (memoEntry, bool) {
	return m.cache.Get(k)
}

func (m *memoTable) put(k memoKey, e memoEntry) {
	m.cache.Add(k, e)
}

// hashArgs folds a call's generics and arguments into one key component.
// Values hash via their String() rendering, which is stable for every
// scalar and structurally recurses for list/dict, matching the deep
// equality callers expect from two calls with "the same" arguments.
func hashArgs(args callArgs, generics []value.Value) uint64 {
	h := xxhash.New()
	writeValues(h, generics)
	h.Write([]byte{0})
	writeValues(h, args.Positional)
	h.Write([]byte{0})
	for _, name := range sortedNames(args.Named) {
		h.Write([]byte(name))
		h.Write([]byte{'='})
		h.Write([]byte(args.Named[name].String()))
		h.Write([]byte{';'})
	}
	return h.Sum64()
}

func writeValues(h *xxhash.Digest, vs []value.Value) {
	for _, v := range vs {
		h.Write([]byte(v.String()))
		h.Write([]byte{','})
	}
}

func sortedNames(m map[string]value.Value) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
