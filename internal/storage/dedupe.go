package storage

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
)

// Deduper drops rows whose key cells were already seen during the run. Keys
// are kept as 128-bit xxh3 fingerprints rather than strings, so memory stays
// flat however wide the key cells are.
type Deduper struct {
	idx []int

	mu   sync.Mutex
	seen map[xxh3.Uint128]struct{}
	buf  []byte
}

// NewDeduper resolves keys against columns, case-insensitively.
func NewDeduper(columns, keys []string) (*Deduper, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("dedupe: no key columns")
	}
	idx := make([]int, 0, len(keys))
	for _, k := range keys {
		pos := -1
		for i, c := range columns {
			if strings.EqualFold(c, k) {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil, fmt.Errorf("dedupe: key column %q not in row schema", k)
		}
		idx = append(idx, pos)
	}
	return &Deduper{idx: idx, seen: make(map[xxh3.Uint128]struct{})}, nil
}

// Seen records the key of row and reports whether it was recorded before.
func (d *Deduper) Seen(row []any) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.buf = d.buf[:0]
	for n, i := range d.idx {
		if n > 0 {
			d.buf = append(d.buf, 0x1f)
		}
		var v any
		if i < len(row) {
			v = row[i]
		}
		d.buf = appendKey(d.buf, v)
	}
	h := xxh3.Hash128(d.buf)
	if _, ok := d.seen[h]; ok {
		return true
	}
	d.seen[h] = struct{}{}
	return false
}

// Len returns the number of distinct keys seen.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// appendKey writes a type-tagged encoding of v so that 1, 1.0 and "1" stay
// distinct keys.
func appendKey(b []byte, v any) []byte {
	switch t := v.(type) {
	case nil:
		return append(b, 0x00)
	case string:
		b = append(b, 's')
		return append(b, t...)
	case int64:
		b = append(b, 'i')
		return strconv.AppendInt(b, t, 10)
	case int:
		b = append(b, 'i')
		return strconv.AppendInt(b, int64(t), 10)
	case float64:
		b = append(b, 'f')
		return strconv.AppendUint(b, math.Float64bits(t), 16)
	case bool:
		b = append(b, 'b')
		return strconv.AppendBool(b, t)
	case time.Time:
		b = append(b, 't')
		return t.UTC().AppendFormat(b, time.RFC3339Nano)
	case []byte:
		b = append(b, 'x')
		return append(b, t...)
	default:
		b = append(b, 'v')
		return append(b, fmt.Sprint(t)...)
	}
}
