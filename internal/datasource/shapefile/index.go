package shapefile

import (
	"encoding/binary"
	"fmt"
	"os"
)

const (
	headerLen     = 100
	indexEntryLen = 8
	fileCode      = 9994
)

// Index is the content of a .shx file: for every record, its offset and
// content length in the .shp file.
type Index struct {
	entries []byte
}

// ReadIndex loads the .shx file at path.
func ReadIndex(path string) (*Index, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shapefile: read index: %w", err)
	}
	if len(b) < headerLen {
		return nil, fmt.Errorf("shapefile: index %s: truncated header (%d bytes)", path, len(b))
	}
	if code := binary.BigEndian.Uint32(b[0:4]); code != fileCode {
		return nil, fmt.Errorf("shapefile: index %s: bad file code %d", path, code)
	}
	body := b[headerLen:]
	if len(body)%indexEntryLen != 0 {
		return nil, fmt.Errorf("shapefile: index %s: %d trailing bytes", path, len(body)%indexEntryLen)
	}
	return &Index{entries: body}, nil
}

// Len returns the number of records.
func (ix *Index) Len() int { return len(ix.entries) / indexEntryLen }

// Entry returns the byte offset of record i's header and the byte length
// of its content, i being 0-based.
func (ix *Index) Entry(i int) (offset, length int64) {
	e := ix.entries[i*indexEntryLen:]
	// both fields are counted in 16-bit words
	offset = int64(binary.BigEndian.Uint32(e[0:4])) * 2
	length = int64(binary.BigEndian.Uint32(e[4:8])) * 2
	return offset, length
}

// Consumed returns how many .shp bytes have been read once the first n
// records are consumed.
func (ix *Index) Consumed(n int) int64 {
	if n <= 0 || ix.Len() == 0 {
		return headerLen
	}
	if n > ix.Len() {
		n = ix.Len()
	}
	off, length := ix.Entry(n - 1)
	return off + 8 + length
}
