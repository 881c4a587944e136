package shapefile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
)

const (
	dbfHeaderLen     = 32
	dbfFieldLen      = 32
	dbfFieldTerm     = 0x0d
	dbfLiveRecord    = ' '
	shpRecordHdrLen  = 12
	shpNullShapeSize = 2 // content length in 16-bit words: the shape type only
)

// Table streams the rows of a .dbf file in record order. Only the .dbf is
// opened.
type Table struct {
	path   string
	f      *os.File
	sr     shp.SequentialReader
	fields []shp.Field
	count  int
	row    int
	err    error
	closed bool
}

// OpenTable opens the .dbf file at path and reads its header.
func OpenTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("shapefile: %w", err)
	}
	br := bufio.NewReaderSize(f, readBufferSize)
	hdr, count, err := readTableHeader(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shapefile: %s: %w", path, err)
	}
	sr := shp.SequentialReaderFromExt(newNullShapes(), io.NopCloser(io.MultiReader(bytes.NewReader(hdr), br)))
	if err := sr.Err(); err != nil {
		f.Close()
		return nil, fmt.Errorf("shapefile: %s: %w", path, err)
	}
	return &Table{path: path, f: f, sr: sr, fields: sr.Fields(), count: count}, nil
}

// readTableHeader consumes the header of a .dbf stream and returns it in
// the compact form go-shp expects: field descriptors directly followed by
// the terminator, with no trailing header bytes (dBase 7 and Visual FoxPro
// files carry extra ones).
func readTableHeader(r io.Reader) ([]byte, int, error) {
	head := make([]byte, dbfHeaderLen)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, 0, fmt.Errorf("truncated header: %w", err)
	}
	count := int(binary.LittleEndian.Uint32(head[4:8]))
	headerLen := int(binary.LittleEndian.Uint16(head[8:10]))
	recordLen := int(binary.LittleEndian.Uint16(head[10:12]))
	if headerLen < dbfHeaderLen+1 || recordLen < 1 {
		return nil, 0, fmt.Errorf("bad header: header length %d, record length %d", headerLen, recordLen)
	}

	rest := make([]byte, headerLen-dbfHeaderLen)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, 0, fmt.Errorf("truncated header: %w", err)
	}
	n, width := 0, 1
	for off := 0; off+dbfFieldLen <= len(rest) && rest[off] != dbfFieldTerm; off += dbfFieldLen {
		width += int(rest[off+16])
		n++
	}
	if n == 0 {
		return nil, 0, fmt.Errorf("no fields")
	}
	if width != recordLen {
		return nil, 0, fmt.Errorf("record length %d does not match field widths %d", recordLen, width)
	}

	out := make([]byte, 0, dbfHeaderLen+n*dbfFieldLen+1)
	out = append(out, head...)
	binary.LittleEndian.PutUint16(out[8:10], uint16(dbfHeaderLen+n*dbfFieldLen+1))
	out = append(out, rest[:n*dbfFieldLen]...)
	out = append(out, dbfFieldTerm)
	return out, count, nil
}

// Fields returns the field descriptors.
func (t *Table) Fields() []shp.Field { return t.fields }

// Count returns the record count from the header.
func (t *Table) Count() int { return t.count }

// Next reads the next row, stopping after the header's record count. A
// file holding fewer rows than that stops Next with an error.
func (t *Table) Next() bool {
	if t.closed || t.err != nil || t.row >= t.count {
		return false
	}
	if !t.sr.Next() {
		err := t.sr.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		t.err = fmt.Errorf("shapefile: %s: row %d: %w", t.path, t.row+1, err)
		return false
	}
	t.row++
	return true
}

// Attribute returns field i of the current row with padding removed. Some
// writers pad with NUL instead of spaces.
func (t *Table) Attribute(i int) string {
	return strings.TrimRight(t.sr.Attribute(i), "\x00 ")
}

// Err returns the read error that stopped Next, if any.
func (t *Table) Err() error { return t.err }

// Close closes the .dbf file. Later calls do nothing.
func (t *Table) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.f.Close(); err != nil {
		return fmt.Errorf("shapefile: close %s: %w", t.path, err)
	}
	return nil
}

// blankTable is the attribute stream handed to go-shp next to a .shp
// file: a table with no fields and an endless run of live one-byte rows.
// go-shp pairs every shape with a row; attributes are read by Table.
type blankTable struct {
	head []byte
}

func newBlankTable() *blankTable {
	head := make([]byte, dbfHeaderLen+1)
	binary.LittleEndian.PutUint16(head[8:10], dbfHeaderLen+1)
	binary.LittleEndian.PutUint16(head[10:12], 1)
	head[dbfHeaderLen] = dbfFieldTerm
	return &blankTable{head: head}
}

func (b *blankTable) Read(p []byte) (int, error) {
	n := copy(p, b.head)
	b.head = b.head[n:]
	for i := n; i < len(p); i++ {
		p[i] = dbfLiveRecord
	}
	return len(p), nil
}

func (b *blankTable) Close() error { return nil }

// nullShapes is the geometry stream handed to go-shp next to a .dbf file:
// a zeroed 100-byte header followed by an endless run of Null shape
// records.
type nullShapes struct {
	pending []byte
	rec     [shpRecordHdrLen]byte
	num     uint32
}

func newNullShapes() *nullShapes {
	return &nullShapes{pending: make([]byte, headerLen)}
}

func (s *nullShapes) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.pending) == 0 {
			s.num++
			binary.BigEndian.PutUint32(s.rec[0:4], s.num)
			binary.BigEndian.PutUint32(s.rec[4:8], shpNullShapeSize)
			binary.LittleEndian.PutUint32(s.rec[8:12], uint32(shp.NULL))
			s.pending = s.rec[:]
		}
		c := copy(p[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *nullShapes) Close() error { return nil }
