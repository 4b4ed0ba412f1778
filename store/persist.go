package store

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

// On-disk layout: header | class offsets | labels | path buffer. All integer
// fields are little-endian. The header is padded to headerSize so the arrays
// that follow stay 4-byte aligned for the mmap views.
const (
	magic      = "GIDX"
	version    = uint16(1)
	headerSize = 64
)

type header struct {
	Magic      [4]byte
	Version    uint16
	_          uint16
	Stride     uint32
	Count      uint64
	NumClasses uint32
	_          [40]byte
}

func encodeHeader(h *header) ([]byte, error) {
	copy(h.Magic[:], magic)
	h.Version = version
	var w bytes.Buffer
	if err := binary.Write(&w, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	b := w.Bytes()
	if len(b) != headerSize {
		return nil, fmt.Errorf("store: header is %d bytes, want %d", len(b), headerSize)
	}
	return b, nil
}

func decodeHeader(src []byte) (*header, error) {
	if len(src) < headerSize {
		return nil, errors.New("store: file too short for header")
	}
	var h header
	if err := binary.Read(bytes.NewReader(src[:headerSize]), binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	if string(h.Magic[:]) != magic {
		return nil, errors.New("store: bad magic")
	}
	if h.Version != version {
		return nil, fmt.Errorf("store: unsupported version %d", h.Version)
	}
	return &h, nil
}

// Save writes the index to path so a later run can Open it without
// re-scanning the dataset.
func (s *PathStore) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("store: creating %s: %w", path, err)
	}
	defer f.Close()

	hdr, err := encodeHeader(&header{
		Stride:     uint32(s.stride),
		Count:      uint64(s.Len()),
		NumClasses: uint32(s.NumClasses()),
	})
	if err != nil {
		return err
	}
	w := bufio.NewWriterSize(f, 1<<20)
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, s.offsets); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, s.labels); err != nil {
		return err
	}
	if _, err := w.Write(s.buf); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("store: writing %s: %w", path, err)
	}
	return f.Sync()
}

type mapping struct {
	f    *os.File
	data mmap.MMap
}

func (m *mapping) close() error {
	if m.data != nil {
		if err := m.data.Unmap(); err != nil {
			return err
		}
		m.data = nil
	}
	if m.f != nil {
		err := m.f.Close()
		m.f = nil
		return err
	}
	return nil
}

// Open maps a file written by Save as a read-only PathStore. Labels, class
// offsets and the path buffer are views into the mapping, so opening a
// multi-gigabyte index allocates almost nothing. Callers must Close the
// store when done.
func Open(path string) (*PathStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("store: mapping %s: %w", path, err)
	}
	s, err := fromMapping(m)
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, fmt.Errorf("store: %s: %w", path, err)
	}
	s.backing = &mapping{f: f, data: m}
	return s, nil
}

func fromMapping(data []byte) (*PathStore, error) {
	h, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	offLen := (int(h.NumClasses) + 1) * 4
	lblLen := int(h.Count) * 4
	bufLen := int(h.Count) * int(h.Stride)
	want := headerSize + offLen + lblLen + bufLen
	if len(data) < want {
		return nil, fmt.Errorf("file is %d bytes, need %d", len(data), want)
	}
	offBytes := data[headerSize : headerSize+offLen]
	lblBytes := data[headerSize+offLen : headerSize+offLen+lblLen]
	buf := data[headerSize+offLen+lblLen : want]

	s := &PathStore{
		buf:     buf,
		stride:  int(h.Stride),
		offsets: unsafe.Slice((*int32)(unsafe.Pointer(&offBytes[0])), int(h.NumClasses)+1),
	}
	if h.Count > 0 {
		s.labels = unsafe.Slice((*int32)(unsafe.Pointer(&lblBytes[0])), int(h.Count))
	}
	if int(s.offsets[h.NumClasses]) != int(h.Count) {
		return nil, fmt.Errorf("class offsets end at %d, want %d", s.offsets[h.NumClasses], h.Count)
	}
	return s, nil
}
