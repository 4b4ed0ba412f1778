package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testPerClass() [][]string {
	return [][]string{
		{"/data/cat/1.jpg", "/data/cat/2.jpg"},
		{"/data/dog/a.jpg", "/data/dog/bb.jpg", "/data/dog/ccc.jpg"},
		{"/data/newt/long_name_image.jpg"},
	}
}

func checkStore(t *testing.T, s *PathStore) {
	t.Helper()
	perClass := testPerClass()

	n := 0
	for _, p := range perClass {
		n += len(p)
	}
	if s.Len() != n {
		t.Fatalf("Len = %d, want %d", s.Len(), n)
	}
	if s.NumClasses() != len(perClass) {
		t.Fatalf("NumClasses = %d, want %d", s.NumClasses(), len(perClass))
	}

	// Class ranges partition [0, n) contiguously and labels agree.
	sum := 0
	pos := 0
	for c := 0; c < s.NumClasses(); c++ {
		start, end := s.ClassRange(c)
		if start != pos {
			t.Errorf("class %d starts at %d, want %d", c, start, pos)
		}
		if end-start != len(perClass[c]) {
			t.Errorf("class %d has %d entries, want %d", c, end-start, len(perClass[c]))
		}
		for k := 0; k < s.ClassLen(c); k++ {
			i := s.ClassIndex(c, k)
			if s.Label(i) != c {
				t.Errorf("Label(%d) = %d, want %d", i, s.Label(i), c)
			}
			if s.Path(i) != perClass[c][k] {
				t.Errorf("Path(%d) = %q, want %q", i, s.Path(i), perClass[c][k])
			}
		}
		sum += s.ClassLen(c)
		pos = end
	}
	if sum != s.Len() {
		t.Errorf("class lengths sum to %d, want %d", sum, s.Len())
	}
}

func TestNew(t *testing.T) {
	s, err := New(testPerClass())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	checkStore(t, s)

	if want := len("/data/newt/long_name_image.jpg"); s.Stride() != want {
		t.Errorf("Stride = %d, want %d (longest path)", s.Stride(), want)
	}
}

func TestNewRejectsEmptyClass(t *testing.T) {
	_, err := New([][]string{{"/a/1.jpg"}, {}})
	if err == nil {
		t.Fatal("expected error for empty class")
	}
}

func TestSaveOpenRoundTrip(t *testing.T) {
	s, err := New(testPerClass())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "index.bin")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	opened, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer opened.Close()
	checkStore(t, opened)

	if opened.Stride() != s.Stride() {
		t.Errorf("opened stride %d, want %d", opened.Stride(), s.Stride())
	}
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "garbage.bin")
	if err := os.WriteFile(bad, []byte("this is not an index file at all"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(bad); err == nil {
		t.Error("expected error opening garbage file")
	}

	short := filepath.Join(dir, "short.bin")
	if err := os.WriteFile(short, []byte("GIDX"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(short); err == nil {
		t.Error("expected error opening truncated file")
	}
}

func TestTruncatedBody(t *testing.T) {
	s, err := New(testPerClass())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "index.bin")
	if err := s.Save(path); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b[:len(b)-10], 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error opening index with truncated body")
	}
}

func TestStringMentionsCounts(t *testing.T) {
	s, err := New(testPerClass())
	if err != nil {
		t.Fatal(err)
	}
	got := s.String()
	if want := fmt.Sprintf("%d classes", s.NumClasses()); !strings.Contains(got, want) {
		t.Errorf("String() = %q, want it to contain %q", got, want)
	}
}
