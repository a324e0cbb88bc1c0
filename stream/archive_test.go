package stream

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"

	"github.com/kbukum/streamkit/errors"
)

func entryNames(t *testing.T, s *Objects) []any {
	t.Helper()
	return toList(t, s.Get("Name").Invoke())
}

func TestZip_RoundTripKeepsOrder(t *testing.T) {
	files := []*Entry{
		NewEntry("LICENSE", func() *Bytes { return FromString("MIT").Utf8() }),
		NewEntry("README.md", func() *Bytes { return FromString("# streamkit\n").Utf8() }),
	}
	archive := toBytes(t, FromSlice(files).ToZip())

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"LICENSE", "README.md"}, names); diff != "" {
		t.Errorf("entry order mismatch (-want +got):\n%s", diff)
	}

	entries := FromBytes(archive).FromZip()
	if diff := cmp.Diff([]any{"LICENSE", "README.md"}, entryNames(t, entries)); diff != "" {
		t.Errorf("FromZip names mismatch (-want +got):\n%s", diff)
	}
	contents := toList(t, entries.Get("Content").Invoke().Get("Utf8").Invoke().Get("ToStr").Invoke())
	if diff := cmp.Diff([]any{"MIT", "# streamkit\n"}, contents); diff != "" {
		t.Errorf("FromZip contents mismatch (-want +got):\n%s", diff)
	}
}

func TestZip_DirectoriesAndStore(t *testing.T) {
	mod := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	files := []any{
		NewDir("docs"),
		NewEntry("docs/a.txt", func() *Bytes { return FromString("aaaa").Utf8() }).WithModTime(mod),
		nil,
	}
	archive := toBytes(t, FromSlice(files).ToZip(WithZipStore()))

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("got %d entries, want 2", len(zr.File))
	}
	if zr.File[0].Name != "docs/" || !zr.File[0].FileInfo().IsDir() {
		t.Errorf("first entry = %q, want directory docs/", zr.File[0].Name)
	}
	if zr.File[1].Method != zip.Store {
		t.Errorf("method = %d, want Store", zr.File[1].Method)
	}
	if !zr.File[1].Modified.Equal(mod) {
		t.Errorf("modified = %v, want %v", zr.File[1].Modified, mod)
	}

	entries := toList(t, FromBytes(archive).FromZip().Get("IsDir").Invoke())
	if diff := cmp.Diff([]any{true, false}, entries); diff != "" {
		t.Errorf("IsDir mismatch (-want +got):\n%s", diff)
	}
}

func TestZip_RejectsNonFiles(t *testing.T) {
	err := FromSlice([]int{1, 2}).ToZip().Err()
	if !errors.IsCode(err, errors.ErrCodeUnsupportedElementType) {
		t.Errorf("ints: expected UNSUPPORTED_ELEMENT_TYPE, got %v", err)
	}

	_, err = FromSlice([]any{1}).ToZip().ToBytes(t.Context())
	if !errors.IsCode(err, errors.ErrCodeUnsupportedElementType) {
		t.Errorf("dynamic ints: expected UNSUPPORTED_ELEMENT_TYPE at pull, got %v", err)
	}
}

func TestZip_FromCorruptArchive(t *testing.T) {
	_, err := FromString("not a zip").Utf8().FromZip().ToList(t.Context())
	if !errors.IsCode(err, errors.ErrCodeSourceRead) {
		t.Errorf("expected SOURCE_READ, got %v", err)
	}
}

func TestFile_ZipStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.zip")
	files := []*Entry{
		NewEntry("one.txt", func() *Bytes { return FromString("1").Utf8() }),
		NewEntry("two.txt", func() *Bytes { return FromString("22").Utf8() }),
	}
	if err := FromSlice(files).ToZip().Write(t.Context(), path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	entries, ok := NewFile(path).Stream().(*Objects)
	if !ok {
		t.Fatalf("Stream of a .zip is %T, want *Objects", NewFile(path).Stream())
	}
	sizes := toList(t, entries.Get("Size").Invoke())
	if diff := cmp.Diff([]any{int64(1), int64(2)}, sizes); diff != "" {
		t.Errorf("sizes mismatch (-want +got):\n%s", diff)
	}
	contents := toList(t, entries.Get("Content").Invoke().Get("Utf8").Invoke().Get("ToStr").Invoke())
	if diff := cmp.Diff([]any{"1", "22"}, contents); diff != "" {
		t.Errorf("contents mismatch (-want +got):\n%s", diff)
	}
}

func writeTar(t *testing.T, members map[string]string, dirs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, d := range dirs {
		if err := tw.WriteHeader(&tar.Header{Name: d + "/", Typeflag: tar.TypeDir, Mode: 0o755}); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"docs/a.txt", "docs/b.txt"} {
		body, ok := members[name]
		if !ok {
			continue
		}
		hdr := &tar.Header{Name: name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(body))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFile_CompressedTarMembers(t *testing.T) {
	raw := writeTar(t, map[string]string{"docs/a.txt": "alpha", "docs/b.txt": "beta"}, "docs")
	path := filepath.Join(t.TempDir(), "bundle.tar.zst")
	if err := FromBytes(raw).Zstd(0).Write(t.Context(), path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	entries, ok := NewFile(path).Stream().(*Objects)
	if !ok {
		t.Fatal("Stream of a .tar.zst is not *Objects")
	}
	if diff := cmp.Diff([]any{"docs", "docs/a.txt", "docs/b.txt"}, entryNames(t, entries)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	got := toList(t, entries.
		Get("Content").Invoke().
		Exists().
		Get("Utf8").Invoke().
		Get("ToStr").Invoke())
	if diff := cmp.Diff([]any{"alpha", "beta"}, got); diff != "" {
		t.Errorf("contents mismatch (-want +got):\n%s", diff)
	}
}

func TestFile_GzipContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt.gz")
	if err := FromString("gzipped notes").Utf8().Gzip().Write(t.Context(), path); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f := NewFile(path)
	if f.Name() != "notes.txt.gz" {
		t.Errorf("Name = %q", f.Name())
	}
	if got := toBytes(t, f.Content()); string(got) != "gzipped notes" {
		t.Errorf("Content = %q", got)
	}
	if _, ok := f.Stream().(*Bytes); !ok {
		t.Errorf("Stream of a .txt.gz is %T, want *Bytes", f.Stream())
	}
	raw := toBytes(t, f.Raw())
	if !bytes.HasPrefix(raw, []byte{0x1f, 0x8b}) {
		t.Errorf("Raw is not the compressed file: % x", raw[:2])
	}
}

func TestFile_Missing(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "gone.txt")).Content().ToBytes(t.Context())
	if !errors.IsCode(err, errors.ErrCodeSourceRead) {
		t.Errorf("expected SOURCE_READ, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("cause should be os.ErrNotExist, got %v", err)
	}
}
