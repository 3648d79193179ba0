package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtOf(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":        "jpg",
		"archive.tar.gz":   "gz",
		"/some/dir/README": DefaultExt,
		"dir.d/notes.txt":  "txt",
		"trailing.":        DefaultExt,
	}
	for in, want := range cases {
		if got := extOf(in); got != want {
			t.Errorf("extOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReadLines(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "files.txt")
	if err := os.WriteFile(filename, []byte("a.txt\n\nb.bin\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := readLines(filename)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a.txt", "", "b.bin"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
