package migrations

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(files, "sql")
	if err != nil {
		t.Fatalf("read embedded dir: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no migrations embedded")
	}

	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	for name := range names {
		if strings.HasSuffix(name, ".up.sql") {
			down := strings.TrimSuffix(name, ".up.sql") + ".down.sql"
			if !names[down] {
				t.Errorf("%s has no matching %s", name, down)
			}
		}
	}
}

func TestSourceWalksVersions(t *testing.T) {
	src, err := Source()
	if err != nil {
		t.Fatalf("Source(): %v", err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil {
		t.Fatalf("First(): %v", err)
	}
	if first != 1 {
		t.Errorf("first version = %d, want 1", first)
	}

	r, identifier, err := src.ReadUp(first)
	if err != nil {
		t.Fatalf("ReadUp(%d): %v", first, err)
	}
	defer r.Close()
	if identifier != "savings_cache" {
		t.Errorf("identifier = %q, want savings_cache", identifier)
	}

	if _, err := src.Next(99); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Next past the end = %v, want fs.ErrNotExist", err)
	}
}

func TestVersion(t *testing.T) {
	v, err := Version()
	if err != nil {
		t.Fatalf("Version(): %v", err)
	}
	if v != 2 {
		t.Errorf("Version() = %d, want 2", v)
	}
}
