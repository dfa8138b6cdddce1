package fsxlocal_test

import (
	"context"
	"testing"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/fsx"
	"github.com/alebhayan/King-Laminaat/pkg/fsx/fsxlocal"
)

func TestWriteReadRoundTrip(t *testing.T) {
	fs, err := fsxlocal.NewLocalFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFileSystem: %v", err)
	}
	ctx := context.Background()

	if err := fs.WriteFile(ctx, "audit/2026/10/14/a.jsonl", []byte("{}\n")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ok, err := fs.Exists(ctx, "audit/2026/10/14/a.jsonl")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	data, err := fs.ReadFile(ctx, "audit/2026/10/14/a.jsonl")
	if err != nil || string(data) != "{}\n" {
		t.Fatalf("ReadFile = %q, %v", data, err)
	}

	if err := fs.WriteFile(ctx, "audit/2026/10/14/a.jsonl", []byte("x")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if data, _ := fs.ReadFile(ctx, "audit/2026/10/14/a.jsonl"); string(data) != "x" {
		t.Fatalf("overwrite not applied: %q", data)
	}
}

func TestMissingFile(t *testing.T) {
	fs, _ := fsxlocal.NewLocalFileSystem(t.TempDir())

	if ok, err := fs.Exists(context.Background(), "nope"); err != nil || ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if _, err := fs.ReadFile(context.Background(), "nope"); !errx.IsCode(err, fsx.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRejectsEscapingPaths(t *testing.T) {
	fs, _ := fsxlocal.NewLocalFileSystem(t.TempDir())

	for _, p := range []string{"", "../etc/passwd", "a/../../b"} {
		if err := fs.WriteFile(context.Background(), p, []byte("x")); !errx.IsCode(err, fsx.CodeInvalidPath) {
			t.Fatalf("%q: expected invalid path, got %v", p, err)
		}
	}
}
