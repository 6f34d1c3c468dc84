// Package testutil provides shared test helpers for setting up content trees,
// databases, and a running content service.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/inkwell/internal/content"
	"github.com/starford/inkwell/internal/search"
	"github.com/starford/inkwell/internal/storage"
)

// Quiet is a logger that discards everything.
var Quiet = slog.New(slog.DiscardHandler)

// Post returns a minimal valid post source with the given date and body.
func Post(date, body string) string {
	return "---\ndate: " + date + "\n---\n" + body + "\n"
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *search.DB {
	t.Helper()
	db, err := search.Open(filepath.Join(t.TempDir(), "inkwell-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// WriteFile writes content under root, creating parent directories.
func WriteFile(t *testing.T, root, key, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestTree creates a temporary content tree holding files.
func TestTree(t *testing.T, files map[string]string, match *storage.Matcher) *storage.Tree {
	t.Helper()
	root := t.TempDir()
	for key, body := range files {
		WriteFile(t, root, key, body)
	}
	tree, err := storage.NewTree(root, match)
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

// Env is a running content service with its search mirror.
type Env struct {
	Tree   *storage.Tree
	Client *content.Client
	DB     *search.DB
}

// StartContent runs a content service over tree, mirrored into a fresh
// database. Both are stopped when the test ends. It returns once the startup
// scan is visible in the mirror.
func StartContent(t *testing.T, tree *storage.Tree) *Env {
	t.Helper()
	db := TestDB(t)
	mirror := search.NewMirror(db, 0, Quiet)
	ctx, cancel := context.WithCancel(context.Background())
	mirrorDone := make(chan error, 1)
	go func() { mirrorDone <- mirror.Run(ctx) }()

	svc, client := content.New(tree, nil, content.WithLogger(Quiet), content.WithObserver(mirror))
	svcDone := make(chan error, 1)
	go func() { svcDone <- svc.Run() }()
	t.Cleanup(func() {
		client.Close()
		if err := <-svcDone; err != nil {
			t.Errorf("content service: %v", err)
		}
		cancel()
		<-mirrorDone
	})
	<-svc.Ready()

	ix, err := client.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	Eventually(t, 2*time.Second, func() bool {
		all, err := db.AllChecksums()
		return err == nil && len(all) == ix.Len()
	}, "search mirror did not sync")

	return &Env{Tree: tree, Client: client, DB: db}
}

// Eventually polls fn until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
