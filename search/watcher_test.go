package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherSignalsOnChange(t *testing.T) {
	root := t.TempDir()

	w, err := NewWatcher(root, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(filepath.Join(root, "new.txt"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("no change signal after file creation")
	}
}

func TestWatcherCoalescesBursts(t *testing.T) {
	root := t.TempDir()

	w, err := NewWatcher(root, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for i := 0; i < 10; i++ {
		name := filepath.Join(root, "burst.txt")
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("no change signal after burst")
	}

	// The burst settles into at most one trailing signal.
	time.Sleep(2 * debounceWindow)
	drained := 0
	for {
		select {
		case <-w.Changes():
			drained++
			continue
		default:
		}
		break
	}
	if drained > 1 {
		t.Errorf("burst produced %d extra signals", drained+1)
	}
}
