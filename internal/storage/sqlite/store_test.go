package sqlite

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ivlev/spritegrid/internal/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestStoreAndLoadSheet(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	data := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}

	first, err := store.StoreSheet(ctx, "hero.png", data)
	if err != nil {
		t.Fatalf("store sheet: %v", err)
	}
	second, err := store.StoreSheet(ctx, "hero.png", data)
	if err != nil {
		t.Fatalf("store sheet again: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct ids, got %d twice", first)
	}

	rec, err := store.Sheet(ctx, first)
	if err != nil {
		t.Fatalf("get sheet: %v", err)
	}
	if rec.ID != first || rec.Name != "hero.png" || !bytes.Equal(rec.Data, data) {
		t.Fatalf("record = %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	list, err := store.ListSheets(ctx)
	if err != nil {
		t.Fatalf("list sheets: %v", err)
	}
	if len(list) != 2 || list[0].ID != second || list[0].Size != int64(len(data)) {
		t.Fatalf("list = %+v", list)
	}
}

func TestSheetNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.Sheet(context.Background(), 404); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreSheetRejectsEmptyData(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.StoreSheet(context.Background(), "x", nil); err == nil {
		t.Fatal("expected error for empty data")
	}
}

func TestReopenKeepsSheets(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sheets.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id, err := store.StoreSheet(context.Background(), "a", []byte("abc"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Sheet(context.Background(), id); err != nil {
		t.Fatalf("sheet after reopen: %v", err)
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "sheets.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
