package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestCreateAndDeleteFile(t *testing.T) {
	e, _, home := newTestExecutor(t, "linux", false)
	ctx := context.Background()

	result, err := e.CreateFile(ctx, "notes.txt")
	if err != nil || !result.Success {
		t.Fatalf("CreateFile failed: %+v, %v", result, err)
	}
	path := filepath.Join(home, "Documents", "notes.txt")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected file at %s: %v", path, err)
	}

	result, _ = e.DeleteFile(ctx, "notes.txt")
	if !result.Success || result.Extra["path"] != path {
		t.Errorf("Unexpected delete result %+v", result)
	}

	result, _ = e.DeleteFile(ctx, "notes.txt")
	if result.Success || result.Message != "File not found: notes.txt" {
		t.Errorf("Expected not found, got %+v", result)
	}
}

func TestDeleteFile_SearchesDownloads(t *testing.T) {
	e, _, home := newTestExecutor(t, "linux", false)
	dir := filepath.Join(home, "Downloads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "setup.exe"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, _ := e.DeleteFile(context.Background(), "setup.exe")
	if !result.Success {
		t.Errorf("Expected the file in downloads to be deleted, got %+v", result)
	}
}

func TestListFiles(t *testing.T) {
	e, _, home := newTestExecutor(t, "linux", false)
	dir := filepath.Join(home, "Documents")
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 25; i++ {
		name := filepath.Join(dir, fmt.Sprintf("file%02d.txt", i))
		if err := os.WriteFile(name, []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	result, err := e.ListFiles(context.Background(), "documents")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	files := result.Extra["files"].([]FileInfo)
	if !result.Success || result.Extra["total"] != 25 || len(files) != maxListedFiles {
		t.Errorf("Unexpected result %+v", result)
	}
	if files[0].Name != "file00.txt" || files[0].Size != 4 {
		t.Errorf("Expected sorted listing, got %+v", files[0])
	}

	result, _ = e.ListFiles(context.Background(), "nowhere")
	if result.Success || result.Message != "Directory not found: nowhere" {
		t.Errorf("Expected directory not found, got %+v", result)
	}
}

func TestSearchFiles(t *testing.T) {
	e, _, home := newTestExecutor(t, "linux", false)
	dir := filepath.Join(home, "Documents", "reports", "2024")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Budget.xlsx", "budget-notes.txt", "holiday.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	result, err := e.SearchFiles(context.Background(), "budget", "documents")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.Success || result.Extra["total"] != 2 {
		t.Errorf("Expected two case-insensitive matches, got %+v", result)
	}
	if result.Message != "Found 2 files matching 'budget'" {
		t.Errorf("Unexpected message %q", result.Message)
	}
}
