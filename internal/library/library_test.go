package library

import (
	"os"
	"path/filepath"
	"testing"
)

// newTestLibrary builds a small tree:
//
//	root/
//	  Pink Floyd/
//	    The Wall/
//	      01 - In the Flesh.mp3
//	      02 - The Thin Ice.mp3
//	      cover.jpg
//	  Singles/
//	    song.flac
//	  .hidden/
//	  notes.txt
func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	root := t.TempDir()

	dirs := []string{
		filepath.Join(root, "Pink Floyd", "The Wall"),
		filepath.Join(root, "Singles"),
		filepath.Join(root, ".hidden"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}

	files := []string{
		filepath.Join(root, "Pink Floyd", "The Wall", "01 - In the Flesh.mp3"),
		filepath.Join(root, "Pink Floyd", "The Wall", "02 - The Thin Ice.mp3"),
		filepath.Join(root, "Pink Floyd", "The Wall", "cover.jpg"),
		filepath.Join(root, "Singles", "song.flac"),
		filepath.Join(root, "notes.txt"),
	}
	for _, f := range files {
		if err := os.WriteFile(f, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	lib, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	return lib
}

func TestNewRejectsMissingDir(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestNewRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err == nil {
		t.Fatal("expected error for non-directory")
	}
}

func TestResolveTraversal(t *testing.T) {
	lib := newTestLibrary(t)

	tests := []struct {
		rel     string
		wantErr bool
	}{
		{"Singles/song.flac", false},
		{"", false},
		{".", false},
		{"../outside", false}, // leading .. collapses to the root
		{"Singles/../../etc/passwd", false},
	}

	for _, tt := range tests {
		abs, err := lib.Resolve(tt.rel)
		if (err != nil) != tt.wantErr {
			t.Errorf("Resolve(%q) error = %v", tt.rel, err)
			continue
		}
		if err == nil && abs != lib.Root() && !filepath.IsAbs(abs) {
			t.Errorf("Resolve(%q) = %q, not absolute", tt.rel, abs)
		}
		if err == nil {
			rel, rerr := filepath.Rel(lib.Root(), abs)
			if rerr != nil || rel == ".." || filepath.IsAbs(rel) {
				t.Errorf("Resolve(%q) escaped root: %q", tt.rel, abs)
			}
		}
	}
}

func TestTree(t *testing.T) {
	lib := newTestLibrary(t)

	folders, err := lib.Tree("")
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}

	if len(folders) != 2 {
		t.Fatalf("folders = %+v, want Pink Floyd and Singles", folders)
	}
	if folders[0].Name != "Pink Floyd" || folders[1].Name != "Singles" {
		t.Errorf("unexpected order: %+v", folders)
	}
	if !folders[0].HasSubdirs {
		t.Error("Pink Floyd should report subdirs")
	}
	if folders[1].AudioCount != 1 {
		t.Errorf("Singles audio count = %d, want 1", folders[1].AudioCount)
	}
}

func TestTreeSubfolder(t *testing.T) {
	lib := newTestLibrary(t)

	folders, err := lib.Tree("Pink Floyd")
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(folders) != 1 || folders[0].Name != "The Wall" {
		t.Fatalf("folders = %+v", folders)
	}
	if folders[0].AudioCount != 2 {
		t.Errorf("audio count = %d, want 2", folders[0].AudioCount)
	}
	if folders[0].Path != "Pink Floyd/The Wall" {
		t.Errorf("path = %q", folders[0].Path)
	}
}

func TestTreeMissingDir(t *testing.T) {
	lib := newTestLibrary(t)
	if _, err := lib.Tree("does-not-exist"); err == nil {
		t.Fatal("expected error")
	}
}

func TestFiles(t *testing.T) {
	lib := newTestLibrary(t)

	files, err := lib.Files("")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	// Only audio files, sorted by path; cover.jpg and notes.txt excluded.
	if len(files) != 3 {
		t.Fatalf("files = %+v, want 3 audio files", files)
	}
	if files[0].Name != "01 - In the Flesh.mp3" {
		t.Errorf("files[0] = %+v", files[0])
	}
	if files[2].Path != "Singles/song.flac" {
		t.Errorf("files[2].Path = %q", files[2].Path)
	}
	if files[0].Folder != "Pink Floyd/The Wall" {
		t.Errorf("files[0].Folder = %q", files[0].Folder)
	}
	if files[0].Size != 1 {
		t.Errorf("files[0].Size = %d", files[0].Size)
	}
}

func TestFilesScoped(t *testing.T) {
	lib := newTestLibrary(t)

	files, err := lib.Files("Singles")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 1 || files[0].Name != "song.flac" {
		t.Fatalf("files = %+v", files)
	}
	if files[0].Folder != "." {
		t.Errorf("Folder = %q, want .", files[0].Folder)
	}
}

func TestSiblings(t *testing.T) {
	lib := newTestLibrary(t)

	abs, err := lib.Resolve("Pink Floyd/The Wall/01 - In the Flesh.mp3")
	if err != nil {
		t.Fatal(err)
	}

	siblings := lib.Siblings(abs)
	if len(siblings) != 2 {
		t.Fatalf("siblings = %+v, want the two mp3s", siblings)
	}
}

func TestRename(t *testing.T) {
	lib := newTestLibrary(t)

	newRel, err := lib.Rename("Singles/song.flac", "renamed.flac")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if newRel != "Singles/renamed.flac" {
		t.Errorf("new path = %q", newRel)
	}

	if _, err := os.Stat(filepath.Join(lib.Root(), "Singles", "renamed.flac")); err != nil {
		t.Errorf("renamed file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(lib.Root(), "Singles", "song.flac")); !os.IsNotExist(err) {
		t.Error("old file still present")
	}
}

func TestRenameValidation(t *testing.T) {
	lib := newTestLibrary(t)

	tests := []struct {
		name    string
		newName string
	}{
		{"path separator", "sub/evil.mp3"},
		{"backslash", `sub\evil.mp3`},
		{"empty", ""},
		{"dotfile", ".hidden.mp3"},
		{"wrong extension", "song.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := lib.Rename("Singles/song.flac", tt.newName); err == nil {
				t.Errorf("Rename to %q succeeded, want error", tt.newName)
			}
		})
	}
}

func TestRenameNoOverwrite(t *testing.T) {
	lib := newTestLibrary(t)

	if _, err := lib.Rename(
		"Pink Floyd/The Wall/01 - In the Flesh.mp3",
		"02 - The Thin Ice.mp3",
	); err == nil {
		t.Fatal("expected error renaming onto an existing file")
	}
}

func TestRenameMissingFile(t *testing.T) {
	lib := newTestLibrary(t)
	if _, err := lib.Rename("Singles/ghost.mp3", "new.mp3"); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestRelRoundTrip(t *testing.T) {
	lib := newTestLibrary(t)

	abs, err := lib.Resolve("Singles/song.flac")
	if err != nil {
		t.Fatal(err)
	}
	if rel := lib.Rel(abs); rel != "Singles/song.flac" {
		t.Errorf("Rel = %q", rel)
	}
}
