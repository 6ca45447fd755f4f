package tree

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexandro/docindex-mcp/extract"
	"github.com/lexandro/docindex-mcp/ignore"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func newTestWalker(t *testing.T) (*Walker, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "documents/welcome.txt", "Welcome to search")
	writeFile(t, root, "documents/reports/q1.pdf", "%PDF-1.4")
	writeFile(t, root, "beta/readme.rtf", `{\rtf1 hi}`)
	writeFile(t, root, "Alpha/notes.txt", "notes")
	writeFile(t, root, "b.txt", "b")
	writeFile(t, root, "A.txt", "A")
	writeFile(t, root, "a.txt", "a")
	writeFile(t, root, ".hidden/secret.txt", "secret")
	writeFile(t, root, ".env", "KEY=1")

	matcher := ignore.NewMatcher(ignore.MatcherOptions{RootDir: root})
	walker, err := New(root, matcher)
	require.NoError(t, err)
	return walker, walker.Root()
}

func entryNames(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func Test_New_RootMustBeDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "file.txt", "x")

	_, err := New(filepath.Join(root, "file.txt"), nil)
	assert.ErrorIs(t, err, ErrNotADirectory)

	_, err = New(filepath.Join(root, "missing"), nil)
	assert.Error(t, err)
}

func Test_Walker_List_RootOrdering(t *testing.T) {
	walker, _ := newTestWalker(t)

	listing, err := walker.List(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Alpha", "beta", "documents", "A.txt", "a.txt", "b.txt"}, entryNames(listing.Entries))
	assert.Equal(t, "", listing.CurrentPath)
	assert.Nil(t, listing.ParentPath)
}

func Test_Walker_List_Subdirectory(t *testing.T) {
	walker, _ := newTestWalker(t)

	listing, err := walker.List(context.Background(), "documents")
	require.NoError(t, err)

	require.Len(t, listing.Entries, 2)
	folder, file := listing.Entries[0], listing.Entries[1]

	assert.Equal(t, TypeFolder, folder.Type)
	assert.Equal(t, "documents/reports", folder.Path)
	assert.Zero(t, folder.Size)

	assert.Equal(t, TypeFile, file.Type)
	assert.Equal(t, "documents/welcome.txt", file.Path)
	assert.Equal(t, "documents", file.ParentPath)
	assert.Equal(t, int64(len("Welcome to search")), file.Size)
	assert.Equal(t, extract.FormatTXT, file.Format)
	assert.False(t, file.ModifiedAt.IsZero())

	require.NotNil(t, listing.ParentPath)
	assert.Equal(t, "", *listing.ParentPath)
	assert.Equal(t, "documents", listing.CurrentPath)
}

func Test_Walker_List_NestedParentPath(t *testing.T) {
	walker, _ := newTestWalker(t)

	listing, err := walker.List(context.Background(), "documents/reports/")
	require.NoError(t, err)
	require.NotNil(t, listing.ParentPath)
	assert.Equal(t, "documents", *listing.ParentPath)
	assert.Equal(t, "documents/reports", listing.CurrentPath)
}

func Test_Walker_List_Errors(t *testing.T) {
	walker, _ := newTestWalker(t)
	ctx := context.Background()

	_, err := walker.List(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = walker.List(ctx, "b.txt")
	assert.ErrorIs(t, err, ErrNotADirectory)

	_, err = walker.List(ctx, "b.txt/child")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = walker.List(ctx, "../")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = walker.List(ctx, ".hidden")
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_Walker_List_Permission(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	walker, root := newTestWalker(t)
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Mkdir(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	_, err := walker.List(context.Background(), "locked")
	assert.ErrorIs(t, err, ErrPermission)
}

func Test_Walker_List_Symlinks(t *testing.T) {
	walker, root := newTestWalker(t)
	outside := t.TempDir()
	writeFile(t, outside, "leak.txt", "leak")

	if err := os.Symlink(filepath.Join(outside, "leak.txt"), filepath.Join(root, "escape.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(root, "b.txt"), filepath.Join(root, "link.txt")))

	listing, err := walker.List(context.Background(), "")
	require.NoError(t, err)

	names := entryNames(listing.Entries)
	assert.Contains(t, names, "link.txt")
	assert.NotContains(t, names, "escape.txt")
}

func Test_Walker_List_Cancelled(t *testing.T) {
	walker, _ := newTestWalker(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := walker.List(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Walker_Resolve_PathContainment(t *testing.T) {
	walker, root := newTestWalker(t)

	hostile := []string{
		"..",
		"../",
		"../etc/passwd",
		"documents/../../etc",
		"documents/..",
		`..\..\windows`,
		"/etc/passwd",
		`\etc\passwd`,
		`C:\Windows`,
		"c:/windows",
		"a\x00b",
		"./../x",
	}
	for _, input := range hostile {
		_, _, err := walker.Resolve(input)
		assert.ErrorIs(t, err, ErrInvalidPath, "input %q", input)
	}

	benign := map[string]string{
		"":                         "",
		".":                        "",
		"documents/":               "documents",
		"./documents//welcome.txt": "documents/welcome.txt",
		`documents\welcome.txt`:    "documents/welcome.txt",
		"missing/file.txt":         "missing/file.txt",
	}
	for input, want := range benign {
		abs, clean, err := walker.Resolve(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, clean)
		assert.True(t, abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)), "input %q escaped to %s", input, abs)
	}
}

func Test_Walker_Resolve_SymlinkEscape(t *testing.T) {
	walker, root := newTestWalker(t)
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "outside")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, _, err := walker.Resolve("outside")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = walker.List(context.Background(), "outside")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func Test_Walker_Open(t *testing.T) {
	walker, _ := newTestWalker(t)

	f, err := walker.Open("documents/welcome.txt")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "Welcome to search", string(data))
	assert.Equal(t, "welcome.txt", f.Name)
	assert.Equal(t, "text/plain; charset=utf-8", f.ContentType)
	assert.Equal(t, int64(17), f.Size)
}

func Test_Walker_Open_Errors(t *testing.T) {
	walker, _ := newTestWalker(t)

	_, err := walker.Open("documents")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = walker.Open("")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = walker.Open("documents/missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = walker.Open("../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = walker.Open(".hidden/secret.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_Walker_ReadFile(t *testing.T) {
	walker, _ := newTestWalker(t)

	data, err := walker.ReadFile("documents/welcome.txt", 0)
	require.NoError(t, err)
	assert.Equal(t, "Welcome to search", string(data))

	data, err = walker.ReadFile("documents/welcome.txt", 17)
	require.NoError(t, err)
	assert.Len(t, data, 17)

	_, err = walker.ReadFile("documents/welcome.txt", 5)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = walker.ReadFile("documents/gone.txt", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_Walker_Walk(t *testing.T) {
	walker, root := newTestWalker(t)
	if err := os.Symlink(filepath.Join(root, "b.txt"), filepath.Join(root, "zz-link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	var paths []string
	err := walker.Walk(context.Background(), func(entry Entry) error {
		assert.Equal(t, TypeFile, entry.Type)
		paths = append(paths, entry.Path)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"A.txt",
		"Alpha/notes.txt",
		"a.txt",
		"b.txt",
		"beta/readme.rtf",
		"documents/reports/q1.pdf",
		"documents/welcome.txt",
	}, paths)
}

func Test_Walker_Walk_SkipAll(t *testing.T) {
	walker, _ := newTestWalker(t)

	count := 0
	err := walker.Walk(context.Background(), func(Entry) error {
		count++
		return SkipAll
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func Test_Walker_Walk_Cancelled(t *testing.T) {
	walker, _ := newTestWalker(t)
	ctx, cancel := context.WithCancel(context.Background())

	count := 0
	err := walker.Walk(ctx, func(Entry) error {
		count++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, count)
}

func Test_Walker_Exists(t *testing.T) {
	walker, _ := newTestWalker(t)

	assert.True(t, walker.Exists("documents/welcome.txt"))
	assert.False(t, walker.Exists("documents"))
	assert.False(t, walker.Exists("documents/missing.txt"))
	assert.False(t, walker.Exists(".env"))
	assert.False(t, walker.Exists("../etc/passwd"))
}

func Test_Walker_Rel(t *testing.T) {
	walker, root := newTestWalker(t)

	rel, ok := walker.Rel(filepath.Join(root, "documents", "welcome.txt"))
	assert.True(t, ok)
	assert.Equal(t, "documents/welcome.txt", rel)

	_, ok = walker.Rel(filepath.Dir(root))
	assert.False(t, ok)
}

func Test_SortEntries_TotalOrder(t *testing.T) {
	entries := []Entry{
		{Name: "b", Type: TypeFile},
		{Name: "B", Type: TypeFile},
		{Name: "a", Type: TypeFolder},
		{Name: "C", Type: TypeFolder},
		{Name: "A", Type: TypeFile},
	}
	SortEntries(entries)
	assert.Equal(t, []string{"a", "C", "A", "B", "b"}, entryNames(entries))
}
