package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
}

func paths(files []FileInfo) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestScannerScan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.php":             "<?php",
		"src/App.php":           "<?php",
		"src/view.phtml":        "<p>",
		"README.md":             "# Test",
		".hidden/secret.php":    "<?php",
		"vendor/lib/Lib.php":    "<?php",
		"node_modules/x/a.php":  "<?php",
		"templates/partial.PHP": "<?php",
	})

	files, err := New(DefaultOptions()).Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"index.php", "src/App.php", "templates/partial.PHP"}, paths(files))

	for _, f := range files {
		assert.Equal(t, "php", f.Language)
		assert.True(t, filepath.IsAbs(f.FullPath))
		assert.Equal(t, int64(5), f.Size)
	}
}

func TestScannerAllPHPExtensions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.php":   "",
		"b.phtml": "",
		"c.inc":   "",
		"d.txt":   "",
	})
	opts := DefaultOptions()
	opts.Extensions = nil
	files, err := New(opts).Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.php", "b.phtml", "c.inc"}, paths(files))
}

func TestScannerIgnoreFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".phpflowignore":          "# generated code\ncache/\n*_test.php\n!keep_test.php\n/legacy/old.php\n",
		"app.php":                 "",
		"app_test.php":            "",
		"keep_test.php":           "",
		"cache/compiled.php":      "",
		"lib/cache/more.php":      "",
		"legacy/old.php":          "",
		"legacy/new.php":          "",
		"lib/.phpflowignore":      "gen.php\n",
		"lib/gen.php":             "",
		"lib/real.php":            "",
		"other/gen.php":           "",
		"other/legacy/old.php":    "",
		"other/nested/x_test.php": "",
	})

	files, err := New(DefaultOptions()).Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"app.php",
		"keep_test.php",
		"legacy/new.php",
		"lib/real.php",
		"other/gen.php",
		"other/legacy/old.php",
	}, paths(files))
}

func TestScannerSingleFileAndMissing(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"script": "<?php echo 1;"})

	files, err := New(DefaultOptions()).Scan(context.Background(), filepath.Join(root, "script"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "script", files[0].Path)

	_, err = New(DefaultOptions()).Scan(context.Background(), filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestScannerCanceled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.php": "", "b/c.php": ""})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(DefaultOptions()).Scan(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanAllDeduplicates(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.php": "", "sub/b.php": ""})

	files, err := New(DefaultOptions()).ScanAll(context.Background(), []string{
		filepath.Join(root, "sub"),
		root,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.php", "a.php"}, paths(files))
}

func TestLanguageDetection(t *testing.T) {
	tests := []struct {
		ext      string
		expected string
	}{
		{".php", "php"},
		{".PHP", "php"},
		{".phtml", "php"},
		{".inc", "php"},
		{".js", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectLanguage(tt.ext), tt.ext)
	}
}

func TestIgnorePattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		isDir   bool
		match   bool
	}{
		{"*.php", "file.php", false, true},
		{"*.php", "dir/file.php", false, true},
		{"*.php", "file.txt", false, false},
		{"build/", "build/file.php", false, true},
		{"build/", "other/build/file.php", false, true},
		{"build/", "build", false, false},
		{"build/", "build", true, true},
		{"build/", "builder.php", false, false},

		{"/build/", "build/file.php", false, true},
		{"/build/", "src/build/file.php", false, false},

		{"src/*.php", "src/app.php", false, true},
		{"src/*.php", "src/deep/app.php", false, false},

		{"**/test/**", "test/file.php", false, true},
		{"**/test/**", "src/deep/test/file.php", false, true},
		{"**/test/**", "testing/file.php", false, false},

		{"file?.php", "file1.php", false, true},
		{"file?.php", "file12.php", false, false},
		{"file[0-9].php", "file7.php", false, true},

		{"!*.php", "file.php", false, true},
	}
	for _, tt := range tests {
		p := ParseIgnorePattern(tt.pattern)
		assert.Equal(t, tt.match, p.Match(tt.path, tt.isDir), "%q vs %q", tt.pattern, tt.path)
	}
	assert.True(t, ParseIgnorePattern("!x").IsNegation())
	assert.Equal(t, "!x", ParseIgnorePattern("!x").String())
}
