package tests

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/config"
	"github.com/funvibe/rcore/pkg/cli"
)

// sourcePosition matches the " (file:line:column)" part of error messages.
var sourcePosition = regexp.MustCompile(` \([^()]*:\d+:\d+\)`)

// TestFunctional runs every testdata script that has a .want file through the
// command and compares stdout followed by stderr with it.
func TestFunctional(t *testing.T) {
	var testFiles []string
	err := filepath.Walk("testdata", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !config.HasSourceExt(path) {
			return nil
		}
		if _, err := os.Stat(config.TrimSourceExt(path) + ".want"); err == nil {
			testFiles = append(testFiles, path)
		}
		return nil
	})
	require.NoError(t, err)
	if len(testFiles) == 0 {
		t.Skip("No test files with .want found")
	}

	for _, testFile := range testFiles {
		testName := filepath.Base(config.TrimSourceExt(testFile))
		t.Run(testName, func(t *testing.T) {
			wantBytes, err := os.ReadFile(config.TrimSourceExt(testFile) + ".want")
			require.NoError(t, err)

			var stdout, stderr bytes.Buffer
			no := false
			code := cli.Run([]string{testFile}, cli.IO{
				Stdin:       strings.NewReader(""),
				Stdout:      &stdout,
				Stderr:      &stderr,
				Getenv:      func(string) string { return "" },
				Interactive: &no,
			})

			got := strings.TrimSpace(stdout.String())
			if errText := strings.TrimSpace(sourcePosition.ReplaceAllString(stderr.String(), "")); errText != "" {
				if got != "" {
					got += "\n"
				}
				got += errText
			}
			want := strings.TrimSpace(strings.ReplaceAll(string(wantBytes), "\r\n", "\n"))
			assert.Equal(t, want, got)

			wantCode := cli.ExitOK
			if strings.HasPrefix(testName, "fail_") {
				wantCode = cli.ExitError
			}
			assert.Equal(t, wantCode, code)
		})
	}
}
