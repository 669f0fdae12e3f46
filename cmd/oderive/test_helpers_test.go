package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sghaida/oderive/internal/config"
)

//
// -----------------------------------------------------------------------------
// Shared fixtures
// -----------------------------------------------------------------------------

// pointSrc declares one record deriving both protocols, with a format
// override on y.
const pointSrc = `package geo

//derive:builder debug
type Point struct {
	x int
	//derive:debug = "%b"
	y int
}
`

// plainSrc declares no records.
const plainSrc = `package geo

type Plain struct{ n int }
`

// badEachSrc puts an each accessor on a scalar field.
const badEachSrc = `package geo

//derive:builder
type Bad struct {
	//derive:builder(each = "x")
	name string
}
`

//
// -----------------------------------------------------------------------------
// Small helpers
// -----------------------------------------------------------------------------

// writeTempFile writes a file under dir/name and returns its full path.
func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// readFileString reads a file and returns its contents as string (fatal on error).
func readFileString(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(b)
}

// runCmd runs the command line and returns the exit code and both streams.
func runCmd(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// newTestApp returns an app with default settings and an observed logger.
func newTestApp(t *testing.T) (*app, *observer.ObservedLogs) {
	t.Helper()

	v := config.New()
	cfg, err := config.Load(v, "")
	require.NoError(t, err)

	core, logs := observer.New(zap.DebugLevel)
	return &app{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		v:      v,
		cfg:    cfg,
		log:    zap.New(core),
	}, logs
}

// requirePanicContains asserts fn panics and the panic message contains wantSub.
func requirePanicContains(t *testing.T, wantSub string, fn func()) {
	t.Helper()

	defer func() {
		r := recover()
		require.NotNil(t, r)

		var msg string
		switch v := r.(type) {
		case error:
			msg = v.Error()
		case string:
			msg = v
		default:
			msg = fmt.Sprintf("%v", v)
		}
		require.Contains(t, msg, wantSub)
	}()

	fn()
}

//
// -----------------------------------------------------------------------------
// writeFileAtomic() seam helpers
// -----------------------------------------------------------------------------

// fakeTempFile is a controllable file-like object for writeFileAtomic tests.
type fakeTempFile struct {
	fileName string
	writeErr error
	closeErr error
}

func (f *fakeTempFile) Name() string { return f.fileName }

func (f *fakeTempFile) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return len(p), nil
}

func (f *fakeTempFile) Close() error { return f.closeErr }

// restoreWriteSeams puts the current seams back when the test ends.
func restoreWriteSeams(t *testing.T) {
	t.Helper()
	read, create, remove, chmod, rename := readFile, createTempFile, removeFile, chmodFile, renameFile
	t.Cleanup(func() {
		readFile, createTempFile, removeFile, chmodFile, renameFile = read, create, remove, chmod, rename
	})
}
