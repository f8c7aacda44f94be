// Package integration provides CLI integration tests for clu.
package integration

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

var (
	// cluBin is the path to the built clu binary.
	cluBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot finds the project root by walking up and looking for go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// SetCluBin sets the path to the clu binary (called from TestMain).
func SetCluBin(path string) {
	cluBin = path
}

// SetBuildErr sets the build error (called from TestMain).
func SetBuildErr(err error) {
	buildErr = err
}

// TestEnv provides an isolated stash and passphrase for one test.
type TestEnv struct {
	t          *testing.T
	TempDir    string
	StashPath  string
	Passphrase string
	Backend    string
}

// NewTestEnv creates a new isolated test environment using the
// Embedded-JSON backend by default.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build clu: %v", buildErr)
	}
	if cluBin == "" {
		t.Fatal("clu binary not built (cluBin is empty)")
	}

	tempDir := t.TempDir()
	return &TestEnv{
		t:          t,
		TempDir:    tempDir,
		StashPath:  filepath.Join(tempDir, "stash.json"),
		Passphrase: "correct horse battery staple",
		Backend:    "tinydb",
	}
}

// CmdResult holds the result of a clu command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes the clu CLI with the given arguments against this
// environment's stash.
func (e *TestEnv) Run(args ...string) CmdResult {
	e.t.Helper()

	cmd := exec.Command(cluBin, args...)
	cmd.Dir = e.TempDir
	cmd.Env = append(os.Environ(),
		"GHOST_STASH_PATH="+e.StashPath,
		"GHOST_PASSPHRASE="+e.Passphrase,
		"GHOST_BACKEND_TYPE="+e.Backend,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			e.t.Fatalf("failed to run clu: %v", err)
		}
	}

	return CmdResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// MustRun executes the clu CLI and fails the test if it returns non-zero.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()
	result := e.Run(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("clu %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// Init initializes this environment's stash.
func (e *TestEnv) Init() CmdResult {
	e.t.Helper()
	return e.MustRun("init_stash", e.StashPath)
}
