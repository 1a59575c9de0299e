package support

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TestContext holds the state for CLI integration tests.
type TestContext struct {
	// Command execution state
	LastCommand   string
	LastOutput    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// Test environment
	WorkingDir string
	TempDir    string
	EnvVars    []string

	// Fixture paths, filled in by Given steps and substituted into
	// commands via {db}, {scan}, {sheet} and {tmp}.
	DatabasePath string
	ScanPath     string
	SheetPath    string

	// Test artifacts
	CreatedFiles       []string
	CreatedDirectories []string
}

// NewTestContext creates a new test context rooted at the project root.
func NewTestContext() (*TestContext, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	// Test execution may cd into the package directory; walk up to go.mod.
	currentDir := workingDir
	for {
		if _, err := os.Stat(filepath.Join(currentDir, "go.mod")); err == nil {
			workingDir = currentDir
			break
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	tempDir, err := os.MkdirTemp("", "platen-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &TestContext{
		WorkingDir:         workingDir,
		TempDir:            tempDir,
		EnvVars:            []string{},
		CreatedFiles:       []string{},
		CreatedDirectories: []string{},
	}, nil
}

// Cleanup removes all temporary files and directories created during tests.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	for _, file := range testCtx.CreatedFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to remove file %s: %w", file, err))
		}
	}

	for _, dir := range testCtx.CreatedDirectories {
		if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to remove directory %s: %w", dir, err))
		}
	}

	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// TrackFile adds a file to be cleaned up after tests.
func (testCtx *TestContext) TrackFile(filename string) {
	absPath := filename
	if !filepath.IsAbs(filename) {
		absPath = filepath.Join(testCtx.WorkingDir, filename)
	}
	testCtx.CreatedFiles = append(testCtx.CreatedFiles, absPath)
}

// GetTempFile returns a path to a temporary file with the given suffix.
func (testCtx *TestContext) GetTempFile(suffix string) string {
	return filepath.Join(testCtx.TempDir, fmt.Sprintf("test-%d%s", time.Now().UnixNano(), suffix))
}
