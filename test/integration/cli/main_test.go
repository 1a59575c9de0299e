package cli_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/platen/internal/testutil"
	"github.com/MeKo-Tech/platen/test/integration/cli/support"
	"github.com/cucumber/godog"
)

// testContext holds the global test context.
var testContext *support.TestContext

// InitializeScenario sets up the test context for each scenario.
func InitializeScenario(sc *godog.ScenarioContext) {
	var err error
	testContext, err = support.NewTestContext()
	if err != nil {
		panic(fmt.Sprintf("Failed to create test context: %v", err))
	}

	testContext.RegisterCommonSteps(sc)
	testContext.RegisterFixtureSteps(sc)

	sc.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if cleanupErr := testContext.Cleanup(); cleanupErr != nil {
			fmt.Printf("Warning: Failed to cleanup test context: %v\n", cleanupErr)
		}
		return ctx, nil
	})
}

// TestFeatures runs the Godog test suite.
func TestFeatures(t *testing.T) {
	entries, err := os.ReadDir("features")
	if err != nil {
		t.Fatalf("failed to read features directory: %v", err)
	}

	format := os.Getenv("GODOG_FORMAT")
	if format == "" {
		format = "pretty"
	}
	tags := os.Getenv("GODOG_TAGS")

	found := false
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".feature") {
			continue
		}
		found = true
		featurePath := filepath.Join("features", e.Name())

		t.Run(e.Name(), func(t *testing.T) {
			suite := godog.TestSuite{
				ScenarioInitializer: InitializeScenario,
				Options: &godog.Options{
					Format:   format,
					Tags:     tags,
					Paths:    []string{featurePath},
					TestingT: t,
				},
			}

			if suite.Run() != 0 {
				t.Fatalf("non-zero status returned for %s", featurePath)
			}
		})
	}

	if !found {
		t.Fatalf("no .feature files found in features/")
	}
}

// TestMain ensures the CLI binary exists at project_root/bin/platen before
// any feature tests run. If it cannot be built, the suite fails early.
func TestMain(m *testing.M) {
	root := testutil.GetProjectRoot()
	if root == "" {
		fmt.Fprintln(os.Stderr, "failed to locate project root")
		os.Exit(1)
	}

	binDir := filepath.Join(root, "bin")
	binPath := filepath.Join(binDir, "platen")

	if _, err := os.Stat(binPath); os.IsNotExist(err) {
		if mkErr := os.MkdirAll(binDir, 0o755); mkErr != nil {
			fmt.Fprintf(os.Stderr, "failed to create bin dir: %v\n", mkErr)
			os.Exit(1)
		}
		cmd := exec.CommandContext(context.Background(), "go", "build", "-o", binPath, "./cmd/platen")
		cmd.Dir = root
		cmd.Env = os.Environ()
		if out, buildErr := cmd.CombinedOutput(); buildErr != nil {
			fmt.Fprintf(os.Stderr, "failed to build CLI binary: %v\n%s\n", buildErr, string(out))
			os.Exit(1)
		}
	}

	// Prepend project bin dir to PATH so plain "platen" resolves consistently.
	_ = os.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	os.Exit(m.Run())
}
