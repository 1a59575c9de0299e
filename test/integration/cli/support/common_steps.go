package support

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// substituteCommandVariables replaces fixture placeholders in command strings.
func (testCtx *TestContext) substituteCommandVariables(command string) string {
	command = strings.ReplaceAll(command, "{tmp}", testCtx.TempDir)
	if testCtx.DatabasePath != "" {
		command = strings.ReplaceAll(command, "{db}", testCtx.DatabasePath)
	}
	if testCtx.ScanPath != "" {
		command = strings.ReplaceAll(command, "{scan}", testCtx.ScanPath)
	}
	if testCtx.SheetPath != "" {
		command = strings.ReplaceAll(command, "{sheet}", testCtx.SheetPath)
	}
	return command
}

// iRunCommand executes a command and stores the result.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substituteCommandVariables(command)

	testCtx.LastCommand = command
	testCtx.LastStartTime = time.Now()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = testCtx.WorkingDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	output, err := cmd.CombinedOutput()
	testCtx.LastOutput = string(output)
	testCtx.LastError = err
	testCtx.LastDuration = time.Since(testCtx.LastStartTime)

	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			testCtx.LastExitCode = exitError.ExitCode()
		} else {
			testCtx.LastExitCode = -1
		}
	} else {
		testCtx.LastExitCode = 0
	}

	return nil
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldContain verifies the output contains specific text.
func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

// jsonPart extracts the JSON payload from mixed command output.
func (testCtx *TestContext) jsonPart() (string, error) {
	output := strings.TrimSpace(testCtx.LastOutput)

	jsonStart := -1
	for i, r := range output {
		if r == '{' || r == '[' {
			jsonStart = i
			break
		}
	}
	if jsonStart == -1 {
		return "", fmt.Errorf("no JSON found in output: %s", testCtx.LastOutput)
	}
	return output[jsonStart:], nil
}

// theOutputShouldBeValidJSON verifies the output is valid JSON.
func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	part, err := testCtx.jsonPart()
	if err != nil {
		return err
	}
	var js json.RawMessage
	if err := json.Unmarshal([]byte(part), &js); err != nil {
		return fmt.Errorf("output is not valid JSON: %w\nJSON part: %s", err, part)
	}
	return nil
}

// theJSONShouldContain verifies JSON output contains a specific field.
func (testCtx *TestContext) theJSONShouldContain(field string) error {
	part, err := testCtx.jsonPart()
	if err != nil {
		return err
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(part), &data); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	current := data
	parts := strings.Split(field, ".")
	for i, p := range parts {
		val, exists := current[p]
		if !exists {
			return fmt.Errorf("field '%s' not found in JSON", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return nil
		}
		nextMap, ok := val.(map[string]interface{})
		if !ok {
			return fmt.Errorf("cannot navigate deeper into non-object field '%s'", p)
		}
		current = nextMap
	}
	return nil
}

// theErrorShouldMention verifies the error output contains specific text.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil && testCtx.LastExitCode == 0 {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}

	fullErrorText := testCtx.LastOutput
	if testCtx.LastError != nil {
		fullErrorText += " " + testCtx.LastError.Error()
	}

	if !strings.Contains(strings.ToLower(fullErrorText), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", errorText, fullErrorText)
	}
	return nil
}

// theFileShouldExist verifies a file exists.
func (testCtx *TestContext) theFileShouldExist(filename string) error {
	fullPath := testCtx.substituteCommandVariables(filename)
	if !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(testCtx.WorkingDir, fullPath)
	}
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", fullPath)
	}
	return nil
}

// theOutputShouldContainUsageInformation verifies help output.
func (testCtx *TestContext) theOutputShouldContainUsageInformation() error {
	usageIndicators := []string{"Usage:", "usage:", "help", "Help"}
	for _, indicator := range usageIndicators {
		if strings.Contains(testCtx.LastOutput, indicator) {
			return nil
		}
	}
	return fmt.Errorf("output does not contain usage information: %s", testCtx.LastOutput)
}

// theOutputShouldListAvailableSubcommands verifies subcommand listing.
func (testCtx *TestContext) theOutputShouldListAvailableSubcommands() error {
	subcommands := []string{"rectify", "corners", "version"}
	for _, cmd := range subcommands {
		if !strings.Contains(testCtx.LastOutput, cmd) {
			return fmt.Errorf("subcommand not listed: %s", cmd)
		}
	}
	return nil
}

// buildInformationShouldBeIncluded verifies version output content.
func (testCtx *TestContext) buildInformationShouldBeIncluded() error {
	requiredParts := []string{"platen", "commit:", "built:"}
	for _, part := range requiredParts {
		if !strings.Contains(testCtx.LastOutput, part) {
			return fmt.Errorf("version output missing '%s'\nActual output: %s", part, testCtx.LastOutput)
		}
	}
	return nil
}

// theOutputShouldIncludeDebugInformation verifies debug logging is present.
func (testCtx *TestContext) theOutputShouldIncludeDebugInformation() error {
	debugIndicators := []string{"DEBUG", "debug", "\"level\":\"DEBUG\"", "duration_ms"}
	for _, indicator := range debugIndicators {
		if strings.Contains(testCtx.LastOutput, indicator) {
			return nil
		}
	}
	return fmt.Errorf("output does not contain debug information: %s", testCtx.LastOutput)
}

// RegisterCommonSteps registers command, output and error step definitions.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the output should contain usage information$`, testCtx.theOutputShouldContainUsageInformation)
	sc.Step(`^the output should list available subcommands$`, testCtx.theOutputShouldListAvailableSubcommands)
	sc.Step(`^build information should be included$`, testCtx.buildInformationShouldBeIncluded)
	sc.Step(`^the output should include debug information$`, testCtx.theOutputShouldIncludeDebugInformation)
}
