package validation

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"pixelforge/core"
)

// ValidationStep represents a single validation step with its status.
type ValidationStep struct {
	Name    string
	Status  StepStatus
	Message string
	Error   error
	Latency time.Duration
}

// StepStatus represents the status of a validation step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepPassed
	StepFailed
	StepWarning
	StepSkipped
)

// String returns the string representation of a step status.
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepWarning:
		return "warning"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// SuiteResult represents the complete result of validation suite execution.
type SuiteResult struct {
	Steps       []ValidationStep
	TotalSteps  int
	PassedSteps int
	FailedSteps int
	Warnings    int
	Duration    time.Duration
	Success     bool
}

// ValidationSuite orchestrates all validation molecules for complete startup
// validation. This is an organism that composes ConfigChecker, ModelChecker,
// and IndexChecker to vet the workspace, the model weights, and the artifact
// index before the pipeline serves work, with progress output.
type ValidationSuite struct {
	output        io.Writer
	configChecker *ConfigChecker
	modelChecker  *ModelChecker
	indexChecker  *IndexChecker
	showProgress  bool
	failFast      bool
}

// NewValidationSuite creates a ValidationSuite for the given configuration.
func NewValidationSuite(cfg *core.Config) *ValidationSuite {
	return &ValidationSuite{
		output:        os.Stdout,
		configChecker: NewConfigChecker(cfg),
		modelChecker:  NewModelChecker(cfg.ManifestPath),
		indexChecker:  NewIndexChecker(cfg.IndexDBPath),
		showProgress:  true,
		failFast:      false,
	}
}

// WithOutput sets the output writer for progress messages.
func (s *ValidationSuite) WithOutput(w io.Writer) *ValidationSuite {
	s.output = w
	return s
}

// WithShowProgress enables or disables progress output.
func (s *ValidationSuite) WithShowProgress(show bool) *ValidationSuite {
	s.showProgress = show
	return s
}

// WithFailFast stops validation on first failure if enabled.
func (s *ValidationSuite) WithFailFast(failFast bool) *ValidationSuite {
	s.failFast = failFast
	return s
}

// WithEnvPath sets a custom path for the .env file.
func (s *ValidationSuite) WithEnvPath(path string) *ValidationSuite {
	s.configChecker.WithEnvPath(path)
	return s
}

// WithSpaceFloor sets the minimum free disk space required at the data
// directory.
func (s *ValidationSuite) WithSpaceFloor(bytes int64) *ValidationSuite {
	s.configChecker.WithSpaceFloor(bytes)
	return s
}

// WithMigrationsPath overrides where the index checker sources schema
// migrations (file:// URL).
func (s *ValidationSuite) WithMigrationsPath(path string) *ValidationSuite {
	s.indexChecker.WithMigrationsPath(path)
	return s
}

// Validate runs the complete check sequence with progress output: env file,
// data directories, disk space, model manifest, every listed weight file
// including checksum verification, and the index database.
// Returns a SuiteResult with complete validation results.
func (s *ValidationSuite) Validate() SuiteResult {
	return s.run("PixelForge Startup Validation", true)
}

// ValidateQuick runs the same sequence minus the heavy I/O: weight file
// checksums are not verified and the index database is not opened. Useful
// for fast preflight before one-shot commands.
func (s *ValidationSuite) ValidateQuick() SuiteResult {
	return s.run("Quick Configuration Check", false)
}

// run executes the check sequence. full enables checksum verification and
// the index database check.
func (s *ValidationSuite) run(title string, full bool) SuiteResult {
	startTime := time.Now()
	steps := make([]ValidationStep, 0, 8)

	if s.showProgress {
		s.printHeader(title)
	}

	// Step 1: environment file (informational: passes or warns, never fails)
	steps = append(steps, s.runStep("Environment File", s.configChecker.CheckEnvFile))

	// Step 2: data directories exist and are writable
	step := s.runStep("Data Directories", s.configChecker.CheckDataDirs)
	steps = append(steps, step)
	dataDirsOK := step.Status == StepPassed
	if s.failFast && step.Status == StepFailed {
		return s.buildResult(steps, startTime)
	}

	// Step 3: free disk space above the floor
	step = s.runStep("Disk Space", s.configChecker.CheckDiskSpace)
	steps = append(steps, step)
	if s.failFast && step.Status == StepFailed {
		return s.buildResult(steps, startTime)
	}

	// Step 4: model manifest parses
	var manifest *core.ModelManifest
	step = s.runStep("Model Manifest", func() ValidationResult {
		m, result := s.modelChecker.CheckManifest()
		manifest = m
		return result
	})
	steps = append(steps, step)
	if s.failFast && step.Status == StepFailed {
		return s.buildResult(steps, startTime)
	}

	// Step 5: each listed weight file (only when the manifest loaded)
	if manifest != nil {
		for _, kind := range ModelKinds(manifest) {
			kind := kind
			step = s.runStep("Model "+kind, func() ValidationResult {
				return s.modelChecker.CheckModelFile(manifest, kind, full)
			})
			steps = append(steps, step)
			if s.failFast && step.Status == StepFailed {
				return s.buildResult(steps, startTime)
			}
		}
	} else {
		steps = append(steps, s.skipStep("Model Files", "Skipped due to manifest errors"))
	}

	// Step 6: index database opens and migrates (full validation only)
	if full {
		if dataDirsOK {
			step = s.runStep("Artifact Index", s.indexChecker.Check)
		} else {
			step = s.skipStep("Artifact Index", "Skipped due to data directory errors")
		}
		steps = append(steps, step)
	}

	result := s.buildResult(steps, startTime)

	if s.showProgress {
		s.printSummary(result)
	}

	return result
}

// runStep executes a validation step with timing and progress output.
func (s *ValidationSuite) runStep(name string, fn func() ValidationResult) ValidationStep {
	step := ValidationStep{Name: name, Status: StepRunning}

	if s.showProgress {
		s.printStepStart(name)
	}

	startTime := time.Now()
	result := fn()
	step.Latency = time.Since(startTime)
	step.Message = result.Message
	step.Error = result.Error

	switch {
	case result.Valid:
		step.Status = StepPassed
	case result.Warning:
		step.Status = StepWarning
	default:
		step.Status = StepFailed
	}

	if s.showProgress {
		s.printStep(step)
	}

	return step
}

// skipStep records a step that never ran.
func (s *ValidationSuite) skipStep(name, reason string) ValidationStep {
	step := ValidationStep{Name: name, Status: StepSkipped, Message: reason}
	if s.showProgress {
		s.printStep(step)
	}
	return step
}

// buildResult creates a SuiteResult from completed steps.
func (s *ValidationSuite) buildResult(steps []ValidationStep, startTime time.Time) SuiteResult {
	result := SuiteResult{
		Steps:      steps,
		TotalSteps: len(steps),
		Duration:   time.Since(startTime),
		Success:    true,
	}

	for _, step := range steps {
		switch step.Status {
		case StepPassed:
			result.PassedSteps++
		case StepFailed:
			result.FailedSteps++
			result.Success = false
		case StepWarning:
			result.Warnings++
		}
	}

	return result
}

// printHeader prints a validation header.
func (s *ValidationSuite) printHeader(title string) {
	fmt.Fprintln(s.output)
	headerColor := color.New(color.FgCyan, color.Bold)
	headerColor.Fprintf(s.output, "━━━ %s ━━━\n", title)
	fmt.Fprintln(s.output)
}

// printStepStart prints the step name before execution (for real-time feedback).
func (s *ValidationSuite) printStepStart(name string) {
	fmt.Fprintf(s.output, "  ◌ %s...", name)
}

// printStep prints a completed validation step with status indicator.
func (s *ValidationSuite) printStep(step ValidationStep) {
	var icon string
	var clr *color.Color

	switch step.Status {
	case StepPassed:
		icon = "✓"
		clr = color.New(color.FgGreen)
	case StepFailed:
		icon = "✗"
		clr = color.New(color.FgRed)
	case StepWarning:
		icon = "!"
		clr = color.New(color.FgYellow)
	case StepSkipped:
		icon = "○"
		clr = color.New(color.FgHiBlack)
	default:
		icon = "?"
		clr = color.New(color.FgWhite)
	}

	// Clear the "running" line and print result
	fmt.Fprintf(s.output, "\r")
	clr.Fprintf(s.output, "  %s %s", icon, step.Name)

	// Add message if present
	if step.Message != "" {
		dim := color.New(color.FgHiBlack)
		dim.Fprintf(s.output, " - %s", step.Message)
	}

	fmt.Fprintln(s.output)

	// Print error details for failed steps
	if step.Status == StepFailed && step.Error != nil {
		errColor := color.New(color.FgRed)
		errColor.Fprintf(s.output, "    └─ %s\n", step.Error.Error())
	}
}

// printSummary prints the validation summary.
func (s *ValidationSuite) printSummary(result SuiteResult) {
	fmt.Fprintln(s.output)

	if result.Success {
		successColor := color.New(color.FgGreen, color.Bold)
		successColor.Fprintf(s.output, "━━━ Validation Passed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d/%d checks passed in %v)",
			result.PassedSteps, result.TotalSteps, result.Duration.Round(time.Millisecond))
		successColor.Fprintln(s.output, " ━━━")
	} else {
		failColor := color.New(color.FgRed, color.Bold)
		failColor.Fprintf(s.output, "━━━ Validation Failed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d passed, %d failed)",
			result.PassedSteps, result.FailedSteps)
		failColor.Fprintln(s.output, " ━━━")
	}

	fmt.Fprintln(s.output)
}

// GetErrors returns all errors from failed steps.
func (r SuiteResult) GetErrors() []error {
	errors := make([]error, 0)
	for _, step := range r.Steps {
		if step.Error != nil {
			errors = append(errors, step.Error)
		}
	}
	return errors
}

// GetFirstError returns the first error from failed steps, or nil if all passed.
func (r SuiteResult) GetFirstError() error {
	for _, step := range r.Steps {
		if step.Error != nil {
			return step.Error
		}
	}
	return nil
}

// Summary returns a human-readable summary string.
func (r SuiteResult) Summary() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Validation %s: ", map[bool]string{true: "Passed", false: "Failed"}[r.Success]))
	sb.WriteString(fmt.Sprintf("%d/%d checks passed", r.PassedSteps, r.TotalSteps))
	if r.FailedSteps > 0 {
		sb.WriteString(fmt.Sprintf(", %d failed", r.FailedSteps))
	}
	if r.Warnings > 0 {
		sb.WriteString(fmt.Sprintf(", %d warnings", r.Warnings))
	}
	sb.WriteString(fmt.Sprintf(" (took %v)", r.Duration.Round(time.Millisecond)))
	return sb.String()
}
