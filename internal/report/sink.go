package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ctestgen/internal/regen"
)

// reportSubdir holds the per-file validation reports under the output root.
const reportSubdir = "validation_report"

// FileSink writes accepted test files and their validation reports under
// one output directory.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Join(dir, reportSubdir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// TestPath returns where the generated test for a source file lands.
func (s *FileSink) TestPath(sourceFile string) string {
	return filepath.Join(s.dir, testFileName(sourceFile))
}

// Write persists one file's final artifact and report. Failed files get a
// report but no test file.
func (s *FileSink) Write(res regen.FileResult) error {
	if !res.Failed() && res.Output != "" {
		if err := os.WriteFile(s.TestPath(res.File), []byte(res.Output), 0o644); err != nil {
			return fmt.Errorf("failed to write test file: %w", err)
		}
	}

	reportPath := filepath.Join(s.dir, reportSubdir, reportFileName(res))
	return os.WriteFile(reportPath, []byte(renderReport(res)), 0o644)
}

func testFileName(sourceFile string) string {
	base := strings.TrimSuffix(filepath.Base(sourceFile), filepath.Ext(sourceFile))
	return "test_" + base + ".c"
}

// reportFileName encodes the compile verdict in the name so a directory
// listing shows the run's health at a glance.
func reportFileName(res regen.FileResult) string {
	base := strings.TrimSuffix(filepath.Base(res.File), filepath.Ext(res.File))
	verdict := "no"
	if res.Report.Compiles {
		verdict = "yes"
	}
	return fmt.Sprintf("%s_compiles_%s.txt", base, verdict)
}

func renderReport(res regen.FileResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "file: %s\n", res.File)
	fmt.Fprintf(&sb, "state: %s\n", res.State)
	fmt.Fprintf(&sb, "attempts: %d\n", res.Attempts)
	fmt.Fprintf(&sb, "quality: %s\n", res.Report.Quality)
	fmt.Fprintf(&sb, "compiles: %v\n", res.Report.Compiles)
	fmt.Fprintf(&sb, "realistic: %v\n", res.Report.Realistic)
	fmt.Fprintf(&sb, "issues:\n%s\n", PlainIssueList(res.Report.Issues))
	if res.Err != nil {
		fmt.Fprintf(&sb, "error: %v\n", res.Err)
	}
	return sb.String()
}
