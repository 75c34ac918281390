package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/livingpark/ppmi/internal/domain/cohort"
	"github.com/livingpark/ppmi/internal/domain/study"
)

// isolateEnv clears settings that would route commands to external services.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "S3_ENDPOINT", "S3_BUCKET", "DUPLICATE_POLICY", "COHORT_ID_MODE", "ENV"} {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	isolateEnv(t)
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func studyDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, study.DiagnosisHistoryFile),
		"PATNO,EVENT_ID,PDDXDT",
		"3001,SC,04/2010",
	)
	writeFile(t, filepath.Join(dir, study.MotorExamFile),
		"PATNO,EVENT_ID,INFODT",
		"3001,BL,06/2011",
		"3002,BL,06/2011",
	)
	return dir
}

// ---------------------------------------------------------------------------
// cohort-id
// ---------------------------------------------------------------------------

func TestCohortIDCmd_Args(t *testing.T) {
	out, err := runCmd(t, "cohort-id", "--mode", "hash", "3002", "3001", "3001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := cohort.ID([]string{"3001", "3002"})
	if got := strings.TrimSpace(out); got != want {
		t.Errorf("cohort-id = %q, want %q", got, want)
	}
}

func TestCohortIDCmd_FromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.csv")
	writeFile(t, path, "PATNO,COHORT", "3001,PD", "3002,HC")

	out, err := runCmd(t, "cohort-id", "--mode", "digest", "--from", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := cohort.Digest([]string{"3001", "3002"})
	if got := strings.TrimSpace(out); got != want {
		t.Errorf("cohort-id = %q, want %q", got, want)
	}
}

func TestCohortIDCmd_NoIDs(t *testing.T) {
	if _, err := runCmd(t, "cohort-id", "--mode", "hash"); err == nil {
		t.Error("expected error when no ids are given")
	}
}

func TestCohortIDCmd_BadMode(t *testing.T) {
	if _, err := runCmd(t, "cohort-id", "--mode", "sha", "1"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

// ---------------------------------------------------------------------------
// clean-protocol
// ---------------------------------------------------------------------------

func TestCleanProtocolCmd(t *testing.T) {
	out, err := runCmd(t, "clean-protocol", "SAG", "3D", "(MPRAGE)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(out); got != "SAG_3D_MPRAGE" {
		t.Errorf("clean-protocol = %q, want %q", got, "SAG_3D_MPRAGE")
	}
}

// ---------------------------------------------------------------------------
// disease-duration
// ---------------------------------------------------------------------------

func TestDiseaseDurationCmd_JSON(t *testing.T) {
	out, err := runCmd(t, "disease-duration", "--study-dir", studyDir(t), "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var rows []study.DurationRecord
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].DurationMonths == nil || *rows[0].DurationMonths != 14 {
		t.Errorf("expected 14 months for 3001, got %v", rows[0].DurationMonths)
	}
	if rows[1].DurationMonths != nil {
		t.Errorf("expected no duration for undiagnosed 3002, got %d", *rows[1].DurationMonths)
	}
	if rows[0].ExamDate != nil {
		t.Error("expected minimal output without exam dates")
	}
}

func TestDiseaseDurationCmd_CSVFull(t *testing.T) {
	out, err := runCmd(t, "disease-duration", "--study-dir", studyDir(t), "--format", "csv", "--full")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"PATNO,EVENT_ID,PDXDUR,INFODT,PDDXDT", "3001,BL,14,06/2011,04/2010", "3002,BL,,06/2011,"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestDiseaseDurationCmd_MissingFiles(t *testing.T) {
	if _, err := runCmd(t, "disease-duration", "--study-dir", t.TempDir()); err == nil {
		t.Error("expected error when study files are absent")
	}
}

func TestDiseaseDurationCmd_BadFormat(t *testing.T) {
	if _, err := runCmd(t, "disease-duration", "--study-dir", studyDir(t), "--format", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

// ---------------------------------------------------------------------------
// find-nifti
// ---------------------------------------------------------------------------

func TestFindNiftiCmd(t *testing.T) {
	cache := t.TempDir()
	want := filepath.Join(cache, "inputs", "sub-3001", "ses-BL", "anat", "PPMI_3001_MR_MPRAGE_GRAPPA_br_raw_20110101_S1_I1.nii")
	writeFile(t, want)

	out, err := runCmd(t, "find-nifti", "--cache-dir", cache, "--subject", "3001", "--event", "BL", "--protocol", "MPRAGE GRAPPA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(out); got != want {
		t.Errorf("find-nifti = %q, want %q", got, want)
	}
}

func TestFindNiftiCmd_NotFound(t *testing.T) {
	out, err := runCmd(t, "find-nifti", "--cache-dir", t.TempDir(), "--subject", "3001", "--event", "BL", "--protocol", "MPRAGE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("expected no output, got %q", out)
	}
}

// ---------------------------------------------------------------------------
// tables
// ---------------------------------------------------------------------------

func TestRenderTable(t *testing.T) {
	got := renderTable([]string{"PATNO", "PDXDUR"}, [][]string{{"3001", "14"}, {"3002"}}, []columnAlignment{alignRight, alignRight})
	for _, want := range []string{"PATNO", "3001", "14", "3002"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in table:\n%s", want, got)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("expected empty render without headers")
	}
}

func TestRenderCSV(t *testing.T) {
	got := renderCSV([]string{"A", "B"}, [][]string{{"1", "2"}})
	if !strings.Contains(got, "A,B") || !strings.Contains(got, "1,2") {
		t.Errorf("unexpected csv:\n%s", got)
	}
}
