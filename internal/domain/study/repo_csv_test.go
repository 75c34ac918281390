package study

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func writeStudyFile(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestCSVRepo_ListDiagnoses(t *testing.T) {
	dir := t.TempDir()
	writeStudyFile(t, dir, DiagnosisHistoryFile,
		"REC_ID,PATNO,EVENT_ID,PAG_NAME,PDDXDT,ORIG_ENTRY",
		"1,3001,SC,PDFEAT,04/2010,06/2011",
		"2,3002,SC,PDFEAT,,06/2011",
		"3,3003,BL,PDFEAT,01/2011,06/2011",
	)

	rows, err := NewCSVRepo(dir).ListDiagnoses(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].PatientID != "3001" || rows[0].EventID != "SC" || rows[0].DiagnosisDate != "04/2010" {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[1].DiagnosisDate != "" || rows[1].IsScreening() {
		t.Errorf("expected blank date to be kept and not count as screening, got %+v", rows[1])
	}
}

func TestCSVRepo_MissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeStudyFile(t, dir, MotorExamFile, "PATNO,EVENT_ID,NP3TOT", "3001,BL,20")

	_, err := NewCSVRepo(dir).ListExams(context.Background())
	if err == nil || !strings.Contains(err.Error(), "INFODT") {
		t.Errorf("expected missing INFODT column error, got %v", err)
	}
}

func TestCSVRepo_MissingFile(t *testing.T) {
	_, err := NewCSVRepo(t.TempDir()).ListExams(context.Background())
	if !errors.Is(err, ErrMissingInput) {
		t.Errorf("expected ErrMissingInput, got %v", err)
	}
}

func TestCSVRepo_QuotedFieldsAndBOM(t *testing.T) {
	dir := t.TempDir()
	writeStudyFile(t, dir, MotorExamFile,
		"\ufeff\"PATNO\",\"EVENT_ID\",\"INFODT\",\"NP3SPCH\"",
		"\"3001\",\"BL\",\"02/2011\",\"1\"",
		"\"3001\",\"V04\",\"03/2012\",\"2\"",
	)
	rows, err := NewCSVRepo(dir).ListExams(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || rows[1].EventID != "V04" || rows[1].ExamDate != "03/2012" {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestCSVRepo_DiseaseDurationEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeStudyFile(t, dir, DiagnosisHistoryFile,
		"PATNO,EVENT_ID,PDDXDT",
		"1,SC,2010-01-01",
	)
	writeStudyFile(t, dir, MotorExamFile,
		"PATNO,EVENT_ID,INFODT",
		"1,BL,2010-06-01",
		"2,BL,2010-06-01",
	)

	svc := NewService(NewCSVRepo(dir), nil, dir, zerolog.Nop())
	rows, err := svc.DiseaseDuration(context.Background(), Options{Minimal: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].PatientID != "1" || rows[0].DurationMonths == nil || *rows[0].DurationMonths != 5 {
		t.Errorf("expected patient 1 duration 5, got %+v", rows[0])
	}
	if rows[1].PatientID != "2" || rows[1].DurationMonths != nil {
		t.Errorf("expected patient 2 undefined duration, got %+v", rows[1])
	}
}
