package study

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type csvRepo struct {
	dir string
}

// NewCSVRepo reads the study tables from CSV exports in dir.
func NewCSVRepo(dir string) Repository {
	return &csvRepo{dir: dir}
}

func (r *csvRepo) RequiredFiles() []string {
	return []string{MotorExamFile, DiagnosisHistoryFile}
}

func (r *csvRepo) ListDiagnoses(ctx context.Context) ([]*DiagnosisRecord, error) {
	var out []*DiagnosisRecord
	err := r.readTable(ctx, DiagnosisHistoryFile, []string{"PATNO", "EVENT_ID", "PDDXDT"}, func(v []string) {
		out = append(out, &DiagnosisRecord{PatientID: v[0], EventID: v[1], DiagnosisDate: v[2]})
	})
	return out, err
}

func (r *csvRepo) ListExams(ctx context.Context) ([]*ExamRecord, error) {
	var out []*ExamRecord
	err := r.readTable(ctx, MotorExamFile, []string{"PATNO", "EVENT_ID", "INFODT"}, func(v []string) {
		out = append(out, &ExamRecord{PatientID: v[0], EventID: v[1], ExamDate: v[2]})
	})
	return out, err
}

// readTable streams name and hands fn the requested columns of each row, in
// the order given by cols. The header is validated once.
func (r *csvRepo) readTable(ctx context.Context, name string, cols []string, fn func([]string)) error {
	path := filepath.Join(r.dir, name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &MissingInputError{Dir: r.dir, Files: []string{name}}
		}
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, utf8BOM) {
		br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: empty file", name)
		}
		return fmt.Errorf("%s: read header: %w", name, err)
	}
	idx, err := columnIndex(header, cols)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	vals := make([]string, len(cols))
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("%s: line %d: %w", name, line, err)
		}
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for i, j := range idx {
			if j < len(rec) {
				vals[i] = strings.TrimSpace(rec[j])
			} else {
				vals[i] = ""
			}
		}
		fn(append([]string(nil), vals...))
	}
}

func columnIndex(header, cols []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	idx := make([]int, len(cols))
	var missing []string
	for i, c := range cols {
		j, ok := pos[c]
		if !ok {
			missing = append(missing, c)
			continue
		}
		idx[i] = j
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing column(s) %s", strings.Join(missing, ", "))
	}
	return idx, nil
}
