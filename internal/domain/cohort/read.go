package cohort

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadPatientIDs reads the PATNO column of a cohort table.
func ReadPatientIDs(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("cohort table is empty")
		}
		return nil, fmt.Errorf("read cohort header: %w", err)
	}
	col := -1
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == "PATNO" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("cohort table has no PATNO column")
	}

	var ids []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return ids, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read cohort table: %w", err)
		}
		if col < len(rec) {
			if id := strings.TrimSpace(rec[col]); id != "" {
				ids = append(ids, id)
			}
		}
	}
}
