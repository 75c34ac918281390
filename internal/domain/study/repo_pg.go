package study

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tables of a PPMI mirror loaded into Postgres.
const (
	diagnosisTable = "pd_diagnosis_history"
	examTable      = "mds_updrs_part_iii"
)

type repoPG struct {
	pool   *pgxpool.Pool
	schema string
}

// NewRepoPG reads the study tables from a Postgres mirror of the PPMI export.
// Columns keep their CSV names in lower case (patno, event_id, pddxdt, infodt).
func NewRepoPG(pool *pgxpool.Pool, schema string) Repository {
	if schema == "" {
		schema = "public"
	}
	return &repoPG{pool: pool, schema: schema}
}

func (r *repoPG) RequiredFiles() []string { return nil }

func (r *repoPG) table(name string) string {
	return pgx.Identifier{r.schema, name}.Sanitize()
}

// selectSQL reads cols from a table in physical row order. Mirrors are bulk
// loaded with COPY from the CSV exports, so ctid follows the file order and
// repeated screening rows resolve the same way as with the CSV source.
func (r *repoPG) selectSQL(name string, cols ...string) string {
	return "SELECT " + strings.Join(cols, ", ") + " FROM " + r.table(name) + " ORDER BY ctid"
}

func (r *repoPG) diagnosisSQL() string {
	return r.selectSQL(diagnosisTable, "patno::text", "COALESCE(event_id, '')", "COALESCE(pddxdt::text, '')")
}

func (r *repoPG) examSQL() string {
	return r.selectSQL(examTable, "patno::text", "COALESCE(event_id, '')", "COALESCE(infodt::text, '')")
}

func (r *repoPG) ListDiagnoses(ctx context.Context) ([]*DiagnosisRecord, error) {
	rows, err := r.pool.Query(ctx, r.diagnosisSQL())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", diagnosisTable, err)
	}
	defer rows.Close()

	var out []*DiagnosisRecord
	for rows.Next() {
		var d DiagnosisRecord
		if err := rows.Scan(&d.PatientID, &d.EventID, &d.DiagnosisDate); err != nil {
			return nil, fmt.Errorf("scan %s: %w", diagnosisTable, err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r *repoPG) ListExams(ctx context.Context) ([]*ExamRecord, error) {
	rows, err := r.pool.Query(ctx, r.examSQL())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", examTable, err)
	}
	defer rows.Close()

	var out []*ExamRecord
	for rows.Next() {
		var e ExamRecord
		if err := rows.Scan(&e.PatientID, &e.EventID, &e.ExamDate); err != nil {
			return nil, fmt.Errorf("scan %s: %w", examTable, err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
