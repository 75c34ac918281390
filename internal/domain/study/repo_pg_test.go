package study

import (
	"strings"
	"testing"
)

func TestRepoPG_DefaultSchema(t *testing.T) {
	r := NewRepoPG(nil, "").(*repoPG)
	if r.schema != "public" {
		t.Errorf("expected public schema, got %q", r.schema)
	}
	if r.RequiredFiles() != nil {
		t.Errorf("expected no required files, got %v", r.RequiredFiles())
	}
}

func TestRepoPG_QueriesKeepLoadOrder(t *testing.T) {
	r := NewRepoPG(nil, "ppmi").(*repoPG)

	for name, q := range map[string]string{"diagnosis": r.diagnosisSQL(), "exam": r.examSQL()} {
		if !strings.HasSuffix(q, " ORDER BY ctid") {
			t.Errorf("%s query not ordered by row position: %s", name, q)
		}
		if strings.Contains(q, "ORDER BY patno") {
			t.Errorf("%s query reorders rows by patient: %s", name, q)
		}
	}
	if !strings.Contains(r.diagnosisSQL(), `FROM "ppmi"."pd_diagnosis_history"`) {
		t.Errorf("unexpected diagnosis query: %s", r.diagnosisSQL())
	}
	if !strings.Contains(r.examSQL(), `FROM "ppmi"."mds_updrs_part_iii"`) {
		t.Errorf("unexpected exam query: %s", r.examSQL())
	}
	if !strings.Contains(r.diagnosisSQL(), "COALESCE(pddxdt::text, '')") {
		t.Errorf("diagnosis query does not read PDDXDT: %s", r.diagnosisSQL())
	}
}

func TestRepoPG_QuotesSchema(t *testing.T) {
	r := NewRepoPG(nil, `odd"schema`).(*repoPG)
	if !strings.Contains(r.examSQL(), `FROM "odd""schema"."mds_updrs_part_iii"`) {
		t.Errorf("schema not sanitized: %s", r.examSQL())
	}
}
