package study

// Study table files consumed by the duration engine.
const (
	MotorExamFile        = "MDS-UPDRS_Part_III.csv"
	DiagnosisHistoryFile = "PD_Diagnosis_History.csv"
)

// ScreeningEvent is the EVENT_ID of the screening visit, the only visit at
// which the diagnosis date is recorded.
const ScreeningEvent = "SC"

// DiagnosisRecord is one row of PD_Diagnosis_History (PATNO, EVENT_ID, PDDXDT).
type DiagnosisRecord struct {
	PatientID     string `json:"patno"`
	EventID       string `json:"event_id"`
	DiagnosisDate string `json:"pddxdt"`
}

// IsScreening reports whether the record carries a usable screening diagnosis.
func (r DiagnosisRecord) IsScreening() bool {
	return r.EventID == ScreeningEvent && r.DiagnosisDate != ""
}

// ExamRecord is one row of MDS-UPDRS Part III (PATNO, EVENT_ID, INFODT).
type ExamRecord struct {
	PatientID string `json:"patno"`
	EventID   string `json:"event_id"`
	ExamDate  string `json:"infodt"`
}

// DurationRecord is the derived disease duration for one exam visit.
// DurationMonths is nil when the patient has no screening diagnosis date.
// ExamDate and DiagnosisDate are only populated for non-minimal output.
type DurationRecord struct {
	PatientID      string  `json:"patno"`
	EventID        string  `json:"event_id"`
	DurationMonths *int    `json:"pdxdur"`
	ExamDate       *string `json:"infodt,omitempty"`
	DiagnosisDate  *string `json:"pddxdt,omitempty"`
}

// ConflictPolicy decides what happens when a patient has more than one
// screening diagnosis row.
type ConflictPolicy string

const (
	KeepLast  ConflictPolicy = "keep-last"
	KeepFirst ConflictPolicy = "keep-first"
	Reject    ConflictPolicy = "reject"
)

// ParseConflictPolicy validates s. The empty string selects KeepLast.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(s); p {
	case "":
		return KeepLast, nil
	case KeepLast, KeepFirst, Reject:
		return p, nil
	default:
		return "", &PolicyError{Value: s}
	}
}

// Options controls a single duration computation.
type Options struct {
	// Force re-downloads the study files even when present locally.
	Force bool
	// Minimal drops the exam and diagnosis dates from the output.
	Minimal bool
	Policy  ConflictPolicy
}
