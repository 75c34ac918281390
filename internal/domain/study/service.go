package study

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	dl     Downloader
	dir    string
	logger zerolog.Logger
}

// NewService wires the duration engine. dl may be nil, in which case files
// are expected to be present already.
func NewService(repo Repository, dl Downloader, dir string, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		dl:     dl,
		dir:    dir,
		logger: logger.With().Str("component", "disease_duration").Logger(),
	}
}

// EnsureFiles makes sure every file the repository reads is present locally,
// downloading the missing ones. Anything the downloader cannot supply is a
// MissingInputError.
func (s *Service) EnsureFiles(ctx context.Context, force bool) error {
	required := s.repo.RequiredFiles()
	if len(required) == 0 || s.dl == nil {
		return nil
	}

	missing, err := s.dl.MissingStudyFiles(ctx, required, force)
	if err != nil {
		return fmt.Errorf("check study files: %w", err)
	}
	if len(missing) == 0 {
		s.logger.Debug().Str("study_dir", s.dir).Msg("download skipped: no missing files")
		return nil
	}

	s.logger.Info().Strs("files", missing).Bool("force", force).Msg("downloading study files")
	fetched, still, err := s.dl.GetStudyFiles(ctx, missing, force)
	if err != nil {
		return fmt.Errorf("download study files: %w", err)
	}
	if len(still) > 0 {
		return &MissingInputError{Dir: s.dir, Files: still}
	}
	s.logger.Info().Strs("files", fetched).Msg("study files downloaded")
	return nil
}

// DiseaseDuration computes the months elapsed between diagnosis and every
// motor-exam visit. Rows keep the exam table order. Any missing input or
// malformed date fails the whole computation.
func (s *Service) DiseaseDuration(ctx context.Context, opts Options) ([]*DurationRecord, error) {
	policy, err := ParseConflictPolicy(string(opts.Policy))
	if err != nil {
		return nil, err
	}
	if err := s.EnsureFiles(ctx, opts.Force); err != nil {
		return nil, err
	}

	diagnoses, err := s.repo.ListDiagnoses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load diagnosis history: %w", err)
	}
	index, err := BuildDiagnosisIndex(diagnoses, policy)
	if err != nil {
		return nil, err
	}

	exams, err := s.repo.ListExams(ctx)
	if err != nil {
		return nil, fmt.Errorf("load motor exams: %w", err)
	}

	out, err := ComputeDurations(exams, index, opts.Minimal)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Int("visits", len(out)).
		Int("diagnosed_patients", len(index)).
		Str("policy", string(policy)).
		Msg("disease duration computed")
	return out, nil
}

// BuildDiagnosisIndex maps each patient to their screening diagnosis date.
// Rows that are not screening visits or lack a date are ignored. Repeated
// rows carrying the same date are not a conflict.
func BuildDiagnosisIndex(rows []*DiagnosisRecord, policy ConflictPolicy) (map[string]string, error) {
	index := make(map[string]string)
	var conflicts map[string][]string

	for _, r := range rows {
		if !r.IsScreening() {
			continue
		}
		prev, seen := index[r.PatientID]
		if !seen {
			index[r.PatientID] = r.DiagnosisDate
			continue
		}
		if prev == r.DiagnosisDate {
			continue
		}
		switch policy {
		case KeepFirst:
		case Reject:
			if conflicts == nil {
				conflicts = make(map[string][]string)
			}
			if len(conflicts[r.PatientID]) == 0 {
				conflicts[r.PatientID] = []string{prev}
			}
			conflicts[r.PatientID] = append(conflicts[r.PatientID], r.DiagnosisDate)
		default:
			index[r.PatientID] = r.DiagnosisDate
		}
	}

	// Report the first offending patient in input order.
	for _, r := range rows {
		if dates, ok := conflicts[r.PatientID]; ok {
			return nil, &DuplicateDiagnosisError{PatientID: r.PatientID, Dates: dates}
		}
	}
	return index, nil
}

// ComputeDurations joins exams with the diagnosis index. Exams of patients
// without a diagnosis get a nil duration.
func ComputeDurations(exams []*ExamRecord, index map[string]string, minimal bool) ([]*DurationRecord, error) {
	parsedDx := make(map[string]time.Time, len(index))
	out := make([]*DurationRecord, 0, len(exams))

	for _, e := range exams {
		rec := &DurationRecord{PatientID: e.PatientID, EventID: e.EventID}
		dx, ok := index[e.PatientID]

		if ok {
			dxTime, cached := parsedDx[e.PatientID]
			if !cached {
				t, err := ParseDate(dx)
				if err != nil {
					return nil, &MalformedDateError{Column: "PDDXDT", PatientID: e.PatientID, EventID: ScreeningEvent, Value: dx, Err: err}
				}
				dxTime = t
				parsedDx[e.PatientID] = t
			}
			examTime, err := ParseDate(e.ExamDate)
			if err != nil {
				return nil, &MalformedDateError{Column: "INFODT", PatientID: e.PatientID, EventID: e.EventID, Value: e.ExamDate, Err: err}
			}
			months := MonthsBetween(examTime, dxTime)
			rec.DurationMonths = &months
		}

		if !minimal {
			examDate := e.ExamDate
			rec.ExamDate = &examDate
			if ok {
				dxDate := dx
				rec.DiagnosisDate = &dxDate
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
