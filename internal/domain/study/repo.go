package study

import "context"

// Repository loads the typed study tables.
type Repository interface {
	// RequiredFiles lists the study files that must exist locally before the
	// tables can be read. Sources that do not read files return nil.
	RequiredFiles() []string
	ListDiagnoses(ctx context.Context) ([]*DiagnosisRecord, error)
	ListExams(ctx context.Context) ([]*ExamRecord, error)
}

// Downloader fetches study files into the study directory.
type Downloader interface {
	// MissingStudyFiles returns the names that still need downloading. With
	// force every name is reported.
	MissingStudyFiles(ctx context.Context, names []string, force bool) ([]string, error)
	// GetStudyFiles downloads names and returns what was fetched and what is
	// still missing afterwards.
	GetStudyFiles(ctx context.Context, names []string, force bool) (fetched, missing []string, err error)
}
