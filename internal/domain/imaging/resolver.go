// Package imaging locates cached PPMI NIfTI files.
//
// The cache mirrors the archive layout:
//
//	{cache_dir}/{base_dir}/sub-{subject}/ses-{event}/anat/PPMI_*{protocol}_br_raw_*.nii
//
// Protocol descriptions in study metadata drift from the text embedded in
// file names, so the description is canonicalized before matching. A query
// resolves only when exactly one file matches; zero or several matches
// yield an empty result and a warning.
package imaging

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/livingpark/ppmi/internal/domain/protocol"
)

const (
	DefaultCacheDir = ".cache"
	DefaultBaseDir  = "inputs"
)

var ErrInvalidQuery = errors.New("invalid cache query")

// Query identifies one acquisition of one subject at one visit.
type Query struct {
	SubjectID           string `json:"subject_id"`
	EventID             string `json:"event_id"`
	ProtocolDescription string `json:"protocol_description"`
}

// Outcome classifies a lookup.
type Outcome string

const (
	OutcomeFound     Outcome = "found"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeAmbiguous Outcome = "ambiguous"
)

// Resolution is the classified result of a lookup. Path is empty unless
// Outcome is OutcomeFound.
type Resolution struct {
	Query    Query    `json:"query"`
	Protocol string   `json:"protocol"`
	Pattern  string   `json:"pattern"`
	Outcome  Outcome  `json:"outcome"`
	Path     string   `json:"path"`
	Matches  []string `json:"matches,omitempty"`
}

// Globber enumerates files matching a shell pattern.
type Globber interface {
	Glob(pattern string) ([]string, error)
}

// GlobFunc adapts a function to Globber.
type GlobFunc func(pattern string) ([]string, error)

func (f GlobFunc) Glob(pattern string) ([]string, error) { return f(pattern) }

// FileSystem globs the local filesystem.
var FileSystem Globber = GlobFunc(filepath.Glob)

type Resolver struct {
	cacheDir string
	baseDir  string
	fs       Globber
	logger   zerolog.Logger
}

// NewResolver returns a resolver rooted at cacheDir/baseDir. Empty values
// fall back to ".cache" and "inputs"; a nil fs uses the local filesystem.
func NewResolver(cacheDir, baseDir string, fs Globber, logger zerolog.Logger) *Resolver {
	if cacheDir == "" {
		cacheDir = DefaultCacheDir
	}
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	if fs == nil {
		fs = FileSystem
	}
	return &Resolver{
		cacheDir: cacheDir,
		baseDir:  baseDir,
		fs:       fs,
		logger:   logger.With().Str("component", "nifti_cache").Logger(),
	}
}

// Pattern builds the glob pattern for q along with the cleaned protocol.
func (r *Resolver) Pattern(q Query) (pattern, cleaned string, err error) {
	subject := strings.TrimSpace(q.SubjectID)
	event := strings.TrimSpace(q.EventID)
	cleaned = protocol.Clean(q.ProtocolDescription)

	switch {
	case subject == "":
		return "", "", fmt.Errorf("%w: subject id is required", ErrInvalidQuery)
	case event == "":
		return "", "", fmt.Errorf("%w: event id is required", ErrInvalidQuery)
	case cleaned == "":
		return "", "", fmt.Errorf("%w: protocol description %q is empty once cleaned", ErrInvalidQuery, q.ProtocolDescription)
	}

	pattern = filepath.Join(
		r.cacheDir,
		r.baseDir,
		"sub-"+subject,
		"ses-"+event,
		"anat",
		"PPMI_*"+cleaned+"_br_raw_*.nii",
	)
	if _, err := filepath.Match(pattern, ""); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return pattern, cleaned, nil
}

// Classify decides the outcome of a lookup from the files that matched.
func Classify(q Query, cleaned, pattern string, matches []string) Resolution {
	res := Resolution{Query: q, Protocol: cleaned, Pattern: pattern, Matches: matches}
	switch len(matches) {
	case 0:
		res.Outcome = OutcomeNotFound
	case 1:
		res.Outcome = OutcomeFound
		res.Path = matches[0]
	default:
		res.Outcome = OutcomeAmbiguous
	}
	return res
}

// Resolve runs both phases and logs a warning for unresolved lookups.
func (r *Resolver) Resolve(q Query) (Resolution, error) {
	pattern, cleaned, err := r.Pattern(q)
	if err != nil {
		return Resolution{}, err
	}
	matches, err := r.fs.Glob(pattern)
	if err != nil {
		return Resolution{}, fmt.Errorf("glob %s: %w", pattern, err)
	}

	res := Classify(q, cleaned, pattern, matches)
	switch res.Outcome {
	case OutcomeNotFound:
		r.warn(res, "no nifti file matched")
	case OutcomeAmbiguous:
		r.warn(res, "more than one nifti file matched")
	}
	return res, nil
}

// Find returns the single cached file matching q, or "" when nothing or
// more than one file matches.
func (r *Resolver) Find(q Query) (string, error) {
	res, err := r.Resolve(q)
	if err != nil {
		return "", err
	}
	return res.Path, nil
}

// FindAll resolves every query. Unresolved queries get an empty path; only
// invalid queries abort the batch.
func (r *Resolver) FindAll(qs []Query) ([]Resolution, error) {
	out := make([]Resolution, 0, len(qs))
	for i, q := range qs {
		res, err := r.Resolve(q)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func (r *Resolver) warn(res Resolution, msg string) {
	r.logger.Warn().
		Str("pattern", res.Pattern).
		Str("subject_id", strings.TrimSpace(res.Query.SubjectID)).
		Str("event_id", strings.TrimSpace(res.Query.EventID)).
		Str("protocol_description", res.Protocol).
		Int("matches", len(res.Matches)).
		Msg(msg)
}
