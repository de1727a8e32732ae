package dedupe

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Report is the result of one scan. It is assembled once and not modified
// after Finalize.
type Report struct {
	ID          string    `json:"id"`
	Root        string    `json:"root"`
	Destination string    `json:"destination"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	DryRun      bool      `json:"dry_run"`
	Algorithm   Algorithm `json:"algorithm"`
	Threshold   int       `json:"threshold"`

	TotalFiles int `json:"total_files"`
	Images     int `json:"images"`
	Videos     int `json:"videos"`

	Exact   []ExactGroupReport `json:"exact_groups"`
	Near    []NearGroupReport  `json:"near_groups"`
	Moved   []Move             `json:"moved"`
	Planned []Move             `json:"planned"`
	Errors  []FileError        `json:"errors"`

	Summary Summary `json:"summary"`
}

// ExactGroupReport is the serialized form of an ExactGroup.
type ExactGroupReport struct {
	Digest string   `json:"digest"`
	Size   int64    `json:"size"`
	Paths  []string `json:"paths"`
}

// NearGroupReport is the serialized form of a NearGroup.
type NearGroupReport struct {
	Fingerprint string   `json:"fingerprint"`
	Paths       []string `json:"paths"`
	Distances   []int    `json:"distances"`
}

// Summary holds counts derived from the rest of the report.
type Summary struct {
	ExactGroups      int   `json:"exact_groups"`
	NearGroups       int   `json:"near_groups"`
	Moved            int   `json:"moved"`
	Planned          int   `json:"planned"`
	Errors           int   `json:"errors"`
	ReclaimableBytes int64 `json:"reclaimable_bytes"`
}

func exactReport(g ExactGroup) ExactGroupReport {
	paths := make([]string, len(g.Files))
	for i, f := range g.Files {
		paths[i] = f.Path
	}
	return ExactGroupReport{Digest: g.Digest, Size: g.Size, Paths: paths}
}

func nearReport(g NearGroup) NearGroupReport {
	paths := make([]string, len(g.Files))
	for i, f := range g.Files {
		paths[i] = f.Path
	}
	distances := make([]int, len(g.Distances))
	copy(distances, g.Distances)
	return NearGroupReport{Fingerprint: FormatFingerprint(g.Fingerprint), Paths: paths, Distances: distances}
}

// Finalize normalises times to UTC, replaces nil lists with empty ones so
// JSON always carries arrays, and recomputes the summary.
func (r *Report) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Exact == nil {
		r.Exact = []ExactGroupReport{}
	}
	if r.Near == nil {
		r.Near = []NearGroupReport{}
	}
	if r.Moved == nil {
		r.Moved = []Move{}
	}
	if r.Planned == nil {
		r.Planned = []Move{}
	}
	if r.Errors == nil {
		r.Errors = []FileError{}
	}

	s := Summary{
		ExactGroups: len(r.Exact),
		NearGroups:  len(r.Near),
		Moved:       len(r.Moved),
		Planned:     len(r.Planned),
		Errors:      len(r.Errors),
	}
	for _, g := range r.Exact {
		s.ReclaimableBytes += g.Size * int64(len(g.Paths)-1)
	}
	r.Summary = s
}

// HasErrors reports whether any file failed.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ReadReport parses a report written by WriteJSON.
func ReadReport(rd io.Reader) (*Report, error) {
	var r Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &r, nil
}

// WriteCSV writes one row per grouped file for use in spreadsheets and
// other tools.
func (r *Report) WriteCSV(w io.Writer) error {
	destinations := make(map[string]string, len(r.Moved)+len(r.Planned))
	for _, m := range r.Planned {
		destinations[m.Source] = m.Destination
	}
	for _, m := range r.Moved {
		destinations[m.Source] = m.Destination
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"group", "kind", "id", "path", "size", "action", "destination"}); err != nil {
		return err
	}

	group := 0
	for _, g := range r.Exact {
		group++
		for i, path := range g.Paths {
			action := "keep"
			if i > 0 {
				action = "move"
			}
			row := []string{strconv.Itoa(group), "exact", g.Digest, path, strconv.FormatInt(g.Size, 10), action, destinations[path]}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	for _, g := range r.Near {
		group++
		for _, path := range g.Paths {
			row := []string{strconv.Itoa(group), "near", g.Fingerprint, path, "", "review", ""}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
