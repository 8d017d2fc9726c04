// Package report summarises a vertex and an edge import and persists their bad documents.
package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/mikeblum/graph-bulk-import/bulk"
	"github.com/mikeblum/graph-bulk-import/conf"
)

type Summary struct {
	Vertices      int64
	Edges         int64
	CapacityUnits float64
	TotalTime     time.Duration
	BadVertices   []bulk.Quarantined
	BadEdges      []bulk.Quarantined
}

// NewSummary combines both runs. A nil result counts as an empty run.
func NewSummary(vertices, edges *bulk.ImportResult) *Summary {
	s := &Summary{}
	for _, r := range []*bulk.ImportResult{vertices, edges} {
		if r == nil {
			continue
		}
		s.CapacityUnits += r.TotalCapacityUnitsConsumed
		s.TotalTime += r.TotalTimeTaken
	}
	if vertices != nil {
		s.Vertices = vertices.NumberOfDocumentsImported
		s.BadVertices = vertices.BadInputDocuments
	}
	if edges != nil {
		s.Edges = edges.NumberOfDocumentsImported
		s.BadEdges = edges.BadInputDocuments
	}
	return s
}

func (s *Summary) Total() int64 {
	return s.Vertices + s.Edges
}

func (s *Summary) WritesPerSecond() float64 {
	if s.TotalTime <= 0 {
		return 0
	}
	return float64(s.Total()) / s.TotalTime.Seconds()
}

func (s *Summary) UnitsPerSecond() float64 {
	if s.TotalTime <= 0 {
		return 0
	}
	return s.CapacityUnits / s.TotalTime.Seconds()
}

// UnitsPerInsert is zero when nothing was imported.
func (s *Summary) UnitsPerInsert() float64 {
	if s.Total() == 0 {
		return 0
	}
	return s.CapacityUnits / float64(s.Total())
}

func (s *Summary) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w, "\nSummary for batch\n%s\n"+
		"Inserted %d graph elements (%d vertices, %d edges) @ %.0f writes/s, %.0f RU/s in %g sec)\n"+
		"Average RU consumption per insert: %g\n%s\n",
		RULE,
		s.Total(), s.Vertices, s.Edges,
		math.Round(s.WritesPerSecond()), math.Round(s.UnitsPerSecond()), s.TotalTime.Seconds(),
		s.UnitsPerInsert(),
		RULE,
	)
	return err
}

// WriteBadDocuments appends each non-empty quarantine list to its file under dir, one JSON
// document per line. It returns the files written.
func (s *Summary) WriteBadDocuments(dir string) ([]string, error) {
	log := conf.NewLog().With("dir", dir)
	var written []string
	var errs []error
	for _, f := range []struct {
		name    string
		entries []bulk.Quarantined
	}{
		{BAD_VERTICES_FILE, s.BadVertices},
		{BAD_EDGES_FILE, s.BadEdges},
	} {
		if len(f.entries) == 0 {
			continue
		}
		path := filepath.Join(dir, f.name)
		if err := appendLines(path, f.entries); err != nil {
			log.WithErrorMsg(err, "Error writing bad documents", "action", "report", "file", path)
			errs = append(errs, err)
			continue
		}
		log.Info("Wrote bad documents", "action", "report", "file", path, "count", len(f.entries))
		written = append(written, path)
	}
	return written, errors.Join(errs...)
}

func appendLines(path string, entries []bulk.Quarantined) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	buf := bufio.NewWriter(file)
	enc := json.NewEncoder(buf)
	for _, q := range entries {
		if err = enc.Encode(q); err != nil {
			file.Close()
			return fmt.Errorf("encode %s: %w", q.Element.ID, err)
		}
	}
	if err = buf.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
