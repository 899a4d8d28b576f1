// Package storage persists fix history as CSV files and answers
// file-level queries: statistics, date filtering and age-based cleanup.
package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vaultecki/py-positioning-stuff/internal/track"
)

var csvHeader = []string{
	"timestamp", "latitude", "longitude", "altitude",
	"speed", "course", "satellites", "quality",
}

const timestampLayout = time.RFC3339Nano

// FileStats summarizes one CSV file.
type FileStats struct {
	RecordCount     int      `json:"record_count"`
	AvgLatitude     *float64 `json:"avg_latitude,omitempty"`
	AvgLongitude    *float64 `json:"avg_longitude,omitempty"`
	AvgAltitude     *float64 `json:"avg_altitude,omitempty"`
	MinLatitude     *float64 `json:"min_latitude,omitempty"`
	MaxLatitude     *float64 `json:"max_latitude,omitempty"`
	MinLongitude    *float64 `json:"min_longitude,omitempty"`
	MaxLongitude    *float64 `json:"max_longitude,omitempty"`
	TimeSpanSeconds *float64 `json:"time_span_seconds,omitempty"`
}

// Storage writes and reads CSV files under one directory.
type Storage struct {
	dir string
}

// New creates the storage directory if needed.
func New(dir string) (*Storage, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Storage{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *Storage) Dir() string { return s.dir }

func (s *Storage) path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}

// Save writes fixes to filename, overwriting unless appendMode is set.
// The header row is written only when starting a fresh file. Returns
// the full path.
func (s *Storage) Save(fixes []track.Fix, filename string, appendMode bool) (string, error) {
	path := s.path(filename)

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	writeHeader := true
	if appendMode {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
			writeHeader = false
		}
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return "", err
		}
	}
	for _, fix := range fixes {
		if err := w.Write(buildRow(fix)); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	log.Printf("[storage] saved %d positions to %s", len(fixes), path)
	return path, nil
}

// Append adds fixes to an existing file, creating it when absent.
func (s *Storage) Append(fixes []track.Fix, filename string) (string, error) {
	return s.Save(fixes, filename, true)
}

// Load reads all fixes from filename. Rows that cannot be decoded are
// skipped with a logged diagnostic.
func (s *Storage) Load(filename string) ([]track.Fix, error) {
	f, err := os.Open(s.path(filename))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var fixes []track.Fix
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if len(row) > 0 && row[0] == "timestamp" {
				continue
			}
		}
		fix, err := parseRow(row)
		if err != nil {
			log.Printf("[storage] skipping row: %v", err)
			continue
		}
		fixes = append(fixes, fix)
	}
	return fixes, nil
}

// Statistics computes aggregates over one file.
func (s *Storage) Statistics(filename string) (FileStats, error) {
	fixes, err := s.Load(filename)
	if err != nil {
		return FileStats{}, err
	}

	stats := FileStats{RecordCount: len(fixes)}
	if len(fixes) == 0 {
		return stats, nil
	}

	var sumLat, sumLon, sumAlt float64
	minLat, maxLat := fixes[0].Latitude, fixes[0].Latitude
	minLon, maxLon := fixes[0].Longitude, fixes[0].Longitude
	first, last := fixes[0].Timestamp, fixes[0].Timestamp

	for _, fix := range fixes {
		sumLat += fix.Latitude
		sumLon += fix.Longitude
		sumAlt += fix.Altitude
		if fix.Latitude < minLat {
			minLat = fix.Latitude
		}
		if fix.Latitude > maxLat {
			maxLat = fix.Latitude
		}
		if fix.Longitude < minLon {
			minLon = fix.Longitude
		}
		if fix.Longitude > maxLon {
			maxLon = fix.Longitude
		}
		if fix.Timestamp.Before(first) {
			first = fix.Timestamp
		}
		if fix.Timestamp.After(last) {
			last = fix.Timestamp
		}
	}

	n := float64(len(fixes))
	avgLat, avgLon, avgAlt := sumLat/n, sumLon/n, sumAlt/n
	span := last.Sub(first).Seconds()

	stats.AvgLatitude = &avgLat
	stats.AvgLongitude = &avgLon
	stats.AvgAltitude = &avgAlt
	stats.MinLatitude = &minLat
	stats.MaxLatitude = &maxLat
	stats.MinLongitude = &minLon
	stats.MaxLongitude = &maxLon
	stats.TimeSpanSeconds = &span
	return stats, nil
}

// FilterByDate returns fixes with start <= timestamp <= end.
func (s *Storage) FilterByDate(filename string, start, end time.Time) ([]track.Fix, error) {
	fixes, err := s.Load(filename)
	if err != nil {
		return nil, err
	}
	var out []track.Fix
	for _, fix := range fixes {
		if fix.Timestamp.Before(start) || fix.Timestamp.After(end) {
			continue
		}
		out = append(out, fix)
	}
	return out, nil
}

// DeleteOlderThan rewrites filename keeping only fixes younger than
// maxAge, returning how many records were removed.
func (s *Storage) DeleteOlderThan(filename string, maxAge time.Duration) (int, error) {
	fixes, err := s.Load(filename)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	kept := fixes[:0]
	for _, fix := range fixes {
		if !fix.Timestamp.Before(cutoff) {
			kept = append(kept, fix)
		}
	}

	deleted := len(fixes) - len(kept)
	if _, err := s.Save(kept, filename, false); err != nil {
		return 0, err
	}
	log.Printf("[storage] deleted %d records from %s", deleted, filename)
	return deleted, nil
}

// ListFiles returns the CSV filenames in the storage directory, sorted.
func (s *Storage) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".csv") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func buildRow(fix track.Fix) []string {
	row := make([]string, len(csvHeader))
	row[0] = fix.Timestamp.Format(timestampLayout)
	row[1] = strconv.FormatFloat(fix.Latitude, 'f', 6, 64)
	row[2] = strconv.FormatFloat(fix.Longitude, 'f', 6, 64)
	row[3] = strconv.FormatFloat(fix.Altitude, 'f', 1, 64)
	if fix.Speed != nil {
		row[4] = strconv.FormatFloat(*fix.Speed, 'f', 3, 64)
	}
	if fix.Course != nil {
		row[5] = strconv.FormatFloat(*fix.Course, 'f', 1, 64)
	}
	if fix.Satellites != nil {
		row[6] = strconv.Itoa(*fix.Satellites)
	}
	if fix.Quality != nil {
		row[7] = strconv.Itoa(*fix.Quality)
	}
	return row
}

func parseRow(row []string) (track.Fix, error) {
	if len(row) < 4 {
		return track.Fix{}, fmt.Errorf("short row: %d fields", len(row))
	}
	ts, err := time.Parse(timestampLayout, row[0])
	if err != nil {
		return track.Fix{}, fmt.Errorf("timestamp %q: %w", row[0], err)
	}
	lat, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return track.Fix{}, fmt.Errorf("latitude %q: %w", row[1], err)
	}
	lon, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return track.Fix{}, fmt.Errorf("longitude %q: %w", row[2], err)
	}
	alt, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return track.Fix{}, fmt.Errorf("altitude %q: %w", row[3], err)
	}

	fix := track.Fix{Latitude: lat, Longitude: lon, Altitude: alt, Timestamp: ts}
	if len(row) > 4 && row[4] != "" {
		if v, err := strconv.ParseFloat(row[4], 64); err == nil {
			fix.Speed = &v
		}
	}
	if len(row) > 5 && row[5] != "" {
		if v, err := strconv.ParseFloat(row[5], 64); err == nil {
			fix.Course = &v
		}
	}
	if len(row) > 6 && row[6] != "" {
		if v, err := strconv.Atoi(row[6]); err == nil {
			fix.Satellites = &v
		}
	}
	if len(row) > 7 && row[7] != "" {
		if v, err := strconv.Atoi(row[7]); err == nil {
			fix.Quality = &v
		}
	}
	return fix, nil
}
