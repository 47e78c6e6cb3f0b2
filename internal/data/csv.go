package data

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"battery-sizing/internal/model"
)

// CSVOptions controls how meter exports are read.
type CSVOptions struct {
	// Location applies to timestamps without an offset. Defaults to UTC.
	Location *time.Location
	// EAN keeps only rows of this meter in multi-meter files (the EAN_ID
	// column of Fluvius open data). Empty keeps the first meter seen that
	// passes the other filters.
	EAN string
	// PV and EV keep only rows whose PV_Installatie_Indicator or
	// Elektrisch_Voertuig_Indicator matches. Nil, or a file without the
	// column, keeps every row.
	PV *bool
	EV *bool
	// Window drops rows outside the time range.
	Window Window
}

var (
	timestampColumns = []string{"timestamp", "datetime", "time", "datum_startuur"}
	remainingColumns = []string{"remaining_kwh", "remaining"}
	importColumns    = []string{"import_kwh", "import", "volume_afname_kwh"}
	exportColumns    = []string{"export_kwh", "export", "volume_injectie_kwh"}
	eanColumns       = []string{"ean_id", "ean"}
	pvColumns        = []string{"pv_installatie_indicator", "pv"}
	evColumns        = []string{"elektrisch_voertuig_indicator", "ev"}
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// LoadCSV reads intervals from a CSV file.
func LoadCSV(path string, opts CSVOptions) ([]model.Interval, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f, opts)
}

// ReadCSV parses a meter export. The header must name a timestamp column and
// either a remaining column or import and export columns, in which case
// remaining = import - export. Rows with empty cells are dropped, the rest are
// sorted by time. Semicolon-separated files may use decimal commas.
func ReadCSV(r io.Reader, opts CSVOptions) ([]model.Interval, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	header := string(first)
	if i := strings.IndexByte(header, '\n'); i >= 0 {
		header = header[:i]
	}
	sep := ','
	if strings.Contains(header, ";") && !strings.Contains(header, ",") {
		sep = ';'
	}

	cr := csv.NewReader(br)
	cr.Comma = sep
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	cols, err := cr.Read()
	if err == io.EOF {
		return nil, model.ErrInsufficientData
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := indexColumns(cols)
	tsCol := idx.find(timestampColumns)
	remCol := idx.find(remainingColumns)
	impCol, expCol := idx.find(importColumns), idx.find(exportColumns)
	eanCol := idx.find(eanColumns)
	pvCol, evCol := idx.find(pvColumns), idx.find(evColumns)
	if tsCol < 0 {
		return nil, fmt.Errorf("csv header has no timestamp column (want one of %s)", strings.Join(timestampColumns, ", "))
	}
	if remCol < 0 && (impCol < 0 || expCol < 0) {
		return nil, fmt.Errorf("csv header needs a remaining column or both import and export columns")
	}

	ean := strings.TrimSpace(opts.EAN)
	var out []model.Interval
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if !indicatorMatches(rec, pvCol, opts.PV) || !indicatorMatches(rec, evCol, opts.EV) {
			continue
		}

		rawTS := cell(rec, tsCol)
		if rawTS == "" {
			continue
		}
		ts, err := parseTimestamp(rawTS, loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !opts.Window.Contains(ts) {
			continue
		}

		if eanCol >= 0 {
			v := cell(rec, eanCol)
			if ean == "" {
				ean = v
			}
			if v != ean {
				continue
			}
		}

		var remaining float64
		if remCol >= 0 {
			v, ok, err := number(cell(rec, remCol), sep)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			if !ok {
				continue
			}
			remaining = v
		} else {
			imp, okImp, err := number(cell(rec, impCol), sep)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			exp, okExp, err := number(cell(rec, expCol), sep)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			if !okImp || !okExp {
				continue
			}
			remaining = imp - exp
		}

		out = append(out, model.Interval{Timestamp: ts, RemainingKWh: remaining})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// LoadFile picks the decoder from the file extension (.json or .csv).
func LoadFile(path string, opts CSVOptions) ([]model.Interval, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		in, err := LoadJSON(path)
		if err != nil {
			return nil, err
		}
		return opts.Window.Apply(in), nil
	case ".csv", ".txt":
		return LoadCSV(path, opts)
	default:
		return nil, fmt.Errorf("unsupported series file %q (want .csv or .json)", path)
	}
}

type columnIndex map[string]int

func indexColumns(cols []string) columnIndex {
	idx := columnIndex{}
	for i, c := range cols {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func (idx columnIndex) find(names []string) int {
	for _, n := range names {
		if i, ok := idx[n]; ok {
			return i
		}
	}
	return -1
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// indicatorMatches reports whether the boolean cell at col equals want.
// Unparseable cells never match.
func indicatorMatches(rec []string, col int, want *bool) bool {
	if want == nil || col < 0 {
		return true
	}
	var v bool
	switch s := strings.ToLower(cell(rec, col)); s {
	case "ja", "yes", "y":
		v = true
	case "nee", "no", "n":
		v = false
	default:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false
		}
		v = b
	}
	return v == *want
}

// number parses a cell. Empty and NaN cells report ok=false.
func number(s string, sep rune) (float64, bool, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false, nil
	}
	if sep == ';' {
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid number %q", s)
	}
	return v, true, nil
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
