// Package dataset reads and writes the CSV files exchanged between stages.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"district-realign/internal/models"
)

var ErrNoRows = errors.New("no data rows")

// ErrMissingColumn is returned when a required CSV column is absent
type ErrMissingColumn struct {
	Column string
}

func (e *ErrMissingColumn) Error() string {
	return fmt.Sprintf("missing required column %q", e.Column)
}

// columnAliases lists the accepted header spellings per column
var columnAliases = map[string][]string{
	"club_no": {"club_no", "club", "clubno"},
	"area":    {"area"},
	"lat":     {"lat", "latitude"},
	"long":    {"long", "lng", "lon", "longitude"},
}

// ReadClubs reads clubs from a CSV with club_no, lat and long columns
func ReadClubs(r io.Reader) ([]models.Club, error) {
	rows, cols, err := readTable(r, "club_no", "lat", "long")
	if err != nil {
		return nil, err
	}

	clubs := make([]models.Club, 0, len(rows))
	for i, row := range rows {
		var c models.Club
		if c.Number, err = parseInt(row, cols["club_no"], i); err != nil {
			return nil, err
		}
		if c.Lat, err = parseFloat(row, cols["lat"], i); err != nil {
			return nil, err
		}
		if c.Lng, err = parseFloat(row, cols["long"], i); err != nil {
			return nil, err
		}
		clubs = append(clubs, c)
	}
	return clubs, nil
}

// ReadAreaClubs reads clubs with their area from a CSV with club_no, area,
// lat and long columns
func ReadAreaClubs(r io.Reader) ([]models.AreaClub, error) {
	rows, cols, err := readTable(r, "club_no", "area", "lat", "long")
	if err != nil {
		return nil, err
	}

	clubs := make([]models.AreaClub, 0, len(rows))
	for i, row := range rows {
		var c models.AreaClub
		if c.ClubNumber, err = parseInt(row, cols["club_no"], i); err != nil {
			return nil, err
		}
		area, err := parseInt(row, cols["area"], i)
		if err != nil {
			return nil, err
		}
		c.Area = int(area)
		if c.Lat, err = parseFloat(row, cols["lat"], i); err != nil {
			return nil, err
		}
		if c.Lng, err = parseFloat(row, cols["long"], i); err != nil {
			return nil, err
		}
		clubs = append(clubs, c)
	}
	return clubs, nil
}

// WriteAreaClubs writes clubs sorted by area then club number
func WriteAreaClubs(w io.Writer, clubs []models.AreaClub) error {
	sorted := append([]models.AreaClub(nil), clubs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Area != sorted[j].Area {
			return sorted[i].Area < sorted[j].Area
		}
		return sorted[i].ClubNumber < sorted[j].ClubNumber
	})

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"club_no", "area", "lat", "long"}); err != nil {
		return err
	}
	for _, c := range sorted {
		if err := cw.Write([]string{
			strconv.FormatInt(c.ClubNumber, 10),
			strconv.Itoa(c.Area),
			formatFloat(c.Lat),
			formatFloat(c.Lng),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAlignment writes the final alignment sorted by division, area, club
func WriteAlignment(w io.Writer, rows []models.Alignment) error {
	sorted := append([]models.Alignment(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Division != b.Division {
			return a.Division < b.Division
		}
		if a.Area != b.Area {
			return a.Area < b.Area
		}
		return a.ClubNumber < b.ClubNumber
	})

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"club_no", "area", "division", "lat", "long"}); err != nil {
		return err
	}
	for _, a := range sorted {
		if err := cw.Write([]string{
			strconv.FormatInt(a.ClubNumber, 10),
			strconv.Itoa(a.Area),
			strconv.Itoa(a.Division),
			formatFloat(a.Lat),
			formatFloat(a.Lng),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCentroids writes one row per area with its mean location
func WriteCentroids(w io.Writer, centroids []models.AreaCentroid) error {
	sorted := append([]models.AreaCentroid(nil), centroids...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Area < sorted[j].Area })

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"area", "lat", "long"}); err != nil {
		return err
	}
	for _, c := range sorted {
		if err := cw.Write([]string{
			strconv.Itoa(c.Area),
			formatFloat(c.Coords.Lat),
			formatFloat(c.Coords.Lng),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadClubsFile opens path and reads clubs from it
func ReadClubsFile(path string) ([]models.Club, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open clubs file: %w", err)
	}
	defer f.Close()

	clubs, err := ReadClubs(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clubs, nil
}

// ReadAreaClubsFile opens path and reads area clubs from it
func ReadAreaClubsFile(path string) ([]models.AreaClub, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open area clubs file: %w", err)
	}
	defer f.Close()

	clubs, err := ReadAreaClubs(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clubs, nil
}

// WriteFile creates path and hands it to write
func WriteFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func readTable(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, ErrNoRows
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(required))
	for _, name := range required {
		idx := findColumn(header, columnAliases[name])
		if idx < 0 {
			return nil, nil, &ErrMissingColumn{Column: name}
		}
		cols[name] = idx
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row: %w", err)
		}
		if blank(row) {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, nil, ErrNoRows
	}

	return rows, cols, nil
}

func findColumn(header, aliases []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, a := range aliases {
			if h == a {
				return i
			}
		}
	}
	return -1
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func field(row []string, col, line int) (string, error) {
	if col >= len(row) || strings.TrimSpace(row[col]) == "" {
		return "", fmt.Errorf("row %d: empty field in column %d", line+1, col+1)
	}
	return strings.TrimSpace(row[col]), nil
}

func parseInt(row []string, col, line int) (int64, error) {
	s, err := field(row, col, line)
	if err != nil {
		return 0, err
	}
	// Spreadsheet exports write integers as 1234.0
	if f, ferr := strconv.ParseFloat(s, 64); ferr == nil && f == float64(int64(f)) {
		return int64(f), nil
	}
	return 0, fmt.Errorf("row %d: invalid integer %q", line+1, s)
}

func parseFloat(row []string, col, line int) (float64, error) {
	s, err := field(row, col, line)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("row %d: invalid number %q", line+1, s)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
