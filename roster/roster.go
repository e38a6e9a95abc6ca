// Package roster reads student lists from and writes course rosters to
// Excel workbooks.
package roster

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"school-graphql-server-go/models"
)

// ContentType is the MIME type of the workbooks written by this package.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrNoSheets is returned when an uploaded workbook has no sheets.
var ErrNoSheets = errors.New("excel file does not contain any sheets")

var rosterHeader = []interface{}{"ID", "Name", "Email"}

// Row is one student line from an import workbook.
type Row struct {
	Line  int
	Name  string
	Email string
}

// ReadStudents reads students from the first sheet of a workbook. The first
// row is a header; column A holds the name and column B the email. Rows
// missing either value are skipped and counted.
func ReadStudents(r io.Reader) ([]Row, int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, 0, ErrNoSheets
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get rows from sheet %s: %w", sheet, err)
	}

	var (
		out     []Row
		skipped int
	)
	for i, row := range rows {
		if i == 0 {
			continue
		}
		var name, email string
		if len(row) > 0 {
			name = strings.TrimSpace(row[0])
		}
		if len(row) > 1 {
			email = strings.TrimSpace(row[1])
		}
		if name == "" || email == "" {
			skipped++
			continue
		}
		out = append(out, Row{Line: i + 1, Name: name, Email: email})
	}
	return out, skipped, nil
}

// WriteCourseRoster writes the students of a course as a workbook with one
// header row followed by one row per student.
func WriteCourseRoster(w io.Writer, students []models.Student) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &rosterHeader); err != nil {
		return err
	}
	for i, s := range students {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{s.ID.Hex(), s.Name, s.Email}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "C", 28); err != nil {
		return err
	}
	return f.Write(w)
}

// Filename returns the download name for a course roster.
func Filename(c *models.Course) string {
	title := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		case r == ' ' || r == '_':
			return '_'
		}
		return -1
	}, c.Title)
	if title == "" {
		title = c.ID.Hex()
	}
	return title + "_roster.xlsx"
}
