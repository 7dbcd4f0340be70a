package businessflow

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseStats carries aggregate counters from one parse. None of these are fatal;
// they exist for observability and the run summary.
type ParseStats struct {
	RowsTotal     int
	RowsDropped   int
	InvalidEmails int
}

// Permissive local@domain.tld check. Anything failing it is treated as an absent
// email, not a row error.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var nonDigits = regexp.MustCompile(`\D`)

// Column header synonyms per logical field, compared case-insensitively after
// stripping spaces, underscores, and hyphens.
var (
	firstNameHeaders = []string{"firstname", "first", "fname", "givenname", "forename"}
	lastNameHeaders  = []string{"lastname", "last", "lname", "surname", "familyname"}
	emailHeaders     = []string{"email", "emailaddress", "mail", "emailid"}
	phoneHeaders     = []string{"phone", "phonenumber", "mobile", "mobilenumber", "cell", "cellphone", "telephone", "tel"}
)

type columnMap struct {
	firstName int
	lastName  int
	email     int
	phone     int
}

// ParseContacts parses a raw contact list into normalized contacts. The format is
// chosen by file extension: .xlsx via excelize, everything else as CSV. Rows with
// both name fields blank are dropped silently; invalid emails and empty-after-
// stripping phones are treated as absent and counted in stats.
func ParseContacts(data []byte, filename string) ([]Contact, *ParseStats, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		rows, err = readXLSXRows(data)
	case ".csv", ".txt", "":
		rows, err = readCSVRows(data)
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return nil, nil, err
	}

	if len(rows) == 0 {
		return nil, nil, ErrEmptyInput
	}

	cols, err := detectColumns(rows[0])
	if err != nil {
		return nil, nil, err
	}

	dataRows := rows[1:]
	if len(dataRows) == 0 {
		return nil, nil, ErrEmptyInput
	}

	stats := &ParseStats{}
	contacts := make([]Contact, 0, len(dataRows))
	for _, row := range dataRows {
		stats.RowsTotal++

		contact := Contact{
			FirstName: strings.TrimSpace(cell(row, cols.firstName)),
			LastName:  strings.TrimSpace(cell(row, cols.lastName)),
		}
		if contact.FirstName == "" && contact.LastName == "" {
			stats.RowsDropped++
			continue
		}

		if raw := strings.TrimSpace(cell(row, cols.email)); raw != "" {
			email, ok := normalizeEmail(raw)
			if ok {
				contact.Email = email
			} else {
				stats.InvalidEmails++
			}
		}
		contact.Phone = normalizePhone(cell(row, cols.phone))

		contacts = append(contacts, contact)
	}

	return contacts, stats, nil
}

func readCSVRows(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	// Real-world exports have ragged rows and sloppy quoting; tolerate both.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readXLSXRows(data []byte) ([][]string, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer xl.Close()

	sheet := xl.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptyInput
	}
	rows, err := xl.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read xlsx rows: %w", err)
	}
	return rows, nil
}

// detectColumns maps header cells to logical fields. At least one of the name
// columns must be present; email and phone are optional (-1 when absent).
func detectColumns(headers []string) (columnMap, error) {
	cols := columnMap{firstName: -1, lastName: -1, email: -1, phone: -1}

	for i, h := range headers {
		normalized := normalizeHeader(h)
		switch {
		case cols.firstName < 0 && matchesHeader(normalized, firstNameHeaders):
			cols.firstName = i
		case cols.lastName < 0 && matchesHeader(normalized, lastNameHeaders):
			cols.lastName = i
		case cols.email < 0 && matchesHeader(normalized, emailHeaders):
			cols.email = i
		case cols.phone < 0 && matchesHeader(normalized, phoneHeaders):
			cols.phone = i
		}
	}

	if cols.firstName < 0 && cols.lastName < 0 {
		return cols, ErrUnrecognizedSchema
	}
	return cols, nil
}

func normalizeHeader(h string) string {
	s := strings.ToLower(strings.TrimSpace(h))
	s = strings.TrimPrefix(s, "\ufeff") // BOM on the first header cell
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

func matchesHeader(normalized string, synonyms []string) bool {
	for _, s := range synonyms {
		if normalized == s {
			return true
		}
	}
	return false
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// normalizeEmail lowercases and trims the address, then applies the permissive
// format check. Returns ok=false for anything that fails it.
func normalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if !emailPattern.MatchString(email) {
		return "", false
	}
	return email, true
}

// normalizePhone strips everything but digits and drops the 00 international
// prefix. An empty result means the phone is absent.
func normalizePhone(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	digits = strings.TrimPrefix(digits, "00")
	return digits
}
