package store

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/tdhoang/gramlist/internal/handle"
)

// Columns maps record fields to spreadsheet header names. The names are
// configurable but fixed for the lifetime of the process.
type Columns struct {
	URL      string
	FullName string
	Avatar   string
	Rating   string
}

// DefaultColumns matches the sheet layout the bot was built around.
func DefaultColumns() Columns {
	return Columns{
		URL:      "URL",
		FullName: "full_name",
		Avatar:   "profile_pic_url",
		Rating:   "Rating",
	}
}

// Sheet is the Google-Sheets-backed Store. Row 1 is always the header;
// data rows start at row 2.
type Sheet struct {
	svc           *sheets.Service
	spreadsheetID string
	worksheet     string
	sheetID       int64

	// Column positions resolved from the header once at startup. The
	// header layout is part of the collaborator contract and does not move
	// at runtime.
	colIndex map[Field]int
	width    int
}

// NewSheet connects to the spreadsheet and resolves the worksheet and
// header layout. Any failure here means the store is unavailable and the
// process must refuse to serve rather than crash per-request.
func NewSheet(ctx context.Context, credentialsFile, spreadsheetID, worksheet string, cols Columns) (*Sheet, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to sheets: %w", err)
	}

	meta, err := svc.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", spreadsheetID, err)
	}

	var sheetID int64 = -1
	for _, s := range meta.Sheets {
		if s.Properties.Title == worksheet {
			sheetID = s.Properties.SheetId
			break
		}
	}
	if sheetID == -1 {
		return nil, fmt.Errorf("worksheet %q not found in spreadsheet", worksheet)
	}

	s := &Sheet{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
		sheetID:       sheetID,
	}
	if err := s.resolveHeader(ctx, cols); err != nil {
		return nil, err
	}
	return s, nil
}

// resolveHeader reads row 1 and maps the configured column names to
// positions.
func (s *Sheet) resolveHeader(ctx context.Context, cols Columns) error {
	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, s.rangeRef("1:1")).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}
	if len(resp.Values) == 0 {
		return fmt.Errorf("worksheet %q has no header row", s.worksheet)
	}

	byName := make(map[string]int)
	for i, cell := range resp.Values[0] {
		byName[strings.TrimSpace(fmt.Sprint(cell))] = i
	}

	s.colIndex = make(map[Field]int)
	for field, name := range map[Field]string{
		FieldURL:      cols.URL,
		FieldFullName: cols.FullName,
		FieldAvatar:   cols.Avatar,
		FieldRating:   cols.Rating,
	} {
		idx, ok := byName[name]
		if !ok {
			return fmt.Errorf("column %q not found in header row", name)
		}
		s.colIndex[field] = idx
		if idx+1 > s.width {
			s.width = idx + 1
		}
	}
	return nil
}

// ReadAll fetches every data row. Called fresh before any dedup check or
// row-index operation; results are never cached.
func (s *Sheet) ReadAll(ctx context.Context) ([]Record, error) {
	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, s.rangeRef("")).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	if len(resp.Values) <= 1 {
		return nil, nil
	}

	records := make([]Record, 0, len(resp.Values)-1)
	for i, row := range resp.Values[1:] {
		rec := Record{
			URL:       s.cell(row, FieldURL),
			FullName:  s.cell(row, FieldFullName),
			AvatarURL: s.cell(row, FieldAvatar),
			Rating:    ParseRating(s.cell(row, FieldRating)),
			RowIndex:  i + 2,
		}
		if h, ok := handle.FromURL(rec.URL); ok {
			rec.Username = h
		}
		records = append(records, rec)
	}
	return records, nil
}

// Append adds a record as a new row after the existing data.
func (s *Sheet) Append(ctx context.Context, rec Record) error {
	row := make([]interface{}, s.width)
	for i := range row {
		row[i] = ""
	}
	row[s.colIndex[FieldURL]] = rec.URL
	row[s.colIndex[FieldFullName]] = rec.FullName
	row[s.colIndex[FieldAvatar]] = rec.AvatarURL
	if rec.Rating != 0 {
		row[s.colIndex[FieldRating]] = fmt.Sprint(rec.Rating)
	}

	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.rangeRef(""), &sheets.ValueRange{
			Values: [][]interface{}{row},
		}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// UpdateCell writes a single field of the given row.
func (s *Sheet) UpdateCell(ctx context.Context, row int, field Field, value string) error {
	_, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, s.cellRef(row, field), &sheets.ValueRange{
			Values: [][]interface{}{{value}},
		}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update row %d %s: %w", row, field, err)
	}
	return nil
}

// BatchUpdate writes many cells in one round-trip.
func (s *Sheet) BatchUpdate(ctx context.Context, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	data := make([]*sheets.ValueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, &sheets.ValueRange{
			Range:  s.cellRef(u.Row, u.Field),
			Values: [][]interface{}{{u.Value}},
		})
	}

	_, err := s.svc.Spreadsheets.Values.
		BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateValuesRequest{
			ValueInputOption: "RAW",
			Data:             data,
		}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("batch update %d cells: %w", len(updates), err)
	}
	return nil
}

// DeleteRow removes a row entirely; rows below it shift up by one.
func (s *Sheet) DeleteRow(ctx context.Context, row int) error {
	_, err := s.svc.Spreadsheets.
		BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				DeleteDimension: &sheets.DeleteDimensionRequest{
					Range: &sheets.DimensionRange{
						SheetId:    s.sheetID,
						Dimension:  "ROWS",
						StartIndex: int64(row - 1),
						EndIndex:   int64(row),
					},
				},
			}},
		}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	return nil
}

func (s *Sheet) cell(row []interface{}, field Field) string {
	idx := s.colIndex[field]
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

// rangeRef builds an A1 range reference within the worksheet.
func (s *Sheet) rangeRef(suffix string) string {
	if suffix == "" {
		return fmt.Sprintf("'%s'", s.worksheet)
	}
	return fmt.Sprintf("'%s'!%s", s.worksheet, suffix)
}

func (s *Sheet) cellRef(row int, field Field) string {
	return s.rangeRef(fmt.Sprintf("%s%d", columnLetter(s.colIndex[field]), row))
}

// columnLetter converts a 0-based column index to A1 letters.
func columnLetter(idx int) string {
	letters := ""
	for idx >= 0 {
		letters = string(rune('A'+idx%26)) + letters
		idx = idx/26 - 1
	}
	return letters
}
