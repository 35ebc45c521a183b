package sheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/healthcampaign/project-factory/internal/domain"
)

func cellValue(t *testing.T, data []byte, sheet, cell string) string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	v, err := f.GetCellValue(sheet, cell)
	require.NoError(t, err)
	return v
}

func elevenColumnSheet(t *testing.T) []byte {
	t.Helper()
	header := []any{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "Facility Code"}
	row := []any{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", nil}
	return buildWorkbook(t, map[string][][]any{"Facilities": {header, row, row}}, "Facilities")
}

func TestAnnotateAppendsStatusColumnsAfterLastUsedColumn(t *testing.T) {
	t.Parallel()

	data := elevenColumnSheet(t)
	out, err := Annotate(data, "Facilities", []domain.SheetErrorDetail{
		{Status: domain.RowStatusCreated, RowNumber: 2, IsUniqueIdentifier: true, UniqueIdentifier: "F-1"},
		{Status: domain.RowStatusInvalid, RowNumber: 3, ErrorDetails: "Facility Name is required"},
	}, AnnotateOptions{UniqueIdentifierColumn: "Facility Code"})
	require.NoError(t, err)

	require.Equal(t, StatusColumn, cellValue(t, out, "Facilities", "L1"))
	require.Equal(t, ErrorDetailsColumn, cellValue(t, out, "Facilities", "M1"))
	require.Equal(t, "CREATED", cellValue(t, out, "Facilities", "L2"))
	require.Equal(t, "F-1", cellValue(t, out, "Facilities", "K2"))
	require.Equal(t, "INVALID", cellValue(t, out, "Facilities", "L3"))
	require.Equal(t, "Facility Name is required", cellValue(t, out, "Facilities", "M3"))
}

func TestAnnotateReusesAndClearsExistingStatusColumns(t *testing.T) {
	t.Parallel()

	first, err := Annotate(elevenColumnSheet(t), "Facilities", []domain.SheetErrorDetail{
		{Status: domain.RowStatusInvalid, RowNumber: 2, ErrorDetails: "stale"},
		{Status: domain.RowStatusInvalid, RowNumber: 3, ErrorDetails: "stale"},
	}, AnnotateOptions{})
	require.NoError(t, err)

	second, err := Annotate(first, "Facilities", []domain.SheetErrorDetail{
		{Status: domain.RowStatusCreated, RowNumber: 3},
	}, AnnotateOptions{})
	require.NoError(t, err)

	require.Equal(t, StatusColumn, cellValue(t, second, "Facilities", "L1"))
	require.Equal(t, ErrorDetailsColumn, cellValue(t, second, "Facilities", "M1"))
	require.Equal(t, "", cellValue(t, second, "Facilities", "N1"))
	require.Equal(t, "", cellValue(t, second, "Facilities", "L2"))
	require.Equal(t, "", cellValue(t, second, "Facilities", "M2"))
	require.Equal(t, "CREATED", cellValue(t, second, "Facilities", "L3"))
	require.Equal(t, "", cellValue(t, second, "Facilities", "M3"))
}

func TestAnnotateMergesRowEntriesAndWritesCredentials(t *testing.T) {
	t.Parallel()

	data := buildWorkbook(t, map[string][][]any{
		"Users": {
			{"Name", "Phone", "UserName", "Password"},
			{"Asha", "9999999999"},
			{"Ravi", "8888888888"},
		},
	}, "Users")

	out, err := Annotate(data, "Users", []domain.SheetErrorDetail{
		{Status: domain.RowStatusInvalid, RowNumber: 2, ErrorDetails: "first"},
		{Status: domain.RowStatusValid, RowNumber: 2},
		{Status: domain.RowStatusMismatching, RowNumber: 2, ErrorDetails: "second"},
		{Status: domain.RowStatusCreated, RowNumber: 3},
	}, AnnotateOptions{
		UserNameColumn: "UserName",
		PasswordColumn: "Password",
		Credentials:    []domain.Credential{{RowNumber: 3, UserName: "USR-1", Password: "secret"}},
	})
	require.NoError(t, err)

	require.Equal(t, StatusColumn, cellValue(t, out, "Users", "E1"))
	require.Equal(t, "MISMATCHING", cellValue(t, out, "Users", "E2"))
	require.Equal(t, "first; second", cellValue(t, out, "Users", "F2"))
	require.Equal(t, "USR-1", cellValue(t, out, "Users", "C3"))
	require.Equal(t, "secret", cellValue(t, out, "Users", "D3"))
}

func TestAnnotateRoutesDetailsToNamedSheet(t *testing.T) {
	t.Parallel()

	data := buildWorkbook(t, map[string][][]any{
		"readme":     {{"Instructions"}},
		"District A": {{"Boundary Code", "Target"}, {"B1", 10}},
	}, "readme", "District A")

	out, err := Annotate(data, "readme", []domain.SheetErrorDetail{
		{Status: domain.RowStatusInvalid, RowNumber: 2, SheetName: "District A", ErrorDetails: "bad target"},
	}, AnnotateOptions{})
	require.NoError(t, err)
	require.Equal(t, "INVALID", cellValue(t, out, "District A", "C2"))
	require.Equal(t, "bad target", cellValue(t, out, "District A", "D2"))
}
