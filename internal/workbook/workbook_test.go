package workbook

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeXLSX(t *testing.T, path string, sheets map[string][][]string) {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, r := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			vals := make([]interface{}, len(r))
			for j, v := range r {
				vals[j] = v
			}
			require.NoError(t, f.SetSheetRow(name, cell, &vals))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func TestOpenXLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wpa_road_10km.xlsx")
	writeXLSX(t, path, map[string][][]string{
		"Results": {
			{"Pos", "Name", "Club", "Time"},
			{"1", "Joe Smith", "RCS Gugs", "00:35:10"},
			{"2", "Sipho Dlamini", "Harriers", "00:36:00"},
		},
	})

	sheets, err := Open(path)
	require.NoError(t, err)
	require.Len(t, sheets, 1)

	sheet := sheets[0]
	assert.Equal(t, "wpa_road_10km", sheet.Workbook)
	assert.Equal(t, "Results", sheet.Name)
	assert.Equal(t, []string{"Pos", "Name", "Club", "Time"}, sheet.Columns)
	assert.Len(t, sheet.Rows, 2)
	assert.Equal(t, "Joe Smith", sheet.Cell(0, 1))
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open("results.ods")
	assert.Error(t, err)
}

func TestConvertCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parkrun_5km.csv")
	content := "\xef\xbb\xbfPos;Name;Club;Time\n1;Joe Smith;RCS;00:20:10\n2;Ann Lee;;00:21:00\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	out, err := ConvertCSV(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "parkrun_5km.xlsx"), out)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "original csv should be removed")

	sheets, err := Open(out)
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "Sheet1", sheets[0].Name)
	assert.Equal(t, []string{"Pos", "Name", "Club", "Time"}, sheets[0].Columns)
	assert.Equal(t, "Ann Lee", sheets[0].Cell(1, 1))
}

func TestConvertDirAndList(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("a,b\n1,2\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0644))
	writeXLSX(t, filepath.Join(dir, "a.xlsx"), map[string][][]string{"Sheet1": {{"x"}}})

	converted, err := ConvertDir(dir)
	require.NoError(t, err)
	assert.Len(t, converted, 1)

	paths, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.xlsx"), filepath.Join(dir, "b.xlsx")}, paths)
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ',', sniffDelimiter([]byte("a,b,c\n")))
	assert.Equal(t, ';', sniffDelimiter([]byte("a;b;c\n")))
	assert.Equal(t, '\t', sniffDelimiter([]byte("a\tb\tc\n")))
	assert.Equal(t, ',', sniffDelimiter(nil))
}

func TestStem(t *testing.T) {
	assert.Equal(t, "wpa_10km", Stem("/data/2019/Jan/wpa_10km.xlsx"))
}

// 1:42:30 as a fraction of a day.
const raceSerial = 6150.0 / 86400

func TestOpenXLSX_TimeCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forest_marathon.xlsx")

	f := excelize.NewFile()
	elapsed := "[h]:mm:ss"
	tenths := "hh:mm:ss.0"
	cells := []struct {
		name   string
		style  excelize.Style
		serial float64
		want   string
	}{
		{"h:mm", excelize.Style{NumFmt: 20}, raceSerial, "01:42:30"},
		{"h:mm:ss", excelize.Style{NumFmt: 21}, raceSerial, "01:42:30"},
		{"m/d/yy h:mm", excelize.Style{NumFmt: 22}, raceSerial, "01:42:30"},
		{"mm:ss", excelize.Style{NumFmt: 45}, raceSerial, "01:42:30"},
		{"[h]:mm:ss", excelize.Style{NumFmt: 46}, raceSerial, "01:42:30"},
		{"mm:ss.0", excelize.Style{NumFmt: 47}, raceSerial, "01:42:30"},
		{"custom elapsed", excelize.Style{CustomNumFmt: &elapsed}, 1 + 10.0/24 + 10.0/1440, "34:10:00"},
		{"custom tenths", excelize.Style{CustomNumFmt: &tenths}, raceSerial, "01:42:30"},
		{"time with 1900 date", excelize.Style{NumFmt: 21}, 1 + raceSerial, "1900-01-01 01:42:30"},
		{"number", excelize.Style{NumFmt: 2}, 12, "12.00"},
	}

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Format", "Time"}))
	for i, c := range cells {
		row := i + 2
		require.NoError(t, f.SetCellValue("Sheet1", "A"+strconv.Itoa(row), c.name))
		cell := "B" + strconv.Itoa(row)
		require.NoError(t, f.SetCellValue("Sheet1", cell, c.serial))
		style := c.style
		id, err := f.NewStyle(&style)
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle("Sheet1", cell, cell, id))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	sheets, err := Open(path)
	require.NoError(t, err)
	require.Len(t, sheets, 1)

	for i, c := range cells {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, sheets[0].Cell(i, 1))
		})
	}
}

func TestCustomTimeKind(t *testing.T) {
	tests := []struct {
		code string
		want timeKind
	}{
		{"[h]:mm:ss", elapsedTime},
		{"[mm]:ss", elapsedTime},
		{"h:mm AM/PM", clockTime},
		{"mm:ss.0", clockTime},
		{"[$-409]h:mm:ss", clockTime},
		{"[Magenta]0.00", notTime},
		{"m/d/yyyy", notTime},
		{`0 "hours"`, notTime},
		{"General", notTime},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, customTimeKind(tt.code))
		})
	}
}

func TestFormatSerial(t *testing.T) {
	tests := []struct {
		serial float64
		kind   timeKind
		want   string
	}{
		{raceSerial, clockTime, "01:42:30"},
		{raceSerial, elapsedTime, "01:42:30"},
		{2 + raceSerial, elapsedTime, "49:42:30"},
		{1 + raceSerial, clockTime, "1900-01-01 01:42:30"},
		{43466.5, clockTime, "2019-01-01 12:00:00"},
	}

	for _, tt := range tests {
		got, ok := formatSerial(tt.serial, tt.kind)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got)
	}
}
