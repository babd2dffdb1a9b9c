package classify

import (
	"strings"
	"testing"

	"github.com/rcsgugs/gugs-db/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_HeaderInRows(t *testing.T) {
	grid := [][]string{
		{"WPA Road Race Results"},
		{"Organised by Celtic Harriers"},
		{""},
		{"Pos", "Name", "Surname", "Club", "Time"},
		{"1", "Joe", "Smith", "RCS Gugs", "00:35:10"},
		{"2", "Ann", "Lee", "Harriers", "00:36:00"},
		{"", "", "", "", ""},
		{"Timing by ChampionChip"},
	}
	sheet := result.NewRawSheet("wpa_10km", "Sheet1", grid)

	res := New().Classify(sheet)

	require.True(t, res.Accepted)
	assert.Equal(t, ReasonAccepted, res.Reason)
	assert.Equal(t, 3, res.HeaderRow)
	assert.True(t, containsCell(grid[res.HeaderRow], "Club"), "header row must hold the marker")
	assert.Equal(t, []string{"Pos", "Name", "Surname", "Club", "Time"}, res.Sheet.Columns)
	require.Len(t, res.Sheet.Rows, 2, "title rows and footer must be excluded")
	assert.Equal(t, "Joe", res.Sheet.Rows[0][1])
}

func TestClassify_HeaderInColumns(t *testing.T) {
	grid := [][]string{
		{"Pos", "Participant", "TeamName", "Finish"},
		{"1", "Joe Smith", "Gugulethu AC", "01:20:00"},
	}
	res := New().Classify(result.NewRawSheet("book", "Results", grid))

	require.True(t, res.Accepted)
	assert.Equal(t, 0, res.HeaderRow)
	assert.Len(t, res.Sheet.Rows, 1)
}

func TestClassify_NoMarker(t *testing.T) {
	grid := [][]string{
		{"Sponsor", "Amount"},
		{"Acme", "100"},
	}
	res := New().Classify(result.NewRawSheet("book", "Sponsors", grid))

	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonNoMarker, res.Reason)
	assert.Nil(t, res.Sheet)
}

func TestClassify_EmptyTimeColumn(t *testing.T) {
	grid := [][]string{
		{"Pos", "Name", "Club", "Time"},
		{"1", "Joe Smith", "RCS", ""},
		{"2", "Ann Lee", "RCS", ""},
	}
	res := New().Classify(result.NewRawSheet("book", "Entries", grid))

	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonEmptyTime, res.Reason)
}

func TestClassify_CapePeninsula(t *testing.T) {
	row := func(pos, first string) []string {
		return []string{"Cape Peninsula Marathon", "21km", pos, first, "Smith", "123", "Finished", "01:45:00", "35", "Senior", "1", "Male", "1", "RCS"}
	}
	grid := [][]string{row("1", "Joe"), row("2", "Sam"), row("3", "Ann")}

	res := New().Classify(result.NewRawSheet("cape_peninsula", "21km", grid))

	require.True(t, res.Accepted)
	assert.Equal(t, -1, res.HeaderRow)
	assert.Equal(t, capePeninsulaColumns, res.Sheet.Columns)
	require.Len(t, res.Sheet.Rows, 3, "the headerless first row is data")
	assert.Equal(t, "Joe", res.Sheet.Rows[0][3])
}

func TestClassify_DoesNotModifyInput(t *testing.T) {
	grid := [][]string{
		{"Title"},
		{"Pos", "Club", "Time"},
		{"1", "RCS", "00:40:00"},
	}
	sheet := result.NewRawSheet("book", "Sheet1", grid)
	before := strings.Join(sheet.Columns, ",")

	New().Classify(sheet)

	assert.Equal(t, before, strings.Join(sheet.Columns, ","))
	assert.Len(t, sheet.Rows, 2)
}

func TestTrimFooter(t *testing.T) {
	sheet := &result.RawSheet{
		Columns: []string{"a", "b", "c"},
		Rows: [][]string{
			{"1", "2", "3"},
			{"1", "", "3"},
			{"", "", "x"},
			{"", "", ""},
		},
	}

	trimmed := trimFooter(sheet)

	assert.Len(t, trimmed.Rows, 2)
}

func TestNewWithMarker(t *testing.T) {
	c, err := NewWithMarker(`(?i)^Affiliation`)
	require.NoError(t, err)

	grid := [][]string{{"Name", "Affiliation", "Time"}, {"Joe", "RCS", "00:30:00"}}
	assert.True(t, c.Classify(result.NewRawSheet("b", "s", grid)).Accepted)

	_, err = NewWithMarker(`(`)
	assert.Error(t, err)
}
