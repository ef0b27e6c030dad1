package dataprocessing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"employcli/pkg/contracts/domain"
)

const sampleCSV = "\ufeffSTATISTIC,Statistic Label,TLIST(Q1),Quarterly,C02665V03225,NACE Rev 2 Economic Sector,C02397V02888,Full and Part Time Status,UNIT,VALUE\n" +
	"QLF18,Persons aged 15 years and over in Employment,20201,2020Q1,A,Agriculture (A),1,Full-time,Thousand,90.1\n" +
	"QLF18,Persons aged 15 years and over in Employment,20201,2020Q1,A,Agriculture (A),2,Part-time,Thousand,\n" +
	",,,,,,,,,\n" +
	"QLF18,Persons aged 15 years and over in Employment,20224,2022Q4,-,All NACE economic sectors,-,All employment status,Thousand,2563.2\n"

func TestParseCSV(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, domain.RawRecord{
		Quarterly:      "2020Q1",
		Sector:         "Agriculture (A)",
		EmploymentType: "Full-time",
		Value:          "90.1",
	}, records[0])
	assert.Equal(t, "", records[1].Value)
	assert.Equal(t, "All NACE economic sectors", records[2].Sector)
}

func TestParseCSV_MissingColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("Quarterly,VALUE\n2020Q1,1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Business&Eco.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))

	records, err := ParseFile(path, "")
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestParseFile_Workbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "employment.xlsx")

	f := excelize.NewFile()
	sheet := "Data"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	rows := [][]interface{}{
		{"Quarterly", "NACE Rev 2 Economic Sector", "Full and Part Time Status", "VALUE"},
		{"2021Q3", "Construction (F)", "All employment status", 155.4},
		{"2021Q4", "Construction (F)", "Part-time", "12"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	records, err := ParseFile(path, sheet)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Construction (F)", records[0].Sector)
	assert.Equal(t, "155.4", records[0].Value)
	assert.Equal(t, "Part-time", records[1].EmploymentType)
}

func TestParseFile_Unsupported(t *testing.T) {
	_, err := ParseFile("data.json", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}
