// pkg/source/classifier_test.go
package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func numberLines(texts ...string) []Line {
	lines := make([]Line, 0, len(texts))
	for i, text := range texts {
		lines = append(lines, Line{Number: i + 1, Text: text})
	}
	return lines
}

func TestClassify(t *testing.T) {
	classifier := NewClassifier(zap.NewNop())

	records, err := classifier.Classify(numberLines(
		"|H|Customer_Name|Customer_Id|Open_Date",
		"|D|Alex|123457|20101012",
		"",
		"|D|John|123458|20101012",
		"|X|stray|record|here",
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"Customer_Name", "Customer_Id", "Open_Date"}, records.Header.Fields)
	assert.Equal(t, 1, records.Header.Line)

	require.Len(t, records.Data, 2)
	assert.Equal(t, []string{"Alex", "123457", "20101012"}, records.Data[0].Fields)
	assert.Equal(t, 2, records.Data[0].Line)
	assert.Equal(t, []string{"John", "123458", "20101012"}, records.Data[1].Fields)
	assert.Equal(t, 4, records.Data[1].Line)

	assert.Equal(t, 1, records.Ignored)
	assert.Equal(t, 0, records.ExtraHeaders)
}

func TestClassify_FirstHeaderWins(t *testing.T) {
	classifier := NewClassifier(zap.NewNop())

	records, err := classifier.Classify(numberLines(
		"|H|Customer_Name|Customer_Id",
		"|D|Alex|123457",
		"|H|Other_Name|Other_Id",
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"Customer_Name", "Customer_Id"}, records.Header.Fields)
	assert.Equal(t, 1, records.ExtraHeaders)
	assert.Len(t, records.Data, 1)
}

func TestClassify_NoHeader(t *testing.T) {
	classifier := NewClassifier(zap.NewNop())

	_, err := classifier.Classify(numberLines(
		"|D|Alex|123457",
		"|D|John|123458",
	))
	require.ErrorIs(t, err, ErrSchemaNotFound)
}

func TestClassify_IgnoresLinesWithoutTag(t *testing.T) {
	classifier := NewClassifier(zap.NewNop())

	records, err := classifier.Classify(numberLines(
		"|H|Customer_Name",
		"no delimiter at all",
		"|D|Alex",
	))
	require.NoError(t, err)

	assert.Equal(t, 1, records.Ignored)
	assert.Len(t, records.Data, 1)
}

func TestClassify_BlankLinesAreSkippedSilently(t *testing.T) {
	classifier := NewClassifier(zap.NewNop())

	records, err := classifier.Classify(numberLines(
		"",
		"|H|Customer_Name",
		"   ",
		"|D|Alex",
	))
	require.NoError(t, err)

	assert.Equal(t, 0, records.Ignored)
	assert.Len(t, records.Data, 1)
}
