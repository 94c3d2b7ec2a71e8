// pkg/sink/sink_test.go
package sink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTableName(t *testing.T) {
	tests := []struct {
		name    string
		country string
		want    string
	}{
		{name: "plain country", country: "USA", want: "Table_USA"},
		{name: "lowercase preserved", country: "au", want: "Table_au"},
		{name: "empty maps to unknown", country: "", want: "Table_UNKNOWN"},
		{name: "unsafe runes replaced", country: "A B/C", want: "Table_A_B_C"},
		{name: "digits survive", country: "ZONE9", want: "Table_ZONE9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TableName(tt.country))
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"Table_USA"`, quoteIdentifier("Table_USA"))
	assert.Equal(t, `"Weird""Name"`, quoteIdentifier(`Weird"Name`))

	// Case must survive quoting or reruns would write a second table
	assert.Equal(t, `"Table_ind"`, quoteIdentifier("Table_ind"))
}

func TestRenderValue(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{name: "nil", value: nil, want: ""},
		{name: "string", value: "Alex", want: "Alex"},
		{name: "date", value: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), want: "2023-12-01"},
		{name: "int", value: 36, want: "36"},
		{name: "int64", value: int64(9000000000), want: "9000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderValue(tt.value))
		})
	}
}
