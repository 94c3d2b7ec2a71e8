// pkg/source/binder_test.go
package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/globalmed/customer-ingress/pkg/model"
)

func TestBind(t *testing.T) {
	schema := model.SchemaFromHeader([]string{"Customer_Name", "Customer_Id", "Open_Date"})
	binder := NewBinder(zap.NewNop())

	rows, malformed := binder.Bind(schema, []Record{
		{Line: 2, Tag: TagData, Fields: []string{"Alex", "123457", "20101012"}},
		{Line: 3, Tag: TagData, Fields: []string{"John", "123458", "20120113"}},
	})

	assert.Equal(t, 0, malformed)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Alex", rows[0].Data["Customer_Name"])
	assert.Equal(t, "123457", rows[0].Data["Customer_Id"])
	assert.Equal(t, "20101012", rows[0].Data["Open_Date"])
}

func TestBind_SkipsMalformedRecords(t *testing.T) {
	schema := model.SchemaFromHeader([]string{"Customer_Name", "Customer_Id", "Open_Date"})
	binder := NewBinder(zap.NewNop())

	rows, malformed := binder.Bind(schema, []Record{
		{Line: 2, Fields: []string{"Alex", "123457"}},                         // Too few
		{Line: 3, Fields: []string{"John", "123458", "20120113", "USA"}},      // Too many
		{Line: 4, Fields: []string{"Mathew", "123459", "20121013"}},           // Exact
	})

	assert.Equal(t, 2, malformed)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].Line)
}

func TestBind_EmptyFieldsBecomeNull(t *testing.T) {
	schema := model.SchemaFromHeader([]string{"Customer_Name", "Customer_Id", "Country"})
	binder := NewBinder(zap.NewNop())

	rows, malformed := binder.Bind(schema, []Record{
		{Line: 2, Fields: []string{"Alex", "123457", ""}},
	})

	assert.Equal(t, 0, malformed)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsNull("Country"))
	assert.False(t, rows[0].IsNull("Customer_Name"))
}
