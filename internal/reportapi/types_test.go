package reportapi

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionStatus(t *testing.T) {
	for _, s := range []ExecutionStatus{StatusNotFound, StatusLoaded, StatusRendering, StatusCompleted, StatusStopped, StatusCleared} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, ExecutionStatus("Paused").Valid())

	assert.True(t, StatusCompleted.Finished())
	assert.True(t, StatusStopped.Finished())
	assert.False(t, StatusRendering.Finished())
	assert.False(t, StatusCleared.Finished())
}

func TestDataType(t *testing.T) {
	assert.True(t, DataTypeDate.IsTemporal())
	assert.True(t, DataTypeTime.IsTemporal())
	assert.True(t, DataTypeDateTime.IsTemporal())
	assert.False(t, DataTypeString.IsTemporal())
	assert.True(t, DataTypeInteger.IsNumeric())
	assert.True(t, DataTypeFloat.IsNumeric())
	assert.False(t, DataTypeBoolean.IsNumeric())
}

func TestParameter_Required(t *testing.T) {
	tests := []struct {
		name string
		p    Parameter
		want bool
	}{
		{"nil non-nullable", Parameter{Name: "age", DataType: DataTypeInteger}, true},
		{"empty string", Parameter{Name: "s", DataType: DataTypeString, Value: ""}, true},
		{"empty list", Parameter{Name: "r", MultiValue: true, Value: []any{}}, true},
		{"nullable nil", Parameter{Name: "n", Nullable: true}, false},
		{"zero number", Parameter{Name: "z", DataType: DataTypeInteger, Value: float64(0)}, false},
		{"false bool", Parameter{Name: "b", DataType: DataTypeBoolean, Value: false}, false},
		{"list", Parameter{Name: "r", MultiValue: true, Value: []any{"North"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Required())
		})
	}
}

func TestParameterErrors(t *testing.T) {
	errs := ParameterErrors([]Parameter{
		{Name: "a"},
		{Name: "b", Error: "invalid parameter"},
	})
	assert.Equal(t, map[string]string{"b": "invalid parameter"}, errs)
}

func TestIsFlexReport(t *testing.T) {
	assert.True(t, IsFlexReport("Reports/Sales.flxr"))
	assert.True(t, IsFlexReport("Reports/Sales.FLXR"))
	assert.True(t, IsFlexReport("defs.xml"))
	assert.False(t, IsFlexReport("Reports/Inventory.rdl"))
	assert.False(t, IsFlexReport("flxr"))
}

func TestServiceError_Message(t *testing.T) {
	se := newServiceError("load", 400, []byte(`{"Message":"bad report"}`))
	assert.Equal(t, "bad report", se.Message())
	assert.Equal(t, "load: service returned 400: bad report", se.Error())

	se = newServiceError("load", 500, []byte(`"plain json string"`))
	assert.Equal(t, "plain json string", se.Message())

	se = newServiceError("load", 500, nil)
	assert.Equal(t, "", se.Message())
	assert.Equal(t, "load: service returned 500", se.Error())
}

func TestServiceError_Classification(t *testing.T) {
	notFound := fmt.Errorf("clear: %w", newServiceError("clear", 404, nil))
	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsUnauthorized(notFound))

	assert.True(t, IsUnauthorized(newServiceError("catalog", 401, nil)))
	assert.True(t, IsUnauthorized(newServiceError("catalog", 403, nil)))
	assert.False(t, IsNotFound(newServiceError("catalog", 500, nil)))
	assert.False(t, IsNotFound(fmt.Errorf("dial tcp: connection refused")))
	assert.False(t, IsNotFound(nil))
}
