package schema

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lambdaq/internal/ir"
)

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func TestCompileEntityBasic(t *testing.T) {
	v := compileString(t, `
		entity: Customer: {
			table: "customers"
			fields: {
				name:   string
				salary: int
				vip:    bool
				ratio:  float
				debt:   int | null
			}
		}
	`)

	e, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Customer")))
	require.NoError(t, err)

	assert.Equal(t, "Customer", e.Name)
	assert.Equal(t, "customers", e.Table)
	assert.Equal(t, []string{"debt", "name", "ratio", "salary", "vip"}, e.FieldNames())
	assert.Equal(t, ir.Field{Name: "name", Type: ir.String}, e.Fields["name"])
	assert.Equal(t, ir.Int, e.Fields["salary"].Type)
	assert.Equal(t, ir.Bool, e.Fields["vip"].Type)
	assert.Equal(t, ir.Double, e.Fields["ratio"].Type)
	assert.Equal(t, ir.Field{Name: "debt", Type: ir.Int, Nullable: true}, e.Fields["debt"])
}

func TestCompileEntityDescriptors(t *testing.T) {
	v := compileString(t, `
		entity: Item: fields: {
			price:   "BigDecimal"
			count:   "long"
			owner:   "Customer"
			created: {type: "Timestamp", nullable: true}
			label:   {type: string}
		}
	`)

	e, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Item")))
	require.NoError(t, err)

	assert.Equal(t, ir.Decimal, e.Fields["price"].Type)
	assert.Equal(t, ir.Long, e.Fields["count"].Type)
	assert.Equal(t, ir.Type{Kind: ir.KindObject, Name: "Customer"}, e.Fields["owner"].Type, "resolved later by Load")
	assert.Equal(t, ir.Field{Name: "created", Type: ir.Timestamp, Nullable: true}, e.Fields["created"])
	assert.Equal(t, ir.String, e.Fields["label"].Type)
}

func TestCompileEntityErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"missing fields", `entity: X: {table: "x"}`, "fields"},
		{"empty fields", `entity: X: fields: {}`, "fields"},
		{"struct without type", `entity: X: fields: {a: {nullable: true}}`, "type"},
		{"bad descriptor", `entity: X: fields: {a: "not a type"}`, "type"},
		{"void field", `entity: X: fields: {a: "void"}`, "type"},
		{"list field", `entity: X: fields: {a: [...int]}`, "type"},
		{"bad nullable", `entity: X: fields: {a: {type: "int", nullable: "yes"}}`, "nullable"},
		{"bad table", `entity: X: {table: 3, fields: {a: int}}`, "table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := compileString(t, tt.src)
			_, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.X")))
			require.Error(t, err)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tt.field, compileErr.Field)
		})
	}
}

func TestCompileEntityNonExistentPath(t *testing.T) {
	v := compileString(t, `entity: Customer: fields: {name: string}`)

	_, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Missing")))
	require.Error(t, err)
}

func TestCompileEnum(t *testing.T) {
	v := compileString(t, `
		enum: ItemType: {
			qualified: "org.example.ItemType"
			values: ["BIG", "SMALL"]
		}
		enum: Color: ["RED", "GREEN"]
	`)

	e, err := CompileEnum(v.LookupPath(cue.ParsePath("enum.ItemType")))
	require.NoError(t, err)
	assert.Equal(t, &ir.Enum{Name: "ItemType", Qualified: "org.example.ItemType", Values: []string{"BIG", "SMALL"}}, e)

	e, err = CompileEnum(v.LookupPath(cue.ParsePath("enum.Color")))
	require.NoError(t, err)
	assert.Equal(t, "Color", e.Name)
	assert.Empty(t, e.Qualified, "defaulted by Schema.AddEnum")
	assert.Equal(t, []string{"RED", "GREEN"}, e.Values)
}

func TestCompileEnumErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"missing values", `enum: X: {qualified: "a.X"}`, "values"},
		{"empty list", `enum: X: []`, "values"},
		{"not strings", `enum: X: [1, 2]`, "values"},
		{"duplicate", `enum: X: ["A", "A"]`, "values"},
		{"values not a list", `enum: X: {values: "A"}`, "values"},
		{"bad qualified", `enum: X: {qualified: 1, values: ["A"]}`, "qualified"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := compileString(t, tt.src)
			_, err := CompileEnum(v.LookupPath(cue.ParsePath("enum.X")))

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tt.field, compileErr.Field)
		})
	}
}

func TestCompileErrorPosition(t *testing.T) {
	v := cuecontext.New().CompileString(`entity: X: {
	fields: {
		a: "not a type"
	}
}`, cue.Filename("shop.cue"))
	require.NoError(t, v.Err())

	_, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.X")))

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.True(t, compileErr.Pos.IsValid())
	assert.Equal(t, 3, compileErr.Pos.Line())
	assert.Contains(t, err.Error(), "shop.cue:3:")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "fields", Message: "fields is required"}
	assert.Equal(t, "fields: fields is required", err.Error())
}
