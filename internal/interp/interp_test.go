package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lambdaq/internal/bytecode"
	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/symbolic"
	"github.com/roach88/lambdaq/internal/testutil"
)

var (
	customer = ir.EntityType("Customer")
	supplier = ir.EntityType("Supplier")
	item     = ir.EntityType("Item")
)

func testSchema() *ir.Schema {
	s := testutil.Schema()
	s.AddEntity(&ir.Entity{Name: "Item", Fields: map[string]ir.Field{
		"type": {Name: "type", Type: ir.Type{Kind: ir.KindObject, Name: "ItemType"}},
	}})
	s.AddEnum(&ir.Enum{Name: "ItemType", Qualified: "org.example.shop.ItemType", Values: []string{"BIG", "SMALL"}})
	return s
}

func filterEnv(captured []ir.Type, arg ir.Type) Env {
	return Env{
		Args:     []ir.Type{arg},
		Captured: captured,
		Schema:   testSchema(),
		Context:  symbolic.With(nil, true),
	}
}

func valueEnv(captured []ir.Type, arg ir.Type) Env {
	env := filterEnv(captured, arg)
	env.Context = symbolic.With(nil, false)
	return env
}

func run(t *testing.T, src string, env Env) symbolic.Value {
	t.Helper()
	res, err := Run(bytecode.MustAssemble(src), env)
	require.NoError(t, err)
	v, err := res.Reconcile(env.Context)
	require.NoError(t, err)
	return v
}

func assertSame(t *testing.T, want, got symbolic.Value) {
	t.Helper()
	assert.True(t, symbolic.Equal(want, got), "want %s\n got %s", symbolic.Format(want), symbolic.Format(got))
}

func row(i int, t ir.Type) *symbolic.Arg {
	return &symbolic.Arg{Index: i, T: t}
}

func fieldOf(base symbolic.Value, name string, t ir.Type) *symbolic.FieldAccess {
	return &symbolic.FieldAccess{Base: base, Field: name, T: t}
}

func stringEquals(recv, arg symbolic.Value) *symbolic.MethodCall {
	return &symbolic.MethodCall{Receiver: recv, Owner: "String", Method: "equals", Args: []symbolic.Value{arg}, T: ir.Bool}
}

func TestRun_ShortCircuitOr(t *testing.T) {
	src := `
	load 1
	invokevirtual Customer.getCountry:()String
	ldc string "UK"
	invokevirtual String.equals:(Object)boolean
	ifne yes
	load 1
	invokevirtual Customer.getName:()String
	load 0
	invokevirtual String.equals:(Object)boolean
	ifeq no
yes:
	iconst 1
	goto done
no:
	iconst 0
done:
	return
`
	got := run(t, src, filterEnv([]ir.Type{ir.String}, customer))

	c := row(0, customer)
	uk := stringEquals(fieldOf(c, "country", ir.String), symbolic.String("UK"))
	name := stringEquals(fieldOf(c, "name", ir.String), &symbolic.ParamRef{Slot: 0, T: ir.String})
	assertSame(t, symbolic.Or(uk, name), got)
}

func TestRun_NestedIfElse(t *testing.T) {
	// if country == uk: true
	// elif country == canada: false
	// else: name == "Alice"
	src := `
	load 2
	invokevirtual Customer.getCountry:()String
	load 0
	invokevirtual String.equals:(Object)boolean
	ifeq notUK
	iconst 1
	return
notUK:
	load 2
	invokevirtual Customer.getCountry:()String
	load 1
	invokevirtual String.equals:(Object)boolean
	ifeq other
	iconst 0
	return
other:
	load 2
	invokevirtual Customer.getName:()String
	ldc string "Alice"
	invokevirtual String.equals:(Object)boolean
	return
`
	res, err := Run(bytecode.MustAssemble(src), filterEnv([]ir.Type{ir.String, ir.String}, customer))
	require.NoError(t, err)
	require.Len(t, res.Paths, 3)
	assert.Empty(t, res.Dropped)

	got, err := res.Reconcile(symbolic.With(nil, true))
	require.NoError(t, err)

	c := row(0, customer)
	uk := stringEquals(fieldOf(c, "country", ir.String), &symbolic.ParamRef{Slot: 0, T: ir.String})
	canada := stringEquals(fieldOf(c, "country", ir.String), &symbolic.ParamRef{Slot: 1, T: ir.String})
	alice := stringEquals(fieldOf(c, "name", ir.String), symbolic.String("Alice"))
	assertSame(t, symbolic.Or(uk, symbolic.And(symbolic.Negate(canada), alice)), got)
}

func TestRun_BooleanFieldAndComparison(t *testing.T) {
	s := row(0, supplier)
	free := fieldOf(s, "hasFreeShipping", ir.Bool)

	t.Run("direct", func(t *testing.T) {
		got := run(t, "load 0\ninvokevirtual Supplier.getHasFreeShipping:()boolean\nreturn", filterEnv(nil, supplier))
		assertSame(t, free, got)
	})

	t.Run("equal to captured", func(t *testing.T) {
		src := `
	load 1
	invokevirtual Supplier.getHasFreeShipping:()boolean
	load 0
	if_cmpne no
	iconst 1
	goto done
no:
	iconst 0
done:
	return
`
		got := run(t, src, filterEnv([]ir.Type{ir.Bool}, supplier))
		want := symbolic.Compare(symbolic.OpEq, free, &symbolic.ParamRef{Slot: 0, T: ir.Bool})
		assertSame(t, want, got)
	})

	t.Run("compared against one", func(t *testing.T) {
		src := `
	load 0
	invokevirtual Supplier.getHasFreeShipping:()boolean
	iconst 1
	if_cmpeq yes
	iconst 0
	return
yes:
	iconst 1
	return
`
		got := run(t, src, filterEnv(nil, supplier))
		assertSame(t, free, got)
	})
}

func TestRun_SelectPairWithNegatedBoolean(t *testing.T) {
	// s -> new Pair<>(s, !s.getHasFreeShipping())
	src := `
	load 0
	load 0
	invokevirtual Supplier.getHasFreeShipping:()boolean
	ifne set
	iconst 1
	goto done
set:
	iconst 0
done:
	new_tuple 2
	return
`
	got := run(t, src, valueEnv(nil, supplier))

	s := row(0, supplier)
	free := fieldOf(s, "hasFreeShipping", ir.Bool)
	want := &symbolic.Tuple{Elems: []symbolic.Value{
		s,
		&symbolic.Conditional{Cond: symbolic.Negate(free), Then: symbolic.Int(1), Else: symbolic.Int(0), T: ir.Int},
	}}
	assertSame(t, want, got)
}

func TestRun_ArithmeticPromotion(t *testing.T) {
	// c -> c.getSalary() + 5 + x < 212
	src := `
	load 1
	invokevirtual Customer.getSalary:()int
	iconst 5
	add
	load 0
	add
	ldc int 212
	if_cmpge no
	iconst 1
	return
no:
	iconst 0
	return
`
	got := run(t, src, filterEnv([]ir.Type{ir.Long}, customer))

	salary := fieldOf(row(0, customer), "salary", ir.Int)
	sum := &symbolic.BinaryOp{Op: symbolic.OpAdd, Left: salary, Right: symbolic.Int(5), T: ir.Int}
	sum = &symbolic.BinaryOp{Op: symbolic.OpAdd, Left: sum, Right: &symbolic.ParamRef{Slot: 0, T: ir.Long}, T: ir.Long}
	assertSame(t, symbolic.Compare(symbolic.OpLt, sum, symbolic.Int(212)), got)
}

func TestRun_ThreeWayCompare(t *testing.T) {
	// c -> c.getDebt() > 100L, compiled as lcmp; ifle
	src := `
	load 0
	getfield Customer.debt:long
	ldc long 100
	cmp
	ifle no
	iconst 1
	return
no:
	iconst 0
	return
`
	got := run(t, src, filterEnv(nil, customer))
	want := symbolic.Compare(symbolic.OpGt, fieldOf(row(0, customer), "debt", ir.Long), symbolic.Long(100))
	assertSame(t, want, got)
}

func TestRun_CompareToCall(t *testing.T) {
	schema := testSchema()
	schema.AddEntity(&ir.Entity{Name: "Sale", Fields: map[string]ir.Field{
		"total": {Name: "total", Type: ir.Decimal},
	}})
	env := filterEnv([]ir.Type{ir.Decimal}, ir.EntityType("Sale"))
	env.Schema = schema

	src := `
	load 1
	invokevirtual Sale.getTotal:()BigDecimal
	load 0
	invokevirtual java.math.BigDecimal.compareTo:(BigDecimal)int
	ifge no
	iconst 1
	return
no:
	iconst 0
	return
`
	got := run(t, src, env)
	want := symbolic.Compare(symbolic.OpLt,
		fieldOf(row(0, ir.EntityType("Sale")), "total", ir.Decimal),
		&symbolic.ParamRef{Slot: 0, T: ir.Decimal})
	assertSame(t, want, got)
}

func TestRun_EnumConstant(t *testing.T) {
	src := `
	load 0
	invokevirtual Item.getType:()ItemType
	getstatic org.example.shop.ItemType.BIG:ItemType
	invokevirtual ItemType.equals:(Object)boolean
	return
`
	got := run(t, src, filterEnv(nil, item))

	enum := ir.EnumType("ItemType")
	want := &symbolic.MethodCall{
		Receiver: fieldOf(row(0, item), "type", enum),
		Owner:    "ItemType",
		Method:   "equals",
		Args:     []symbolic.Value{symbolic.Enum(enum, "org.example.shop.ItemType", "BIG")},
		T:        ir.Bool,
	}
	assertSame(t, want, got)
}

func TestRun_NullCheck(t *testing.T) {
	src := `
	load 0
	invokevirtual Customer.getName:()String
	ifnonnull no
	iconst 1
	return
no:
	iconst 0
	return
`
	got := run(t, src, filterEnv(nil, customer))
	name := fieldOf(row(0, customer), "name", ir.String)
	assertSame(t, symbolic.Compare(symbolic.OpEq, name, symbolic.Null(ir.String)), got)
}

func TestRun_ConstantBranchFolded(t *testing.T) {
	src := `
	iconst 0
	ifne dead
	load 0
	invokevirtual Customer.getName:()String
	return
dead:
	ldc string "never"
	return
`
	res, err := Run(bytecode.MustAssemble(src), valueEnv(nil, customer))
	require.NoError(t, err)
	require.Len(t, res.Paths, 1)
	assert.Empty(t, res.Paths[0].Conds)
}

func TestRun_BoxingIsTransparent(t *testing.T) {
	src := `
	load 0
	invokevirtual Customer.getSalary:()int
	invokestatic java.lang.Integer.valueOf:(int)Integer
	invokevirtual java.lang.Integer.intValue:()int
	return
`
	got := run(t, src, valueEnv(nil, customer))
	assertSame(t, fieldOf(row(0, customer), "salary", ir.Int), got)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		check func(error) bool
	}{
		{"backward branch", "top:\n\tload 0\n\tpop\n\tgoto top", ir.IsUnsupportedOperation},
		{"stack underflow", "pop\niconst 1\nreturn", ir.IsUnsupportedBytecode},
		{"unsupported instruction", "load 0\nmonitorenter\niconst 1\nreturn", ir.IsUnsupportedOperation},
		{"void call", "load 0\ninvokevirtual Customer.touch:()void\niconst 1\nreturn", ir.IsUnsupportedOperation},
		{"unknown static", "getstatic System.out:Object\nreturn", ir.IsUnsupportedOperation},
		{"falls off the end", "iconst 1", ir.IsUnsupportedBytecode},
		{"negate string", "ldc string \"x\"\nneg\nreturn", ir.IsTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(bytecode.MustAssemble(".locals 1\n"+tt.src), valueEnv(nil, customer))
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestRun_PartialFailureFailsReconcile(t *testing.T) {
	src := `
	load 0
	invokevirtual Customer.getSalary:()int
	ifle fail
	iconst 1
	return
fail:
	athrow
`
	env := filterEnv(nil, customer)
	res, err := Run(bytecode.MustAssemble(src), env)
	require.NoError(t, err)
	require.Len(t, res.Dropped, 1)

	_, err = res.Reconcile(env.Context)
	assert.True(t, ir.IsUnsupportedOperation(err))
}

func TestRun_StepBudget(t *testing.T) {
	env := valueEnv(nil, customer)
	env.MaxSteps = 2
	_, err := Run(bytecode.MustAssemble("nop\nnop\nnop\nload 0\nreturn"), env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step budget")
}

func TestRun_TooFewLocals(t *testing.T) {
	prog := bytecode.MustAssemble(".locals 1\nload 0\nreturn")
	_, err := Run(prog, valueEnv([]ir.Type{ir.Int}, customer))
	assert.True(t, ir.IsUnsupportedBytecode(err))
}

func TestReconcile_Values(t *testing.T) {
	c := row(0, customer)
	name := fieldOf(c, "name", ir.String)
	cond := symbolic.Compare(symbolic.OpGt, fieldOf(c, "salary", ir.Int), symbolic.Int(10))

	t.Run("equal values collapse", func(t *testing.T) {
		res := &Result{Paths: []Path{
			{Conds: []symbolic.Value{cond}, Value: name},
			{Conds: []symbolic.Value{symbolic.Negate(cond)}, Value: name},
		}}
		got, err := res.Reconcile(symbolic.Context{})
		require.NoError(t, err)
		assert.Same(t, name, got)
	})

	t.Run("numeric branches promote", func(t *testing.T) {
		res := &Result{Paths: []Path{
			{Conds: []symbolic.Value{cond}, Value: symbolic.Int(1)},
			{Conds: []symbolic.Value{symbolic.Negate(cond)}, Value: symbolic.Double(2.5)},
		}}
		got, err := res.Reconcile(symbolic.Context{})
		require.NoError(t, err)
		assert.Equal(t, ir.Double, got.Type())
	})

	t.Run("null takes the other type", func(t *testing.T) {
		res := &Result{Paths: []Path{
			{Conds: []symbolic.Value{cond}, Value: symbolic.Null(ir.Object)},
			{Conds: []symbolic.Value{symbolic.Negate(cond)}, Value: name},
		}}
		got, err := res.Reconcile(symbolic.Context{})
		require.NoError(t, err)
		assert.Equal(t, ir.String, got.Type())
	})

	t.Run("tuple arity mismatch", func(t *testing.T) {
		res := &Result{Paths: []Path{
			{Conds: []symbolic.Value{cond}, Value: &symbolic.Tuple{Elems: []symbolic.Value{name}}},
			{Conds: []symbolic.Value{symbolic.Negate(cond)}, Value: &symbolic.Tuple{Elems: []symbolic.Value{name, name}}},
		}}
		_, err := res.Reconcile(symbolic.Context{})
		assert.True(t, ir.IsIrreconcilableBranches(err))
	})

	t.Run("tuple and scalar", func(t *testing.T) {
		res := &Result{Paths: []Path{
			{Conds: []symbolic.Value{cond}, Value: name},
			{Conds: []symbolic.Value{symbolic.Negate(cond)}, Value: &symbolic.Tuple{Elems: []symbolic.Value{name}}},
		}}
		_, err := res.Reconcile(symbolic.Context{})
		assert.True(t, ir.IsIrreconcilableBranches(err))
	})

	t.Run("unrelated types", func(t *testing.T) {
		res := &Result{Paths: []Path{
			{Conds: []symbolic.Value{cond}, Value: name},
			{Conds: []symbolic.Value{symbolic.Negate(cond)}, Value: symbolic.Int(3)},
		}}
		_, err := res.Reconcile(symbolic.Context{})
		assert.True(t, ir.IsIrreconcilableBranches(err))
	})
}
