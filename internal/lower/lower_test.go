package lower

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lambdaq/internal/config"
	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/jpql"
	"github.com/roach88/lambdaq/internal/symbolic"
)

var (
	customer = ir.EntityType("Customer")
	supplier = ir.EntityType("Supplier")
	item     = ir.EntityType("Item")
	itemType = ir.EnumType("ItemType")
)

func newLowerer(entity string, opts ...config.Option) *Lowerer {
	return New(config.New(opts...), &jpql.Source{Entity: entity})
}

func row(t ir.Type) *symbolic.Arg {
	return &symbolic.Arg{Index: 0, T: t}
}

func field(base symbolic.Value, name string, t ir.Type) *symbolic.FieldAccess {
	return &symbolic.FieldAccess{Base: base, Field: name, T: t}
}

func captured(slot int, t ir.Type) *symbolic.ParamRef {
	return &symbolic.ParamRef{Slot: slot, T: t}
}

func call(recv symbolic.Value, owner, method string, t ir.Type, args ...symbolic.Value) *symbolic.MethodCall {
	return &symbolic.MethodCall{Receiver: recv, Owner: owner, Method: method, Args: args, T: t}
}

func binop(op symbolic.Op, l, r symbolic.Value, t ir.Type) *symbolic.BinaryOp {
	return &symbolic.BinaryOp{Op: op, Left: l, Right: r, T: t}
}

// query lowers the optional select and where values and renders the query.
func query(t *testing.T, l *Lowerer, sel, where symbolic.Value) string {
	t.Helper()
	q := &jpql.SelectQuery{From: l.Source}
	if sel != nil {
		e, err := l.Value(sel)
		require.NoError(t, err)
		q.Select = e
	}
	if where != nil {
		e, err := l.Condition(where)
		require.NoError(t, err)
		q.Where = e
	}
	out, err := q.Render()
	require.NoError(t, err)
	return out.Text
}

func condText(t *testing.T, l *Lowerer, v symbolic.Value) string {
	t.Helper()
	e, err := l.Condition(v)
	require.NoError(t, err)
	return jpql.String(e)
}

func valueText(t *testing.T, l *Lowerer, v symbolic.Value) string {
	t.Helper()
	e, err := l.Value(v)
	require.NoError(t, err)
	return jpql.String(e)
}

func TestLower_CustomerFilterAndPair(t *testing.T) {
	l := newLowerer("Customer")
	c := row(customer)
	country := field(c, "country", ir.String)
	uk := call(country, "String", "equals", ir.Bool, captured(0, ir.String))
	canada := call(country, "String", "equals", ir.Bool, captured(1, ir.String))
	alice := call(field(c, "name", ir.String), "String", "equals", ir.Bool, symbolic.String("Alice"))

	where := symbolic.Or(uk, symbolic.And(symbolic.Negate(canada), alice))
	sel := &symbolic.Tuple{Elems: []symbolic.Value{c, field(c, "name", ir.String)}}

	assert.Equal(t,
		"SELECT A, A.name FROM Customer A WHERE A.country = :param0 OR A.country <> :param1 AND A.name = 'Alice'",
		query(t, l, sel, where))
}

func TestLower_BooleanDirectUse(t *testing.T) {
	l := newLowerer("Supplier")
	s := row(supplier)
	free := field(s, "hasFreeShipping", ir.Bool)

	t.Run("filter", func(t *testing.T) {
		assert.Equal(t, "SELECT A FROM Supplier A WHERE A.hasFreeShipping = TRUE", query(t, l, nil, free))
	})

	t.Run("compared with captured", func(t *testing.T) {
		v := symbolic.Compare(symbolic.OpEq, free, captured(0, ir.Bool))
		assert.Equal(t, "A.hasFreeShipping = :param0", condText(t, l, v))
	})

	t.Run("negation selected as value", func(t *testing.T) {
		sel := &symbolic.Tuple{Elems: []symbolic.Value{s, &symbolic.Conditional{
			Cond: symbolic.Negate(free),
			Then: symbolic.Int(1),
			Else: symbolic.Int(0),
			T:    ir.Int,
		}}}
		assert.Equal(t,
			"SELECT A, CASE WHEN NOT A.hasFreeShipping = TRUE THEN 1 ELSE 0 END FROM Supplier A WHERE A.hasFreeShipping = TRUE",
			query(t, l, sel, free))
	})

	t.Run("predicate as value", func(t *testing.T) {
		assert.Equal(t, "CASE WHEN NOT A.hasFreeShipping = TRUE THEN 1 ELSE 0 END", valueText(t, l, symbolic.Negate(free)))
	})

	t.Run("boolean literal comparisons", func(t *testing.T) {
		lt := symbolic.Compare(symbolic.OpLt, field(s, "rating", ir.Int), symbolic.Int(3))
		assert.Equal(t, "A.rating < 3", condText(t, l, symbolic.Compare(symbolic.OpEq, lt, symbolic.True)))
		assert.Equal(t, "A.rating >= 3", condText(t, l, symbolic.Compare(symbolic.OpEq, lt, symbolic.False)))
		assert.Equal(t, "A.hasFreeShipping = FALSE", condText(t, l, symbolic.Compare(symbolic.OpEq, free, symbolic.False)))
	})
}

func TestLower_ValuePositionKeepsPredicatesWrapped(t *testing.T) {
	l := newLowerer("Customer")
	lt := symbolic.Compare(symbolic.OpLt, field(row(customer), "salary", ir.Int), symbolic.Int(5))

	assert.Equal(t, "CASE WHEN A.salary < 5 THEN 1 ELSE 0 END", valueText(t, l, lt))
	assert.Equal(t, "CASE WHEN A.salary >= 5 THEN 1 ELSE 0 END", valueText(t, l, symbolic.Negate(lt)))

	e, err := l.Value(symbolic.Negate(lt))
	require.NoError(t, err)
	assert.False(t, jpql.IsPredicate(e))
}

func TestLower_Arithmetic(t *testing.T) {
	c := row(customer)

	t.Run("integers", func(t *testing.T) {
		l := newLowerer("Customer")
		sum := binop(symbolic.OpAdd, binop(symbolic.OpAdd, field(c, "salary", ir.Int), symbolic.Int(5), ir.Int), captured(0, ir.Int), ir.Int)
		v := symbolic.Compare(symbolic.OpLt, sum, symbolic.Int(212))
		assert.Equal(t, "A.salary + 5 + :param0 < 212", condText(t, l, v))
	})

	t.Run("doubles render literals with a fraction", func(t *testing.T) {
		l := newLowerer("Item")
		i := row(item)
		sum := binop(symbolic.OpAdd, binop(symbolic.OpAdd, field(i, "purchaseprice", ir.Double), captured(0, ir.Double), ir.Double), symbolic.Int(2), ir.Double)
		v := symbolic.Compare(symbolic.OpGt, field(i, "saleprice", ir.Double), sum)
		assert.Equal(t, "A.saleprice > A.purchaseprice + :param0 + 2.0", condText(t, l, v))
	})

	t.Run("promotion is order independent", func(t *testing.T) {
		l := newLowerer("Item")
		price := field(row(item), "saleprice", ir.Double)
		assert.Equal(t, "A.saleprice + 2.0", valueText(t, l, binop(symbolic.OpAdd, price, symbolic.Int(2), ir.Double)))
		assert.Equal(t, "2.0 + A.saleprice", valueText(t, l, binop(symbolic.OpAdd, symbolic.Int(2), price, ir.Double)))
	})

	t.Run("parameter products", func(t *testing.T) {
		l := newLowerer("Lineorder")
		v := symbolic.Compare(symbolic.OpLt,
			field(row(ir.EntityType("Lineorder")), "total", ir.Double),
			binop(symbolic.OpMul, captured(0, ir.Double), captured(1, ir.Int), ir.Double))
		assert.Equal(t, "A.total < :param0 * :param1", condText(t, l, v))
	})

	t.Run("division", func(t *testing.T) {
		l := newLowerer("Customer")
		assert.Equal(t, ":param0 / 2.0", valueText(t, l, binop(symbolic.OpDiv, captured(0, ir.Double), symbolic.Int(2), ir.Double)))
	})

	t.Run("constant folding", func(t *testing.T) {
		l := newLowerer("Customer")
		product := binop(symbolic.OpMul, symbolic.Int(3), symbolic.Int(4), ir.Int)
		assert.Equal(t, "12 + A.salary", valueText(t, l, binop(symbolic.OpAdd, product, field(c, "salary", ir.Int), ir.Int)))
		assert.Equal(t, "-2147483648", valueText(t, l, binop(symbolic.OpAdd, symbolic.Int(2147483647), symbolic.Int(1), ir.Int)))
		assert.Equal(t, "7 / 0", valueText(t, l, binop(symbolic.OpDiv, symbolic.Int(7), symbolic.Int(0), ir.Int)))
	})

	t.Run("float folding keeps float digits", func(t *testing.T) {
		l := newLowerer("Customer")
		f := func(v float32) *symbolic.Constant { return &symbolic.Constant{Val: float64(v), T: ir.Float} }
		assert.Equal(t, "0.3", valueText(t, l, binop(symbolic.OpAdd, f(0.1), f(0.2), ir.Float)))
		assert.Equal(t, "0.1", valueText(t, l, binop(symbolic.OpMul, f(0.1), f(1), ir.Float)))
		assert.Equal(t, "0.30000000000000004", valueText(t, l, binop(symbolic.OpAdd, symbolic.Double(0.1), symbolic.Double(0.2), ir.Double)))
	})

	t.Run("remainder and negation", func(t *testing.T) {
		l := newLowerer("Customer")
		salary := field(c, "salary", ir.Int)
		assert.Equal(t, "MOD(A.salary, 7)", valueText(t, l, binop(symbolic.OpMod, salary, symbolic.Int(7), ir.Int)))
		assert.Equal(t, "-A.salary", valueText(t, l, &symbolic.UnaryOp{Op: symbolic.OpNeg, Operand: salary, T: ir.Int}))
		assert.Equal(t, "-5", valueText(t, l, &symbolic.UnaryOp{Op: symbolic.OpNeg, Operand: symbolic.Int(5), T: ir.Int}))
	})

	t.Run("big integers", func(t *testing.T) {
		l := newLowerer("Lineorder")
		conf := field(row(ir.EntityType("Lineorder")), "transactionConfirmation", ir.BigInteger)
		sum := call(conf, "BigInteger", "add", ir.BigInteger, captured(0, ir.BigInteger))
		v := symbolic.Compare(symbolic.OpLt, sum, captured(1, ir.BigInteger))
		assert.Equal(t, "A.transactionConfirmation + :param0 < :param1", condText(t, l, v))
	})

	t.Run("decimals", func(t *testing.T) {
		l := newLowerer("Lineorder")
		total := field(row(ir.EntityType("Lineorder")), "total", ir.Decimal)
		ten := symbolic.Decimal(apd.New(105, -1))
		assert.Equal(t, "A.total * 10.5", valueText(t, l, call(total, "BigDecimal", "multiply", ir.Decimal, ten)))
		assert.Equal(t, "-A.total", valueText(t, l, call(total, "BigDecimal", "negate", ir.Decimal)))
		assert.Equal(t, "ABS(A.total)", valueText(t, l, call(total, "BigDecimal", "abs", ir.Decimal)))
		assert.Equal(t, "A.total", valueText(t, l, call(total, "BigDecimal", "doubleValue", ir.Double)))
		assert.Equal(t, ":param0", valueText(t, l, call(nil, "BigDecimal", "valueOf", ir.Decimal, captured(0, ir.Long))))
	})

	t.Run("mismatched operands", func(t *testing.T) {
		l := newLowerer("Customer")
		_, err := l.Value(binop(symbolic.OpAdd, field(c, "name", ir.String), symbolic.Int(1), ir.Int))
		assert.True(t, ir.IsTypeMismatch(err))
	})
}

func TestLower_NullTests(t *testing.T) {
	l := newLowerer("Lineorder")
	cust := field(row(ir.EntityType("Lineorder")), "customer", customer)
	isNull := symbolic.Compare(symbolic.OpEq, cust, symbolic.Null(ir.Object))

	assert.Equal(t, "A.customer IS NULL", condText(t, l, isNull))
	assert.Equal(t, "A.customer IS NOT NULL", condText(t, l, symbolic.Negate(isNull)))
	assert.Equal(t, "A.customer IS NULL", condText(t, l, symbolic.Compare(symbolic.OpEq, symbolic.Null(ir.Object), cust)))
	assert.Equal(t, "A.customer IS NOT NULL", condText(t, l, &symbolic.UnaryOp{Op: symbolic.OpNot, Operand: isNull, T: ir.Bool}))

	_, err := l.Condition(symbolic.Compare(symbolic.OpLt, cust, symbolic.Null(ir.Object)))
	assert.True(t, ir.IsTypeMismatch(err))
}

func TestLower_EnumsAndDates(t *testing.T) {
	t.Run("enum constant", func(t *testing.T) {
		l := newLowerer("Item")
		big := symbolic.Enum(itemType, "org.example.shop.ItemType", "BIG")
		v := call(field(row(item), "type", itemType), "ItemType", "equals", ir.Bool, big)
		assert.Equal(t, "A.type = org.example.shop.ItemType.BIG", condText(t, l, v))
	})

	t.Run("calendar comparisons", func(t *testing.T) {
		l := newLowerer("Sale")
		cal := field(row(ir.EntityType("Sale")), "calendar", ir.Calendar)
		before := call(cal, "Calendar", "before", ir.Bool, captured(0, ir.Calendar))
		notBefore := symbolic.Negate(call(cal, "Calendar", "before", ir.Bool, captured(1, ir.Calendar)))
		same := call(cal, "Calendar", "equals", ir.Bool, captured(2, ir.Calendar))
		v := symbolic.Or(before, symbolic.And(notBefore, same))
		assert.Equal(t, "A.calendar < :param0 OR A.calendar >= :param1 AND A.calendar = :param2", condText(t, l, v))
	})

	t.Run("compareTo against zero", func(t *testing.T) {
		l := newLowerer("Sale")
		date := field(row(ir.EntityType("Sale")), "date", ir.Date)
		cmp := call(date, "Date", "compareTo", ir.Int, captured(0, ir.Date))
		assert.Equal(t, "A.date <= :param0", condText(t, l, symbolic.Compare(symbolic.OpLe, cmp, symbolic.Int(0))))
		assert.Equal(t, "A.date > :param0", condText(t, l, symbolic.Compare(symbolic.OpLt, symbolic.Int(0), cmp)))
	})
}

func TestLower_StringMethods(t *testing.T) {
	name := field(row(customer), "name", ir.String)
	tests := []struct {
		name string
		v    symbolic.Value
		cond bool
		want string
	}{
		{"length", call(name, "String", "length", ir.Int), false, "LENGTH(A.name)"},
		{"upper", call(name, "String", "toUpperCase", ir.String), false, "UPPER(A.name)"},
		{"lower", call(name, "String", "toLowerCase", ir.String), false, "LOWER(A.name)"},
		{"trim", call(name, "String", "trim", ir.String), false, "TRIM(A.name)"},
		{"concat", call(name, "String", "concat", ir.String, symbolic.String("!")), false, "CONCAT(A.name, '!')"},
		{"substring from", call(name, "String", "substring", ir.String, symbolic.Int(1)), false, "SUBSTRING(A.name, 2)"},
		{"substring range", call(name, "String", "substring", ir.String, symbolic.Int(1), symbolic.Int(4)), false, "SUBSTRING(A.name, 2, 3)"},
		{"substring captured", call(name, "String", "substring", ir.String, captured(0, ir.Int), symbolic.Int(4)), false, "SUBSTRING(A.name, :param0 + 1, 4 - :param1)"},
		{"contains", call(name, "String", "contains", ir.Bool, symbolic.String("li")), true, "LOCATE('li', A.name) > 0"},
		{"contains char sequence", call(name, "String", "contains", ir.Bool, &symbolic.Cast{Operand: captured(0, ir.String), T: ir.CharSequence}), true, "LOCATE(:param0, A.name) > 0"},
		{"startsWith", call(name, "String", "startsWith", ir.Bool, symbolic.String("Al")), true, "LOCATE('Al', A.name) = 1"},
		{"startsWith wildcard characters", call(name, "String", "startsWith", ir.Bool, symbolic.String("50%_")), true, "LOCATE('50%_', A.name) = 1"},
		{"endsWith", call(name, "String", "endsWith", ir.Bool, captured(0, ir.String)), true, "SUBSTRING(A.name, LENGTH(A.name) - LENGTH(:param0) + 1) = :param1"},
		{"endsWith wildcard characters", call(name, "String", "endsWith", ir.Bool, symbolic.String("_%")), true, "SUBSTRING(A.name, LENGTH(A.name) - LENGTH('_%') + 1) = '_%'"},
		{"indexOf", call(name, "String", "indexOf", ir.Int, symbolic.String("l")), false, "LOCATE('l', A.name) - 1"},
		{"isEmpty", call(name, "String", "isEmpty", ir.Bool), true, "LENGTH(A.name) = 0"},
		{"equals", call(name, "String", "equals", ir.Bool, captured(0, ir.String)), true, "A.name = :param0"},
		{"compareTo", symbolic.Compare(symbolic.OpGt, call(name, "String", "compareTo", ir.Int, symbolic.String("M")), symbolic.Int(0)), true, "A.name > 'M'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLowerer("Customer")
			if tt.cond {
				assert.Equal(t, tt.want, condText(t, l, tt.v))
			} else {
				assert.Equal(t, tt.want, valueText(t, l, tt.v))
			}
		})
	}
}

func TestLower_MathAndCasts(t *testing.T) {
	l := newLowerer("Customer")
	salary := field(row(customer), "salary", ir.Int)

	assert.Equal(t, "ABS(A.salary)", valueText(t, l, call(nil, "Math", "abs", ir.Int, salary)))
	assert.Equal(t, "SQRT(A.salary)", valueText(t, l, call(nil, "Math", "sqrt", ir.Double, salary)))
	assert.Equal(t, "A.salary", valueText(t, l, &symbolic.Cast{Operand: salary, T: ir.Double}))
	assert.Equal(t, "3.0", valueText(t, l, &symbolic.Cast{Operand: symbolic.Int(3), T: ir.Double}))

	_, err := l.Value(&symbolic.Cast{Operand: salary, T: ir.Date})
	assert.True(t, ir.IsTypeMismatch(err))

	_, err = l.Value(&symbolic.Cast{Operand: field(row(customer), "name", ir.String), T: ir.CharSequence})
	assert.True(t, ir.IsTypeMismatch(err), "a char sequence is only accepted where the consumer allows it")
}

func TestLower_StringConcat(t *testing.T) {
	l := newLowerer("Customer")
	c := row(customer)
	r := string(symbolic.RecipeArg)

	s := &symbolic.StringConcat{
		Recipe: "Name: " + r + " (" + r + ", " + r + ")",
		Args:   []symbolic.Value{field(c, "name", ir.String), symbolic.Int(5), field(c, "country", ir.String)},
	}
	assert.Equal(t, "CONCAT('Name: ', A.name, ' (5, ', A.country, ')')", valueText(t, l, s))

	single := &symbolic.StringConcat{Recipe: r, Args: []symbolic.Value{field(c, "name", ir.String)}}
	assert.Equal(t, "A.name", valueText(t, l, single))

	folded := &symbolic.StringConcat{Recipe: "x" + r, Args: []symbolic.Value{symbolic.Double(2)}}
	assert.Equal(t, "'x2.0'", valueText(t, l, folded))

	_, err := l.Value(&symbolic.StringConcat{Recipe: r + r, Args: []symbolic.Value{field(c, "name", ir.String), field(c, "salary", ir.Int)}})
	assert.True(t, ir.IsTypeMismatch(err))
}

func TestLower_Conditionals(t *testing.T) {
	l := newLowerer("Customer")
	salary := field(row(customer), "salary", ir.Int)
	low := symbolic.Compare(symbolic.OpLt, salary, symbolic.Int(10))
	mid := symbolic.Compare(symbolic.OpLt, salary, symbolic.Int(100))

	v := &symbolic.Conditional{
		Cond: low,
		Then: symbolic.String("low"),
		Else: &symbolic.Conditional{Cond: mid, Then: symbolic.String("mid"), Else: symbolic.String("high"), T: ir.String},
		T:    ir.String,
	}
	assert.Equal(t, "CASE WHEN A.salary < 10 THEN 'low' WHEN A.salary < 100 THEN 'mid' ELSE 'high' END", valueText(t, l, v))

	numeric := &symbolic.Conditional{Cond: low, Then: symbolic.Int(1), Else: salary, T: ir.Double}
	assert.Equal(t, "CASE WHEN A.salary < 10 THEN 1.0 ELSE A.salary END", valueText(t, l, numeric))

	name := call(field(row(customer), "name", ir.String), "String", "equals", ir.Bool, symbolic.String("Bob"))
	boolean := &symbolic.Conditional{Cond: low, Then: name, Else: mid, T: ir.Bool}
	assert.Equal(t, "A.salary < 10 AND A.name = 'Bob' OR A.salary >= 10 AND A.salary < 100", condText(t, l, boolean))
}

func TestLower_EqualityAndMembershipOptions(t *testing.T) {
	c := row(customer)
	other := captured(0, customer)
	same := call(c, "Customer", "equals", ir.Bool, other)

	assert.Equal(t, "A = :param0", condText(t, newLowerer("Customer"), same))

	_, err := newLowerer("Customer", config.WithObjectEqualsSafe(false)).Condition(same)
	assert.True(t, ir.IsUnsupportedOperation(err))

	anything := call(captured(0, ir.Object), "Object", "equals", ir.Bool, field(c, "name", ir.String))
	_, err = newLowerer("Customer", config.WithAllEqualsSafe(false)).Condition(anything)
	assert.True(t, ir.IsUnsupportedOperation(err))

	contains := call(field(c, "tags", ir.Collection), "Collection", "contains", ir.Bool, captured(0, ir.String))
	assert.Equal(t, ":param0 MEMBER OF A.tags", condText(t, newLowerer("Customer"), contains))

	_, err = newLowerer("Customer", config.WithCollectionContainsSafe(false)).Condition(contains)
	assert.True(t, ir.IsUnsupportedOperation(err))
}

func TestLower_CustomFunctionsAndUnsupported(t *testing.T) {
	name := field(row(customer), "name", ir.String)
	soundex := call(nil, "Strings", "soundex", ir.String, name)

	_, err := newLowerer("Customer").Value(soundex)
	require.Error(t, err)
	assert.True(t, ir.IsUnsupportedOperation(err))
	te, ok := ir.AsTranslationError(err)
	require.True(t, ok)
	assert.Equal(t, symbolic.Format(soundex), te.Expr)

	l := newLowerer("Customer", config.WithCustomFunction("Strings.soundex", "SOUNDEX"))
	assert.Equal(t, "function('SOUNDEX', A.name)", valueText(t, l, soundex))

	l = newLowerer("Customer", config.WithCustomFunction("String.reverse", "REVERSE"))
	assert.Equal(t, "function('REVERSE', A.name)", valueText(t, l, call(name, "String", "reverse", ir.String)))
}

func TestLower_RowReplacement(t *testing.T) {
	l := newLowerer("Customer")
	src := l.Source
	l.Row = &jpql.Tuple{Elems: []jpql.Expression{jpql.NewPath(src), jpql.NewPath(src, "name")}}

	pair := row(ir.Tuple)
	second := call(pair, "Pair", "getTwo", ir.Object)
	assert.Equal(t, "A.name", valueText(t, l, second))

	first := &symbolic.Cast{Operand: call(pair, "Pair", "getOne", ir.Object), T: customer}
	assert.Equal(t, "A.country", valueText(t, l, field(first, "country", ir.String)))

	_, err := l.Value(call(pair, "Pair", "getThree", ir.Object))
	assert.True(t, ir.IsUnsupportedOperation(err))
}

func TestLower_RowSharingKeepsParameters(t *testing.T) {
	l := newLowerer("Customer")
	sel, err := l.Value(binop(symbolic.OpDiv,
		binop(symbolic.OpMul, captured(0, ir.Double), symbolic.Int(2), ir.Double),
		captured(1, ir.Double), ir.Double))
	require.NoError(t, err)

	l.Row = sel
	key, err := l.Value(row(ir.Double))
	require.NoError(t, err)

	out, err := (&jpql.SelectQuery{From: l.Source, Select: sel, OrderBy: []jpql.Ordering{{Expr: key}}}).Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT :param0 * 2.0 / :param1 FROM Customer A ORDER BY :param0 * 2.0 / :param1 ASC", out.Text)
	assert.Len(t, out.Params, 2)
}

func TestLower_NonBooleanCondition(t *testing.T) {
	l := newLowerer("Customer")
	_, err := l.Condition(field(row(customer), "name", ir.String))
	assert.True(t, ir.IsTypeMismatch(err))

	assert.Equal(t, "1 = 0", condText(t, l, symbolic.False))
}

func TestLower_NestedLibraryCalls(t *testing.T) {
	for name, table := range map[string]map[string]methodFunc{
		"string":   stringMethods,
		"temporal": temporalMethods,
		"decimal":  decimalMethods,
		"static":   staticMethods,
	} {
		assert.NotEmpty(t, table, name)
	}

	l := newLowerer("Customer")
	name := field(row(customer), "name", ir.String)
	upper := call(call(name, "String", "trim", ir.String), "String", "toUpperCase", ir.String)
	v := call(upper, "String", "startsWith", ir.Bool, symbolic.String("A"))
	assert.Equal(t, "LOCATE('A', UPPER(TRIM(A.name))) = 1", condText(t, l, v))
}
