package expressions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"corundb/catalog"
	"corundb/catalog/dbtype"
)

func testSchema() catalog.Schema {
	return catalog.NewSchema([]catalog.Column{
		{Name: "id", Type: dbtype.TypeID{Kind: dbtype.KindInteger}},
		{Name: "name", Type: dbtype.TypeID{Kind: dbtype.KindVarchar, Size: 8}},
	})
}

func TestColumnValue_Eval(t *testing.T) {
	schema := testSchema()
	tup := catalog.NewTuple([]dbtype.Value{dbtype.NewInt(7), dbtype.NewVarchar("x", 8)}, schema)

	col := NewColumnValue(0, 1)
	got := col.Eval(tup, schema)
	assert.Equal(t, "x", got.AsString())
}

func TestColumnValue_EvalJoin_PicksSideByTupleIdx(t *testing.T) {
	leftSchema := testSchema()
	rightSchema := testSchema()
	left := catalog.NewTuple([]dbtype.Value{dbtype.NewInt(1), dbtype.NewVarchar("l", 8)}, leftSchema)
	right := catalog.NewTuple([]dbtype.Value{dbtype.NewInt(2), dbtype.NewVarchar("r", 8)}, rightSchema)

	leftCol := NewColumnValue(0, 0)
	rightCol := NewColumnValue(1, 0)

	assert.Equal(t, int32(1), leftCol.EvalJoin(left, leftSchema, right, rightSchema).AsInt32())
	assert.Equal(t, int32(2), rightCol.EvalJoin(left, leftSchema, right, rightSchema).AsInt32())
}

func TestComparison_Eq(t *testing.T) {
	schema := testSchema()
	tup := catalog.NewTuple([]dbtype.Value{dbtype.NewInt(5), dbtype.NewVarchar("a", 8)}, schema)

	cmp := NewComparison(Eq, NewColumnValue(0, 0), NewConstant(dbtype.NewInt(5)))
	assert.True(t, AsBool(cmp.Eval(tup, schema)))

	cmp2 := NewComparison(Eq, NewColumnValue(0, 0), NewConstant(dbtype.NewInt(6)))
	assert.False(t, AsBool(cmp2.Eval(tup, schema)))
}

func TestComparison_AllOperators(t *testing.T) {
	a := dbtype.NewInt(3)
	b := dbtype.NewInt(5)
	schema := catalog.Schema{}

	cases := []struct {
		op   CompType
		want bool
	}{
		{Lt, true}, {Le, true}, {Gt, false}, {Ge, false}, {Eq, false}, {Ne, true},
	}
	for _, c := range cases {
		cmp := NewComparison(c.op, NewConstant(a), NewConstant(b))
		got := AsBool(cmp.Eval(catalog.NewTuple(nil, schema), schema))
		assert.Equal(t, c.want, got, "operator %v", c.op)
	}
}

func TestLogicAnd_ShortCircuitsOnFirstFalse(t *testing.T) {
	schema := catalog.Schema{}
	tup := catalog.NewTuple(nil, schema)

	and := NewLogicAnd(
		NewConstant(dbtype.NewBool(true)),
		NewConstant(dbtype.NewBool(false)),
		NewConstant(dbtype.NewBool(true)),
	)
	assert.False(t, AsBool(and.Eval(tup, schema)))

	andAllTrue := NewLogicAnd(
		NewConstant(dbtype.NewBool(true)),
		NewConstant(dbtype.NewBool(true)),
	)
	assert.True(t, AsBool(andAllTrue.Eval(tup, schema)))
}

func TestConjuncts_FlattensTopLevelAnd(t *testing.T) {
	c1 := NewConstant(dbtype.NewBool(true))
	c2 := NewConstant(dbtype.NewBool(false))
	and := NewLogicAnd(c1, c2)

	got := Conjuncts(and)
	assert.Equal(t, []Expression{c1, c2}, got)

	single := Conjuncts(c1)
	assert.Equal(t, []Expression{c1}, single)

	assert.Nil(t, Conjuncts(nil))
}

func TestArithmetic_AddAndSub(t *testing.T) {
	schema := catalog.Schema{}
	tup := catalog.NewTuple(nil, schema)

	add := NewArithmetic(Add, NewConstant(dbtype.NewInt(2)), NewConstant(dbtype.NewInt(3)))
	assert.Equal(t, int32(5), add.Eval(tup, schema).AsInt32())

	sub := NewArithmetic(Sub, NewConstant(dbtype.NewInt(7)), NewConstant(dbtype.NewInt(2)))
	assert.Equal(t, int32(5), sub.Eval(tup, schema).AsInt32())
}

func TestArithmetic_NullPropagates(t *testing.T) {
	schema := catalog.Schema{}
	tup := catalog.NewTuple(nil, schema)

	add := NewArithmetic(Add, NewConstant(dbtype.NewNull(dbtype.TypeID{Kind: dbtype.KindInteger})), NewConstant(dbtype.NewInt(1)))
	assert.True(t, add.Eval(tup, schema).IsNull())
}
