package inspect_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/inspect"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/protocol"
	"github.com/sourcepawn-tools/remote-debug/internal/hostsim"
)

const (
	testFrame = uint32(0x1000)
	testCIP   = uint32(40)
)

// fixture builds an image with one symbol of every display shape and the
// memory behind it.
func fixture() (*hostsim.Image, *hostsim.Memory) {
	im := hostsim.NewImage("test.sp")
	im.AddSym(&hostsim.Sym{SymName: "x", SymIdent: inspect.IdentVariable,
		SymClass: inspect.Local, Addr: 0x10, Start: 0, End: 0xFFFF})
	im.AddSym(&hostsim.Sym{SymName: "enabled", SymIdent: inspect.IdentVariable,
		SymClass: inspect.Global, Tag: "bool", Addr: 0x200, Start: 0, End: 0xFFFF})
	im.AddSym(&hostsim.Sym{SymName: "ratio", SymIdent: inspect.IdentVariable,
		SymClass: inspect.Global, Tag: "float", Addr: 0x204, Start: 0, End: 0xFFFF})
	im.AddSym(&hostsim.Sym{SymName: "name", SymIdent: inspect.IdentArray,
		SymClass: inspect.Local, Addr: 0x20, Start: 0, End: 0xFFFF, Dims: []int{16}})
	im.AddSym(&hostsim.Sym{SymName: "nums", SymIdent: inspect.IdentArray,
		SymClass: inspect.Local, Addr: 0x80, Start: 0, End: 0xFFFF, Dims: []int{3}})
	im.AddSym(&hostsim.Sym{SymName: "hidden", SymIdent: inspect.IdentVariable,
		SymClass: inspect.Global, Addr: 0x300, Start: 500, End: 600})
	im.AddSym(&hostsim.Sym{SymName: "doIt", SymIdent: inspect.IdentFunction,
		SymClass: inspect.Global, Start: 0, End: 0xFFFF})

	mem := hostsim.NewMemory()
	mem.Poke(testFrame+0x10, 5)
	mem.Poke(0x200, 1)
	mem.Poke(0x204, int32(math.Float32bits(1.5)))
	mem.PokeString(testFrame+0x20, "bob")
	mem.Poke(testFrame+0x80, 10).Poke(testFrame+0x84, 20).Poke(testFrame+0x88, 30)
	return im, mem
}

func testContext(im *hostsim.Image, mem *hostsim.Memory) inspect.Context {
	return inspect.Context{Provider: im, Memory: mem, CIP: testCIP, Frame: testFrame}
}

func findVar(t *testing.T, vars []protocol.Variable, name string) protocol.Variable {
	t.Helper()
	for _, v := range vars {
		if v.Name == name {
			return v
		}
	}
	t.Fatalf("variable %q not in %v", name, vars)
	return protocol.Variable{}
}

func TestVariablesLocalScope(t *testing.T) {
	im, mem := fixture()
	svc := inspect.NewService()
	ctx := testContext(im, mem)

	vars := svc.Variables(ctx, inspect.LocalScope)

	v := findVar(t, vars, "x")
	require.Equal(t, "5", v.Value)
	require.Equal(t, "cell", v.Type)

	// Untagged character array with printable content reads as a string.
	v = findVar(t, vars, "name")
	require.Equal(t, "bob", v.Value)
	require.Equal(t, "String", v.Type)

	v = findVar(t, vars, "nums")
	require.Equal(t, "[10,20,30]", v.Value)
	require.Equal(t, "Array", v.Type)

	// Globals and functions stay out of the local scope.
	for _, v := range vars {
		require.NotEqual(t, "enabled", v.Name)
		require.NotEqual(t, "doIt", v.Name)
	}
}

func TestVariablesGlobalScope(t *testing.T) {
	im, mem := fixture()
	svc := inspect.NewService()
	ctx := testContext(im, mem)

	vars := svc.Variables(ctx, inspect.GlobalScope)

	v := findVar(t, vars, "enabled")
	require.Equal(t, "true", v.Value)
	require.Equal(t, "bool", v.Type)

	v = findVar(t, vars, "ratio")
	require.Equal(t, "1.500000", v.Value)
	require.Equal(t, "float", v.Type)

	// Out-of-range symbols are listed with a placeholder, not dropped.
	v = findVar(t, vars, "hidden")
	require.Equal(t, "not in scope", v.Value)
}

func TestVariablesExpandsArrayPath(t *testing.T) {
	im, mem := fixture()
	svc := inspect.NewService()
	ctx := testContext(im, mem)

	vars := svc.Variables(ctx, "nums")
	require.Len(t, vars, 3)
	require.Equal(t, "0", vars[0].Name)
	require.Equal(t, "10", vars[0].Value)
	require.Equal(t, "30", vars[2].Value)
}

func TestEvaluateScalarAndElement(t *testing.T) {
	im, mem := fixture()
	svc := inspect.NewService()
	ctx := testContext(im, mem)

	v, ok := svc.Evaluate(ctx, "x")
	require.True(t, ok)
	require.Equal(t, "5", v.Value)

	v, ok = svc.Evaluate(ctx, "nums[1]")
	require.True(t, ok)
	require.Equal(t, "20", v.Value)

	v, ok = svc.Evaluate(ctx, "nums[7]")
	require.True(t, ok)
	require.Equal(t, "(index out of range)", v.Value)

	_, ok = svc.Evaluate(ctx, "nosuch")
	require.False(t, ok)
}

func TestEvaluateIndexOnScalar(t *testing.T) {
	im, mem := fixture()
	svc := inspect.NewService()
	ctx := testContext(im, mem)

	v, ok := svc.Evaluate(ctx, "x[2]")
	require.True(t, ok)
	require.Equal(t, "(invalid index, not an array)", v.Value)
}

func TestSetVariableScalar(t *testing.T) {
	im, mem := fixture()
	svc := inspect.NewService()
	ctx := testContext(im, mem)

	require.True(t, svc.SetVariable(ctx, "x", "42", 0))
	cell, err := mem.ReadCell(testFrame + 0x10)
	require.NoError(t, err)
	require.EqualValues(t, 42, cell)

	require.False(t, svc.SetVariable(ctx, "x", "not a number", 0))
	require.False(t, svc.SetVariable(ctx, "nosuch", "1", 0))
}

func TestSetVariableString(t *testing.T) {
	im, mem := fixture()
	svc := inspect.NewService()
	ctx := testContext(im, mem)

	require.True(t, svc.SetVariable(ctx, "name", `"eve"`, 0))
	got, err := mem.ReadString(testFrame + 0x20)
	require.NoError(t, err)
	require.Equal(t, "eve", got)

	// Non-string arrays refuse writes.
	require.False(t, svc.SetVariable(ctx, "nums", "1", 0))
}

func TestSetVariableBoolAndFloatLiterals(t *testing.T) {
	im, mem := fixture()
	svc := inspect.NewService()
	ctx := testContext(im, mem)

	require.True(t, svc.SetVariable(ctx, "enabled", "false", 0))
	cell, err := mem.ReadCell(0x200)
	require.NoError(t, err)
	require.EqualValues(t, 0, cell)

	require.True(t, svc.SetVariable(ctx, "ratio", "2.5", 0))
	cell, err = mem.ReadCell(0x204)
	require.NoError(t, err)
	require.Equal(t, float32(2.5), math.Float32frombits(uint32(cell)))
}

func recordFixture() (*hostsim.Image, *hostsim.Memory) {
	im := hostsim.NewImage("test.sp")
	im.AddType(7, inspect.Record(
		inspect.Field{Name: "pos", Type: inspect.Scalar(inspect.HintPlain)},
		inspect.Field{Name: "active", Type: inspect.Scalar(inspect.HintBool)},
	))
	im.AddSym(&hostsim.Sym{SymName: "obj", SymIdent: inspect.IdentVariable,
		SymClass: inspect.Local, Addr: 0x40, Start: 0, End: 0xFFFF, SymTypeID: 7})

	mem := hostsim.NewMemory()
	mem.Poke(testFrame+0x40, 3)
	mem.Poke(testFrame+0x44, 1)
	return im, mem
}

func TestTypedRecordRendering(t *testing.T) {
	im, mem := recordFixture()
	svc := inspect.NewService()
	ctx := testContext(im, mem)

	v, ok := svc.Evaluate(ctx, "obj")
	require.True(t, ok)
	require.Equal(t, `{"pos":3,"active":true}`, v.Value)
	require.Equal(t, "Record", v.Type)

	v, ok = svc.Evaluate(ctx, "obj.active")
	require.True(t, ok)
	require.Equal(t, "true", v.Value)
	require.Equal(t, "bool", v.Type)

	vars := svc.Variables(ctx, "obj")
	require.Len(t, vars, 2)
	require.Equal(t, "pos", vars[0].Name)
	require.Equal(t, "3", vars[0].Value)
	require.Equal(t, "active", vars[1].Name)
	require.Equal(t, "true", vars[1].Value)
}

func TestBuildFramesSkipsNothingAndResolves(t *testing.T) {
	iter := &hostsim.FrameIter{Stack: []hostsim.Frame{
		{Function: "inner", File: "/plugins/Test.sp", Line: 12},
		{Function: "CreateTimer", Native: true},
		{Function: "main", File: "/plugins/Test.sp", Line: 3},
	}}
	frames := inspect.BuildFrames(iter, func(string) string { return "test.sp" })
	require.Len(t, frames, 3)
	require.Equal(t, "inner", frames[0].Function)
	require.Equal(t, "test.sp", frames[0].File)
	require.EqualValues(t, 12, frames[0].Line)
	require.Equal(t, "CreateTimer", frames[1].Function)
	require.Empty(t, frames[1].File)
}
