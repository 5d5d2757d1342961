package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/origadmin/annotgen/internal/model"
)

func named(pkg, name string, kind model.TypeKind) *model.TypeInfo {
	return &model.TypeInfo{Name: name, ImportPath: pkg, Kind: kind}
}

func prim(name string) *model.TypeInfo {
	return &model.TypeInfo{Name: name, Kind: model.Primitive, Primitive: true}
}

func TestClassifier_IsPointless(t *testing.T) {
	point := named("example.com/geo", "Point", model.Struct)
	c := New(DefaultExcludedPrefixes, true)

	tests := []struct {
		name string
		typ  *model.TypeInfo
		want bool
	}{
		{"nil", nil, true},
		{"int", prim("int"), true},
		{"go string", prim("string"), true},
		{"java String unresolved", named("", "String", model.Class), true},
		{"java String", named("java.lang", "String", model.Class), true},
		{"user struct", point, false},
		{"pointer to user struct", &model.TypeInfo{Kind: model.Pointer, Elem: point}, false},
		{"slice of user struct", &model.TypeInfo{Kind: model.Slice, Elem: point}, false},
		{"slice of int", &model.TypeInfo{Kind: model.Slice, Elem: prim("int")}, true},
		{"map string to point", &model.TypeInfo{Kind: model.Map, Key: prim("string"), Elem: point}, false},
		{"map string to int", &model.TypeInfo{Kind: model.Map, Key: prim("string"), Elem: prim("int")}, true},
		{"java array of class", &model.TypeInfo{Name: "Point[]", Kind: model.Array, Elem: named("edu.course", "Point", model.Class)}, false},
		{"stdlib struct", named("time", "Time", model.Struct), true},
		{"stdlib nested path", named("net/http", "Client", model.Struct), true},
		{"java util", named("java.util", "ArrayList", model.Class), true},
		{"tester library", named("tester", "Tester", model.Class), true},
		{"javalib library", named("javalib.worldimages", "WorldImage", model.Class), true},
		{"empty interface", &model.TypeInfo{Kind: model.Interface}, true},
		{"any", named("", "any", model.Interface), true},
		{"user interface", &model.TypeInfo{Name: "Shape", ImportPath: "example.com/geo", Kind: model.Interface,
			Methods: []*model.MethodInfo{{Name: "Area"}}}, false},
		{"anonymous struct", &model.TypeInfo{Kind: model.Struct}, true},
		{"func", &model.TypeInfo{Kind: model.Func}, true},
		{"ad hoc package", named("command-line-arguments", "Point", model.Struct), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsPointless(tt.typ))
		})
	}
}

func TestClassifier_Idempotent(t *testing.T) {
	c := New(DefaultExcludedPrefixes, true)
	types := []*model.TypeInfo{
		prim("int"),
		named("example.com/geo", "Point", model.Struct),
		named("time", "Duration", model.Named),
		nil,
	}
	for _, typ := range types {
		first := c.IsPointless(typ)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, c.IsPointless(typ))
		}
	}
}

func TestClassifier_StdlibToggle(t *testing.T) {
	duration := named("time", "Duration", model.Named)
	assert.True(t, New(nil, true).IsPointless(duration))
	assert.False(t, New(nil, false).IsPointless(duration))
	assert.True(t, New([]string{"time."}, false).IsPointless(duration))
}

func TestClassifier_SelfReferentialComposite(t *testing.T) {
	loop := &model.TypeInfo{Kind: model.Slice}
	loop.Elem = loop
	assert.True(t, New(nil, false).IsPointless(loop))
}

func TestIsStdlibPath(t *testing.T) {
	assert.True(t, IsStdlibPath("fmt"))
	assert.True(t, IsStdlibPath("encoding/json"))
	assert.False(t, IsStdlibPath("github.com/origadmin/annotgen"))
	assert.False(t, IsStdlibPath(""))
	assert.False(t, IsStdlibPath("command-line-arguments"))
}
