package manifest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origadmin/annotgen/internal/model"
)

const segmentYAML = `source: Segment.java
classes:
  - name: Segment
    package: edu.geo
    line: 5
    ctor_line: 10
    fields:
      - {name: from, type: Point}
      - {name: tags, type: "String[]"}
      - {name: index, type: "map[string]edu.geo.Point", exported: true}
    methods:
      - name: shift
        line: 15
        exported: true
        params: [{name: by, type: Point}]
        results: [Segment]
      - name: size
        line: 19
        results: [int]
  - name: Point
    package: edu.geo
    external: true
    line: 99
    fields:
      - {name: x, type: int}
    methods:
      - {name: getX, results: [int]}
`

func decode(t *testing.T, doc string) *File {
	t.Helper()
	m, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	return m
}

func TestFile_TypeInfos(t *testing.T) {
	classes := decode(t, segmentYAML).TypeInfos()
	require.Len(t, classes, 1, "external classes are not returned")

	segment := classes[0]
	assert.Equal(t, "edu.geo.Segment", segment.FQN())
	assert.Equal(t, model.Class, segment.Kind)
	assert.Equal(t, 5, segment.DeclLine)
	assert.Equal(t, 10, segment.CtorLine)
	assert.Equal(t, 1, segment.CtorDepth)

	point := segment.Fields[0].Type
	assert.Equal(t, "edu.geo.Point", point.FQN())
	assert.Zero(t, point.DeclLine, "external classes carry no positions")
	require.Len(t, point.Methods, 1)
	assert.Zero(t, point.Methods[0].Line)

	tags := segment.Fields[1].Type
	assert.Equal(t, model.Slice, tags.Kind)
	assert.Equal(t, "String[]", tags.SimpleName())
	assert.Equal(t, "java.lang.String", tags.Elem.FQN())

	index := segment.Fields[2].Type
	assert.Equal(t, model.Map, index.Kind)
	assert.True(t, index.Key.Primitive)
	assert.Same(t, point, index.Elem)
	assert.True(t, segment.Fields[2].Exported)

	shift := segment.Methods[0]
	assert.Equal(t, 15, shift.Line)
	assert.Equal(t, 1, shift.Depth)
	assert.Same(t, point, shift.Params[0].Type)
	assert.Same(t, segment, shift.Results[0])
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "empty", doc: "", wantErr: "empty manifest"},
		{name: "unknown key", doc: "classes:\n  - name: A\n    colour: red\n", wantErr: "colour"},
		{name: "missing name", doc: "classes:\n  - line: 3\n", wantErr: "missing name"},
		{name: "bad kind", doc: "classes:\n  - {name: A, kind: map}\n", wantErr: "does not declare members"},
		{name: "field without type", doc: "classes:\n  - name: A\n    fields: [{name: x}]\n", wantErr: "needs name and type"},
		{name: "not yaml", doc: "classes: [", wantErr: "decode yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolver_References(t *testing.T) {
	r := newResolver()
	tests := []struct {
		ref  string
		want string
		kind model.TypeKind
	}{
		{ref: "int", want: "int", kind: model.Primitive},
		{ref: "*geo.Point", want: "*Point", kind: model.Pointer},
		{ref: "[]string", want: "[]string", kind: model.Slice},
		{ref: "[4]byte", want: "[4]byte", kind: model.Array},
		{ref: "map[string][]int", want: "map[string][]int", kind: model.Map},
		{ref: "chan error", want: "chan error", kind: model.Chan},
		{ref: "any", want: "interface{}", kind: model.Interface},
		{ref: "Point[][]", want: "Point[][]", kind: model.Slice},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got := r.resolve(tt.ref, "edu.geo")
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.want, got.SimpleName())
		})
	}

	assert.Same(t, r.resolve("time.Time", ""), r.resolve("time.Time", ""))
	assert.Equal(t, "github.com/acme/geo.Point", r.resolve("github.com/acme/geo.Point", "").FQN())
}

func TestFromTypeInfos_RoundTrip(t *testing.T) {
	classes := decode(t, segmentYAML).TypeInfos()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FromTypeInfos("Segment.java", classes)))

	again := decode(t, buf.String())
	assert.Equal(t, "Segment.java", again.Source)
	require.Len(t, again.Classes, 2)
	assert.Equal(t, "Segment", again.Classes[0].Name)
	assert.Equal(t, "Point", again.Classes[1].Name)
	assert.True(t, again.Classes[1].External)
	assert.Equal(t, "map[string]edu.geo.Point", again.Classes[0].Fields[2].Type)

	rebuilt := again.TypeInfos()
	require.Len(t, rebuilt, 1)
	assert.Equal(t, classes[0].CtorLine, rebuilt[0].CtorLine)
	assert.Equal(t, classes[0].Methods[0].Line, rebuilt[0].Methods[0].Line)
	assert.Equal(t, "edu.geo.Point", rebuilt[0].Fields[0].Type.FQN())
}

func TestSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(segmentYAML), 0o644))

	src := NewSource(path)
	classes, err := src.Load(context.Background(), "Other.java")
	require.NoError(t, err)
	assert.Len(t, classes, 1)

	_, err = NewSource(filepath.Join(t.TempDir(), "missing.yaml")).Load(context.Background(), "Segment.java")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Load(ctx, "Segment.java")
	assert.ErrorIs(t, err, context.Canceled)
}
