// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package vsa

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/2dChan/vsa/trimesh"
	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestExtractMesh_InvalidOption(t *testing.T) {
	a := mustNewL21(t, mustNewGrid(t, 2, 2))
	mustSeed(t, a, Incremental, 1)

	if ok, err := a.ExtractMesh(WithSubdivisionRatio(0)); ok || err == nil {
		t.Errorf("a.ExtractMesh(WithSubdivisionRatio(0)) = %v, %v, want false, error", ok, err)
	}
	if a.Extraction() != nil {
		t.Errorf("a.Extraction() = %v, want nil", a.Extraction())
	}
}

func TestExtractMesh_FlatGrid(t *testing.T) {
	tests := []struct {
		name    string
		setters []ExtractOption
	}{
		{"defaults", nil},
		{"input positions", []ExtractOption{WithSubdivisionRatio(0.1), WithOptimizeAnchorLocation(false)}},
		{"optimized positions", []ExtractOption{WithSubdivisionRatio(0.1)}},
		{"pca plane", []ExtractOption{WithSubdivisionRatio(0.1), WithPCAPlane(true)}},
		{"relative to chord", []ExtractOption{WithSubdivisionRatio(0.1), WithRelativeToChord(true)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustNewL2(t, mustNewGrid(t, 4, 4))
			mustSeed(t, a, Incremental, 1)

			ok, err := a.ExtractMesh(tt.setters...)
			if err != nil || !ok {
				t.Fatalf("a.ExtractMesh(...) = %v, %v, want true, nil", ok, err)
			}
			ex := a.Extraction()

			var vertices []int
			for _, an := range ex.Anchors {
				vertices = append(vertices, an.Vertex)
			}
			if diff := cmp.Diff([]int{0, 4, 20, 24}, vertices); diff != "" {
				t.Errorf("anchor vertices mismatch (-want +got):\n%s", diff)
			}

			want := []r3.Vector{{}, {X: 4}, {Y: 4}, {X: 4, Y: 4}}
			if diff := cmp.Diff(want, ex.Mesh.Vertices, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("ex.Mesh.Vertices mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]int{0, 0}, ex.FaceProxies); diff != "" {
				t.Errorf("ex.FaceProxies mismatch (-want +got):\n%s", diff)
			}
			if got, want := ex.Mesh.Area(), 16.0; math.Abs(got-want) > 1e-9 {
				t.Errorf("ex.Mesh.Area() = %v, want %v", got, want)
			}
			for f := range ex.Mesh.NumFaces() {
				if n := ex.Mesh.FaceNormal(f); n.Z < 1-1e-9 {
					t.Errorf("ex.Mesh.FaceNormal(%d) = %v, want +z", f, n)
				}
			}
			if diff := cmp.Diff([]Polygon{{Proxy: 0, Anchors: []int{0, 1, 3, 2}}}, ex.Polygons); diff != "" {
				t.Errorf("ex.Polygons mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractMesh_Sphere(t *testing.T) {
	m := mustNewSphere(t, 200)
	a := mustNewL21(t, m)
	mustSeed(t, a, Incremental, 12)
	if err := a.Run(10); err != nil {
		t.Fatalf("a.Run(10) error = %v, want nil", err)
	}

	ok, err := a.ExtractMesh()
	if err != nil || !ok {
		t.Fatalf("a.ExtractMesh() = %v, %v, want true, nil", ok, err)
	}
	ex := a.Extraction()

	if got := ex.Mesh.NumVertices(); got != len(ex.Anchors) {
		t.Errorf("ex.Mesh.NumVertices() = %d, want %d", got, len(ex.Anchors))
	}
	if len(ex.Anchors) < 3 {
		t.Errorf("len(ex.Anchors) = %d, want >= 3", len(ex.Anchors))
	}
	if got := ex.Mesh.NumFaces(); got == 0 || got >= m.NumFaces() {
		t.Errorf("ex.Mesh.NumFaces() = %d, want in (0 %d)", got, m.NumFaces())
	}
	if got := len(ex.Polygons); got < a.NumProxies() {
		t.Errorf("len(ex.Polygons) = %d, want >= %d", got, a.NumProxies())
	}
	if got := len(ex.FaceProxies); got != ex.Mesh.NumFaces() {
		t.Errorf("len(ex.FaceProxies) = %d, want %d", got, ex.Mesh.NumFaces())
	}
	if got := len(ex.Planes); got != a.NumProxies() {
		t.Errorf("len(ex.Planes) = %d, want %d", got, a.NumProxies())
	}
	for i, an := range ex.Anchors {
		if !slices.IsSorted(an.Proxies) || len(an.Proxies) == 0 {
			t.Errorf("ex.Anchors[%d].Proxies = %v, want sorted and non-empty", i, an.Proxies)
		}
		if d := an.Position.Norm(); d > 1.5 {
			t.Errorf("|ex.Anchors[%d].Position| = %v, want near the unit sphere", i, d)
		}
	}
	for _, p := range ex.Polygons {
		if len(p.Anchors) < 2 {
			t.Errorf("polygon of proxy %d has %d anchors, want >= 2", p.Proxy, len(p.Anchors))
		}
	}
}

func TestExtractMesh_Hole(t *testing.T) {
	m := mustNewGrid(t, 4, 4)
	a := mustNewL2(t, m)
	// Proxy 1 is the central 2x2 cells, proxy 0 the ring around them.
	mustAssign(t, a, gridLabels(4, 4, func(i, j int) int {
		if i >= 1 && i <= 2 && j >= 1 && j <= 2 {
			return 1
		}
		return 0
	}))

	ok, err := a.ExtractMesh()
	if err != nil || !ok {
		t.Fatalf("a.ExtractMesh() = %v, %v, want true, nil", ok, err)
	}
	ex := a.Extraction()

	var vertices []int
	for _, an := range ex.Anchors {
		vertices = append(vertices, an.Vertex)
	}
	if diff := cmp.Diff([]int{0, 4, 6, 8, 16, 18, 20, 24}, vertices); diff != "" {
		t.Errorf("anchor vertices mismatch (-want +got):\n%s", diff)
	}
	if got := len(ex.Polygons); got != 3 {
		t.Errorf("len(ex.Polygons) = %d, want 3", got)
	}

	areas := make([]float64, 2)
	for f, px := range ex.FaceProxies {
		areas[px] += ex.Mesh.FaceArea(f)
		if n := ex.Mesh.FaceNormal(f); n.Z < 1-1e-9 {
			t.Errorf("ex.Mesh.FaceNormal(%d) = %v, want +z", f, n)
		}
	}
	if diff := cmp.Diff([]float64{12, 4}, areas, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("area per proxy mismatch (-want +got):\n%s", diff)
	}
	if got, want := ex.Mesh.Area(), m.Area(); math.Abs(got-want) > 1e-9 {
		t.Errorf("ex.Mesh.Area() = %v, want %v", got, want)
	}
	if ex.DegenerateFaces != 0 {
		t.Errorf("ex.DegenerateFaces = %d, want 0", ex.DegenerateFaces)
	}
}

func TestExtractMesh_ClosedSingleProxy(t *testing.T) {
	a := mustNewL21(t, mustNewSphere(t, 50))
	mustSeed(t, a, Incremental, 1)

	ok, err := a.ExtractMesh()
	if ok || err != nil {
		t.Errorf("a.ExtractMesh() = %v, %v, want false, nil", ok, err)
	}
	if a.Extraction() != nil {
		t.Errorf("a.Extraction() = %v, want nil", a.Extraction())
	}
}

func TestExtractMesh_DihedralAngle(t *testing.T) {
	m := mustNewRoof(t)
	labels := gridLabels(6, 4, func(i, _ int) int {
		if i < 3 {
			return 0
		}
		return 1
	})

	extract := func(dihedral bool) []int {
		a := mustNewL2(t, m)
		mustAssign(t, a, labels)
		ok, err := a.ExtractMesh(WithSubdivisionRatio(100), WithDihedralAngle(dihedral))
		if err != nil || !ok {
			t.Fatalf("a.ExtractMesh(...) = %v, %v, want true, nil", ok, err)
		}
		var vertices []int
		for _, an := range a.Extraction().Anchors {
			vertices = append(vertices, an.Vertex)
		}
		return vertices
	}

	// Both ridge ends, plus one far corner per side.
	without := extract(false)
	if len(without) != 4 {
		t.Fatalf("anchors without dihedral split = %v, want 4", without)
	}
	with := extract(true)
	if len(with) != 5 {
		t.Fatalf("anchors with dihedral split = %v, want 5", with)
	}

	for _, v := range without {
		if !slices.Contains(with, v) {
			t.Errorf("anchor %d lost by the dihedral split", v)
		}
	}
	for _, v := range with {
		if slices.Contains(without, v) {
			continue
		}
		if p := m.Vertices[v]; p.X != 3 || p.Y <= 0 || p.Y >= 4 {
			t.Errorf("dihedral anchor at %v, want inside the ridge x = 3", p)
		}
	}
}

func TestExtraction_DroppedOnChange(t *testing.T) {
	m := mustNewSphere(t, 100)
	tests := []struct {
		name   string
		change func(a *Approximation[r3.Vector]) error
	}{
		{"run", func(a *Approximation[r3.Vector]) error {
			return a.Run(1)
		}},
		{"add", func(a *Approximation[r3.Vector]) error {
			_, err := a.AddToFurthestProxies(1, 0)
			return err
		}},
		{"teleport", func(a *Approximation[r3.Vector]) error {
			_, err := a.TeleportProxies(1, 0, false)
			return err
		}},
		{"split", func(a *Approximation[r3.Vector]) error {
			_, err := a.Split(0, 2, 1)
			return err
		}},
		{"reseed", func(a *Approximation[r3.Vector]) error {
			_, err := a.InitializeSeeds(Random, WithMaxProxies(4))
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustNewL21(t, m)
			mustSeed(t, a, Incremental, 6)
			if ok, err := a.ExtractMesh(); err != nil || !ok {
				t.Fatalf("a.ExtractMesh() = %v, %v, want true, nil", ok, err)
			}

			if err := tt.change(a); err != nil {
				t.Fatalf("change error = %v, want nil", err)
			}
			if a.Extraction() != nil {
				t.Errorf("a.Extraction() = %v, want nil", a.Extraction())
			}
		})
	}

	a := mustNewL21(t, m)
	mustSeed(t, a, Incremental, 6)
	if ok, err := a.ExtractMesh(); err != nil || !ok {
		t.Fatalf("a.ExtractMesh() = %v, %v, want true, nil", ok, err)
	}
	if err := a.Run(-1); err == nil {
		t.Fatalf("a.Run(-1) error = nil, want error")
	}
	if a.Extraction() == nil {
		t.Errorf("a.Extraction() = nil after a failed Run, want the previous extraction")
	}
}

func TestExtractMesh_NoProxiesAfterFailedSeed(t *testing.T) {
	a := mustNewL21(t, mustNewGrid(t, 1, 1))
	if _, err := a.InitializeSeeds(Random, WithMaxProxies(0)); err == nil {
		t.Fatalf("a.InitializeSeeds(Random, WithMaxProxies(0)) error = nil, want error")
	}
	if ok, err := a.ExtractMesh(); ok || err == nil {
		t.Errorf("a.ExtractMesh() = %v, %v, want false, error", ok, err)
	}
}

// Helpers of the extractor

func TestOptimizeAnchor(t *testing.T) {
	planes := []Plane{
		{Normal: r3.Vector{X: 1}},
		{Normal: r3.Vector{Z: 1}},
	}
	v := r3.Vector{X: 0.1, Y: 0.5, Z: 0.2}

	got := optimizeAnchor(v, []int{0, 1}, planes)
	want := r3.Vector{X: 0.01 / 1.1, Y: 0.5, Z: 0.02 / 1.1}
	if d := got.Sub(want).Norm(); d > 1e-12 {
		t.Errorf("optimizeAnchor(%v, ...) = %v, want %v", v, got, want)
	}
}

func TestSegmentDistance(t *testing.T) {
	a, b := r3.Vector{}, r3.Vector{X: 2}
	tests := []struct {
		p    r3.Vector
		want float64
	}{
		{r3.Vector{X: 1, Y: 1}, 1},
		{r3.Vector{X: -3}, 3},
		{r3.Vector{X: 2, Z: 2}, 2},
		{r3.Vector{X: 1}, 0},
	}
	for _, tt := range tests {
		if got := segmentDistance(tt.p, a, b); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("segmentDistance(%v, %v, %v) = %v, want %v", tt.p, a, b, got, tt.want)
		}
	}
	if got := segmentDistance(r3.Vector{Y: 2}, a, a); got != 2 {
		t.Errorf("segmentDistance on a point chord = %v, want 2", got)
	}
}

func TestDihedralAngle(t *testing.T) {
	p := Plane{Normal: r3.Vector{Z: 1}}
	q := Plane{Normal: r3.Vector{X: 1}}
	if got := dihedralAngle(p, q); math.Abs(got-math.Pi/2) > 1e-12 {
		t.Errorf("dihedralAngle(+z, +x) = %v, want π/2", got)
	}
	if got := dihedralAngle(p, p); got != 0 {
		t.Errorf("dihedralAngle(+z, +z) = %v, want 0", got)
	}
}

func TestExtraction_AddFace(t *testing.T) {
	ex := &Extraction{Mesh: &trimesh.Mesh{
		Vertices: []r3.Vector{{}, {X: 1}, {Y: 1}},
	}}

	if err := ex.addFace([3]int{0, 1, 2}, 3); err != nil {
		t.Fatalf("ex.addFace([0 1 2], 3) error = %v, want nil", err)
	}
	if err := ex.addFace([3]int{0, 2, 0}, 4); err != nil {
		t.Fatalf("ex.addFace([0 2 0], 4) error = %v, want nil", err)
	}
	if err := ex.addFace([3]int{0, 1, 5}, 4); !errors.Is(err, trimesh.ErrVertexIndex) {
		t.Errorf("ex.addFace([0 1 5], 4) error = %v, want %v", err, trimesh.ErrVertexIndex)
	}

	if ex.DegenerateFaces != 1 {
		t.Errorf("ex.DegenerateFaces = %d, want 1", ex.DegenerateFaces)
	}
	if diff := cmp.Diff([]int{3}, ex.FaceProxies); diff != "" {
		t.Errorf("ex.FaceProxies mismatch (-want +got):\n%s", diff)
	}
	if got := ex.Mesh.NumFaces(); got != 1 {
		t.Errorf("ex.Mesh.NumFaces() = %d, want 1", got)
	}
}

// Triangulation

func TestTriangulateRegion(t *testing.T) {
	plane := Plane{Normal: r3.Vector{Z: 1}}
	square := func(x0, y0, x1, y1 float64) []r3.Vector {
		return []r3.Vector{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
	}
	tests := []struct {
		name     string
		vertices []r3.Vector
		r        region
		wantTris int
		wantArea float64
	}{
		{
			name:     "triangle",
			vertices: []r3.Vector{{}, {X: 1}, {Y: 1}},
			r:        region{outer: []int{0, 1, 2}},
			wantTris: 1, wantArea: 0.5,
		},
		{
			name:     "square",
			vertices: square(0, 0, 1, 1),
			r:        region{outer: []int{0, 1, 2, 3}},
			wantTris: 2, wantArea: 1,
		},
		{
			name: "concave",
			vertices: []r3.Vector{
				{}, {X: 2}, {X: 2, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2}, {Y: 2},
			},
			r:        region{outer: []int{0, 1, 2, 3, 4, 5}},
			wantTris: 4, wantArea: 3,
		},
		{
			name:     "clockwise",
			vertices: square(0, 0, 1, 1),
			r:        region{outer: []int{3, 2, 1, 0}},
			wantTris: 2, wantArea: 1,
		},
		{
			name:     "hole",
			vertices: append(square(0, 0, 4, 4), square(1, 1, 3, 3)...),
			r:        region{outer: []int{0, 1, 2, 3}, holes: [][]int{{7, 6, 5, 4}}},
			wantTris: 8, wantArea: 12,
		},
		{
			name:     "too short hole",
			vertices: append(square(0, 0, 1, 1), r3.Vector{X: 0.5, Y: 0.5}),
			r:        region{outer: []int{0, 1, 2, 3}, holes: [][]int{{4}}},
			wantTris: 2, wantArea: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tris, err := triangulateRegion(tt.r, tt.vertices, plane)
			if err != nil {
				t.Fatalf("triangulateRegion(...) error = %v, want nil", err)
			}
			if len(tris) != tt.wantTris {
				t.Fatalf("len(triangulateRegion(...)) = %d, want %d", len(tris), tt.wantTris)
			}

			var area float64
			for _, tri := range tris {
				a, b, c := tt.vertices[tri[0]], tt.vertices[tri[1]], tt.vertices[tri[2]]
				n := b.Sub(a).Cross(c.Sub(a))
				if n.Z <= 0 {
					t.Errorf("triangle %v is not counter-clockwise", tri)
				}
				area += n.Norm() / 2
			}
			if math.Abs(area-tt.wantArea) > 1e-12 {
				t.Errorf("triangulated area = %v, want %v", area, tt.wantArea)
			}
		})
	}
}

func TestGroupRegions(t *testing.T) {
	plane := Plane{Normal: r3.Vector{Z: 1}}
	var vertices []r3.Vector
	ring := func(x0, y0, x1, y1 float64, ccw bool) []int {
		first := len(vertices)
		vertices = append(vertices,
			r3.Vector{X: x0, Y: y0}, r3.Vector{X: x1, Y: y0},
			r3.Vector{X: x1, Y: y1}, r3.Vector{X: x0, Y: y1})
		poly := []int{first, first + 1, first + 2, first + 3}
		if !ccw {
			slices.Reverse(poly)
		}
		return poly
	}

	large := ring(0, 0, 10, 10, true)
	small := ring(20, 0, 22, 2, true)
	inSmall := ring(20.5, 0.5, 21.5, 1.5, false)
	inLarge := ring(1, 1, 2, 2, false)
	outside := ring(30, 30, 31, 31, false)
	short := []int{0, 1}

	got := groupRegions([][]int{inSmall, large, short, inLarge, small, outside}, vertices, plane)
	want := []region{
		{outer: large, holes: [][]int{inLarge, outside}},
		{outer: small, holes: [][]int{inSmall}},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(region{})); diff != "" {
		t.Errorf("groupRegions(...) mismatch (-want +got):\n%s", diff)
	}

	if got := groupRegions([][]int{inLarge}, vertices, plane); got != nil {
		t.Errorf("groupRegions(holes only) = %v, want nil", got)
	}
}
