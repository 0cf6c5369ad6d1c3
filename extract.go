// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package vsa

import (
	"fmt"
	"math"
	"slices"

	"github.com/2dChan/vsa/trimesh"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

const (
	// Chords between proxies whose planes meet at a larger angle are always
	// subdivided with WithDihedralAngle.
	dihedralAngleThreshold = math.Pi / 4
	// Weight of the pull towards the input vertex when optimizing anchors.
	anchorRegularization = 0.1
)

// Anchor is a vertex of the extracted mesh.
type Anchor struct {
	// Vertex is the input mesh vertex the anchor sits on.
	Vertex   int
	Position r3.Vector
	// Proxies are the positions of the proxies incident to Vertex, ascending.
	Proxies []int
}

// Polygon is one boundary loop of a proxy as a cycle of anchor indices.
type Polygon struct {
	Proxy   int
	Anchors []int
}

// Extraction is the simplified mesh built from a proxy partition. Vertex i of
// Mesh is Anchors[i].
type Extraction struct {
	Mesh *trimesh.Mesh
	// FaceProxies holds the proxy position of every face of Mesh.
	FaceProxies []int
	Anchors     []Anchor
	Polygons    []Polygon
	Planes      []Plane
	// DegenerateFaces counts triangles dropped because two of their corners
	// are the same anchor, which happens on self-touching boundaries.
	DegenerateFaces int
}

// addFace appends triangle t of proxy to Mesh.
func (ex *Extraction) addFace(t [3]int, proxy int) error {
	if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
		ex.DegenerateFaces++
		return nil
	}
	if _, err := ex.Mesh.AddFace(t[0], t[1], t[2]); err != nil {
		return fmt.Errorf("vsa: proxy %d: %w", proxy, err)
	}
	ex.FaceProxies = append(ex.FaceProxies, proxy)
	return nil
}

// ExtractMesh builds the simplified mesh of the current partition. It returns
// false with ErrNotSeeded before seeding, and false when there are no proxies
// or no proxy boundary to build faces from, as on a closed mesh covered by a
// single proxy. The result is available from Extraction.
func (a *Approximation[S]) ExtractMesh(setters ...ExtractOption) (bool, error) {
	opts := defaultExtractOptions()
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return false, err
		}
	}
	if !a.seeded {
		return false, ErrNotSeeded
	}
	if len(a.proxies) == 0 {
		return false, nil
	}

	ex, err := a.extract(opts)
	if err != nil {
		return false, err
	}
	if ex.Mesh.NumFaces() == 0 {
		return false, nil
	}
	a.extraction = ex
	return true, nil
}

type boundaryLoop struct {
	proxy     int
	halfedges []int
}

type extractor struct {
	topo      *trimesh.Topology
	mesh      *trimesh.Mesh
	faceProxy []int
	planes    []Plane
	opts      ExtractOptions
	avgEdge   float64

	isAnchor  []bool
	chordDone []bool
	// NOTE: Halfedges on or opposite a loop with fewer than three anchors.
	sparse []bool
}

func (a *Approximation[S]) extract(opts ExtractOptions) (*Extraction, error) {
	planes := make([]Plane, len(a.proxies))
	for i, p := range a.proxies {
		var err error
		if opts.PCAPlane {
			planes[i], err = fitPlanePCA(a.mesh, p.faces, a.attrs.Areas, a.attrs.Normals)
		} else {
			planes[i], err = fitPlaneNormal(p.faces, a.attrs)
		}
		if err != nil {
			return nil, err
		}
	}

	ext := &extractor{
		topo:      a.topo,
		mesh:      a.mesh,
		faceProxy: a.faceProxy,
		planes:    planes,
		opts:      opts,
		avgEdge:   averageEdgeLength(a.topo),
		isAnchor:  make([]bool, a.mesh.NumVertices()),
		chordDone: make([]bool, a.topo.NumHalfedges()),
		sparse:    make([]bool, a.topo.NumHalfedges()),
	}

	ext.findAnchors()
	loops, err := ext.traceLoops()
	if err != nil {
		return nil, err
	}
	for _, l := range loops {
		ext.ensureAnchors(l)
	}
	for _, l := range loops {
		if ext.countAnchors(l) < 3 {
			ext.markSparse(l)
		}
	}
	for _, l := range loops {
		ext.subdivideLoop(l)
	}

	anchorOf := make([]int, a.mesh.NumVertices())
	ex := &Extraction{
		Mesh:   &trimesh.Mesh{},
		Planes: planes,
	}
	for v, ok := range ext.isAnchor {
		anchorOf[v] = -1
		if !ok {
			continue
		}
		proxies := ext.incidentProxies(v)
		pos := a.mesh.Vertices[v]
		if opts.OptimizeAnchorLocation {
			pos = optimizeAnchor(pos, proxies, planes)
		}
		anchorOf[v] = ex.Mesh.AddVertex(pos)
		ex.Anchors = append(ex.Anchors, Anchor{Vertex: v, Position: pos, Proxies: proxies})
	}

	ex.Polygons = make([]Polygon, 0, len(loops))
	polys := make([][][]int, len(a.proxies))
	for _, l := range loops {
		var poly []int
		for _, h := range l.halfedges {
			if ai := anchorOf[a.topo.Source(h)]; ai >= 0 {
				poly = append(poly, ai)
			}
		}
		ex.Polygons = append(ex.Polygons, Polygon{Proxy: l.proxy, Anchors: poly})
		polys[l.proxy] = append(polys[l.proxy], poly)
	}

	for px, pp := range polys {
		for _, r := range groupRegions(pp, ex.Mesh.Vertices, planes[px]) {
			tris, err := triangulateRegion(r, ex.Mesh.Vertices, planes[px])
			if err != nil {
				return nil, fmt.Errorf("vsa: proxy %d: %w", px, err)
			}
			for _, t := range tris {
				if err := ex.addFace(t, px); err != nil {
					return nil, err
				}
			}
		}
	}
	return ex, nil
}

func (e *extractor) isBoundary(h int) bool {
	o := e.topo.Opposite[h]
	return o < 0 || e.faceProxy[trimesh.HalfedgeFace(o)] != e.faceProxy[trimesh.HalfedgeFace(h)]
}

func (e *extractor) incidentProxies(v int) []int {
	var proxies []int
	for _, f := range e.topo.IncidentFaces(v) {
		if p := e.faceProxy[f]; !slices.Contains(proxies, p) {
			proxies = append(proxies, p)
		}
	}
	slices.Sort(proxies)
	return proxies
}

// findAnchors marks vertices incident to at least three proxies, counting the
// mesh border as one.
func (e *extractor) findAnchors() {
	for v := range e.isAnchor {
		if len(e.topo.IncidentFaces(v)) == 0 {
			continue
		}
		n := len(e.incidentProxies(v))
		if e.topo.IsBorderVertex(v) {
			n++
		}
		e.isAnchor[v] = n >= 3
	}
}

// traceLoops walks the proxy boundaries. Each loop keeps its proxy on the left.
func (e *extractor) traceLoops() ([]boundaryLoop, error) {
	numHalfedges := e.topo.NumHalfedges()
	visited := make([]bool, numHalfedges)
	var loops []boundaryLoop
	for start := range numHalfedges {
		if visited[start] || !e.isBoundary(start) {
			continue
		}
		l := boundaryLoop{proxy: e.faceProxy[trimesh.HalfedgeFace(start)]}
		h := start
		for {
			visited[h] = true
			l.halfedges = append(l.halfedges, h)
			if len(l.halfedges) > numHalfedges {
				return nil, ErrBoundaryTrace
			}

			next := trimesh.NextHalfedge(h)
			for steps := 0; !e.isBoundary(next); steps++ {
				if steps > numHalfedges {
					return nil, ErrBoundaryTrace
				}
				next = trimesh.NextHalfedge(e.topo.Opposite[next])
			}
			h = next
			if h == start {
				break
			}
			if visited[h] {
				return nil, ErrBoundaryTrace
			}
		}
		loops = append(loops, l)
	}
	return loops, nil
}

func (e *extractor) countAnchors(l boundaryLoop) int {
	count := 0
	for _, h := range l.halfedges {
		if e.isAnchor[e.topo.Source(h)] {
			count++
		}
	}
	return count
}

// ensureAnchors gives every loop at least two anchors: its first vertex and
// the loop vertex furthest from it.
func (e *extractor) ensureAnchors(l boundaryLoop) {
	if e.countAnchors(l) >= 2 {
		return
	}
	first := -1
	for _, h := range l.halfedges {
		if v := e.topo.Source(h); e.isAnchor[v] {
			first = v
			break
		}
	}
	if first < 0 {
		first = e.topo.Source(l.halfedges[0])
		e.isAnchor[first] = true
	}

	origin := e.mesh.Vertices[first]
	far, farDist := -1, 0.0
	for _, h := range l.halfedges {
		v := e.topo.Source(h)
		if d := e.mesh.Vertices[v].Sub(origin).Norm2(); d > farDist {
			far, farDist = v, d
		}
	}
	if far >= 0 {
		e.isAnchor[far] = true
	}
}

func (e *extractor) markSparse(l boundaryLoop) {
	for _, h := range l.halfedges {
		e.sparse[h] = true
		if o := e.topo.Opposite[h]; o >= 0 {
			e.sparse[o] = true
		}
	}
}

// subdivideLoop splits the loop into chords between consecutive anchors and
// subdivides each chord not already handled from the other side.
func (e *extractor) subdivideLoop(l boundaryLoop) {
	n := len(l.halfedges)
	start := -1
	for i, h := range l.halfedges {
		if e.isAnchor[e.topo.Source(h)] {
			start = i
			break
		}
	}
	if start < 0 {
		return
	}

	var chord []int
	for i := range n {
		h := l.halfedges[(start+i)%n]
		chord = append(chord, h)
		if !e.isAnchor[e.topo.Target(h)] {
			continue
		}
		e.subdivideChord(chord, l.proxy)
		chord = chord[:0]
	}
	if len(chord) > 0 {
		e.subdivideChord(chord, l.proxy)
	}
}

// subdivideChord splits a chord of a loop with fewer than three anchors at
// least once unless it is straight. With WithDihedralAngle a chord between
// sharply angled proxies is always split.
func (e *extractor) subdivideChord(chord []int, proxy int) {
	if e.chordDone[chord[0]] {
		return
	}
	for _, h := range chord {
		e.chordDone[h] = true
		if o := e.topo.Opposite[h]; o >= 0 {
			e.chordDone[o] = true
		}
	}

	path := make([]int, 0, len(chord)+1)
	for _, h := range chord {
		path = append(path, e.topo.Source(h))
	}
	path = append(path, e.topo.Target(chord[len(chord)-1]))

	floor := math.Inf(1)
	if e.sparse[chord[0]] {
		floor = 0
	}
	if e.opts.WithDihedralAngle {
		if o := e.topo.Opposite[chord[0]]; o >= 0 {
			other := e.faceProxy[trimesh.HalfedgeFace(o)]
			if dihedralAngle(e.planes[proxy], e.planes[other]) > dihedralAngleThreshold {
				floor = math.Inf(-1)
			}
		}
	}
	e.subdividePath(path, floor)
}

// subdividePath splits the path at its vertex furthest from the chord while
// that distance exceeds the threshold. The first split also happens when the
// distance exceeds floor.
func (e *extractor) subdividePath(path []int, floor float64) {
	if len(path) < 3 {
		return
	}
	a := e.mesh.Vertices[path[0]]
	b := e.mesh.Vertices[path[len(path)-1]]

	far, farDist := -1, -1.0
	for i := 1; i < len(path)-1; i++ {
		if d := segmentDistance(e.mesh.Vertices[path[i]], a, b); d > farDist {
			far, farDist = i, d
		}
	}

	threshold := e.opts.SubdivisionRatio * e.avgEdge
	if e.opts.RelativeToChord {
		length := a.Distance(b)
		if length == 0 {
			length = pathLength(e.mesh.Vertices, path)
		}
		threshold = e.opts.SubdivisionRatio * length
	}
	if farDist <= min(threshold, floor) {
		return
	}

	e.isAnchor[path[far]] = true
	e.subdividePath(path[:far+1], math.Inf(1))
	e.subdividePath(path[far:], math.Inf(1))
}

func optimizeAnchor(v r3.Vector, proxies []int, planes []Plane) r3.Vector {
	lhs := mat.NewSymDense(3, nil)
	rhs := mat.NewVecDense(3, []float64{
		anchorRegularization * v.X,
		anchorRegularization * v.Y,
		anchorRegularization * v.Z,
	})
	for i := range 3 {
		lhs.SetSym(i, i, anchorRegularization)
	}
	for _, p := range proxies {
		n := planes[p].Normal
		d := n.Dot(planes[p].Point)
		nv := [3]float64{n.X, n.Y, n.Z}
		for i := range 3 {
			for j := i; j < 3; j++ {
				lhs.SetSym(i, j, lhs.At(i, j)+nv[i]*nv[j])
			}
			rhs.SetVec(i, rhs.AtVec(i)+nv[i]*d)
		}
	}

	var x mat.VecDense
	if err := x.SolveVec(lhs, rhs); err != nil {
		return v
	}
	return r3.Vector{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}
}

func dihedralAngle(p, q Plane) float64 {
	cos := p.Normal.Dot(q.Normal)
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}

func segmentDistance(p, a, b r3.Vector) float64 {
	ab := b.Sub(a)
	l2 := ab.Norm2()
	if l2 == 0 {
		return p.Distance(a)
	}
	t := math.Max(0, math.Min(1, p.Sub(a).Dot(ab)/l2))
	return p.Distance(a.Add(ab.Mul(t)))
}

func pathLength(vertices []r3.Vector, path []int) float64 {
	var length float64
	for i := 1; i < len(path); i++ {
		length += vertices[path[i-1]].Distance(vertices[path[i]])
	}
	return length
}

func averageEdgeLength(tp *trimesh.Topology) float64 {
	m := tp.Mesh()
	var sum float64
	count := 0
	for h, o := range tp.Opposite {
		if o >= 0 && o < h {
			continue
		}
		sum += m.Vertices[tp.Source(h)].Distance(m.Vertices[tp.Target(h)])
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
