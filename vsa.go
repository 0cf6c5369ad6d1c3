// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package vsa implements variational shape approximation of triangle meshes:
// faces are clustered into proxies by Lloyd relaxation under a pluggable
// metric, and the converged partition is extracted as a simplified mesh.

package vsa

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/2dChan/vsa/trimesh"
)

type proxy[S any] struct {
	id    int
	seed  int
	shape S
	// NOTE: Ascending face indices.
	faces []int
	err   float64
}

func (p *proxy[S]) clone() *proxy[S] {
	c := *p
	c.faces = slices.Clone(p.faces)
	return &c
}

// Approximation is the approximation engine for one mesh and one metric.
// It is not safe for concurrent use.
type Approximation[S any] struct {
	mesh   *trimesh.Mesh
	topo   *trimesh.Topology
	attrs  trimesh.FaceAttributes
	metric Metric[S]
	rng    *rand.Rand

	proxies   []*proxy[S]
	faceProxy []int
	faceErr   []float64
	nextID    int
	seeded    bool

	extraction *Extraction
}

// NewApproximation binds metric to m. The mesh must be edge-manifold and
// consistently oriented.
func NewApproximation[S any](m *trimesh.Mesh, metric Metric[S], setters ...Option) (*Approximation[S], error) {
	opts := Options{}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	if opts.Rand == nil {
		//nolint:gosec
		opts.Rand = rand.New(rand.NewSource(defaultRNGSeed))
	}
	if metric == nil {
		return nil, errors.New("vsa: metric must be non-nil")
	}
	if m == nil || m.NumFaces() == 0 {
		return nil, ErrEmptyMesh
	}

	numFaces := m.NumFaces()
	attrs := opts.FaceAttributes
	if attrs == nil {
		computed := trimesh.ComputeFaceAttributes(m)
		attrs = &computed
	}
	if len(attrs.Centers) != numFaces || len(attrs.Areas) != numFaces || len(attrs.Normals) != numFaces {
		return nil, fmt.Errorf("vsa: face attributes cover %d faces, mesh has %d", len(attrs.Areas), numFaces)
	}

	topo, err := trimesh.NewTopology(m)
	if err != nil {
		return nil, fmt.Errorf("vsa: %w", err)
	}

	a := &Approximation[S]{
		mesh:      m,
		topo:      topo,
		attrs:     *attrs,
		metric:    metric,
		rng:       opts.Rand,
		faceProxy: make([]int, numFaces),
		faceErr:   make([]float64, numFaces),
	}
	a.reset()
	return a, nil
}

func (a *Approximation[S]) Mesh() *trimesh.Mesh {
	return a.mesh
}

func (a *Approximation[S]) Seeded() bool {
	return a.seeded
}

func (a *Approximation[S]) NumProxies() int {
	return len(a.proxies)
}

// Proxy returns a view of the proxy at position i.
func (a *Approximation[S]) Proxy(i int) (Proxy[S], error) {
	if i < 0 || i >= len(a.proxies) {
		return Proxy[S]{}, fmt.Errorf("%w: %d not in [0 %d)", ErrInvalidProxyIndex, i, len(a.proxies))
	}
	return Proxy[S]{idx: i, a: a}, nil
}

// ProxyIDs returns the stable ID of each proxy, by position.
func (a *Approximation[S]) ProxyIDs() []int {
	ids := make([]int, len(a.proxies))
	for i, p := range a.proxies {
		ids[i] = p.id
	}
	return ids
}

// FaceProxies returns the proxy position of every face, -1 before seeding.
func (a *Approximation[S]) FaceProxies() []int {
	return slices.Clone(a.faceProxy)
}

// TotalError returns the sum of the fitting errors of all proxies.
func (a *Approximation[S]) TotalError() float64 {
	var sum float64
	for _, p := range a.proxies {
		sum += p.err
	}
	return sum
}

// Extraction returns the result of the last successful ExtractMesh, or nil.
func (a *Approximation[S]) Extraction() *Extraction {
	return a.extraction
}

// Proxy is a view of one proxy of an Approximation. It is invalidated by any
// operation that changes the proxy set.
type Proxy[S any] struct {
	idx int
	a   *Approximation[S]
}

// Index returns the position of the proxy.
func (p Proxy[S]) Index() int {
	return p.idx
}

// ID returns the stable identifier of the proxy. IDs are never reused by an
// Approximation.
func (p Proxy[S]) ID() int {
	return p.a.proxies[p.idx].id
}

func (p Proxy[S]) Shape() S {
	return p.a.proxies[p.idx].shape
}

// Seed returns the face the proxy was seeded from.
func (p Proxy[S]) Seed() int {
	return p.a.proxies[p.idx].seed
}

// Faces returns the member faces in ascending order.
func (p Proxy[S]) Faces() []int {
	return p.a.proxies[p.idx].faces
}

func (p Proxy[S]) NumFaces() int {
	return len(p.a.proxies[p.idx].faces)
}

// Error returns the fitting error accumulated over the member faces.
func (p Proxy[S]) Error() float64 {
	return p.a.proxies[p.idx].err
}

type state[S any] struct {
	proxies   []*proxy[S]
	faceProxy []int
	faceErr   []float64
	nextID    int
	seeded    bool
}

func (a *Approximation[S]) snapshot() state[S] {
	s := state[S]{
		proxies:   make([]*proxy[S], len(a.proxies)),
		faceProxy: slices.Clone(a.faceProxy),
		faceErr:   slices.Clone(a.faceErr),
		nextID:    a.nextID,
		seeded:    a.seeded,
	}
	for i, p := range a.proxies {
		s.proxies[i] = p.clone()
	}
	return s
}

func (a *Approximation[S]) restore(s state[S]) {
	a.proxies = s.proxies
	a.faceProxy = s.faceProxy
	a.faceErr = s.faceErr
	a.nextID = s.nextID
	a.seeded = s.seeded
}

// atomically runs fn and rolls the proxy set back if fn fails. On success the
// last extraction no longer matches the partition and is dropped.
func (a *Approximation[S]) atomically(fn func() error) error {
	s := a.snapshot()
	if err := fn(); err != nil {
		a.restore(s)
		return err
	}
	a.extraction = nil
	return nil
}

func (a *Approximation[S]) reset() {
	a.proxies = nil
	for f := range a.faceProxy {
		a.faceProxy[f] = -1
		a.faceErr[f] = 0
	}
	a.seeded = false
	a.extraction = nil
}

// newProxy appends a proxy seeded from face f and moves f into it.
func (a *Approximation[S]) newProxy(f int) error {
	shape, err := a.metric.Fit([]int{f})
	if err != nil {
		return err
	}
	if old := a.faceProxy[f]; old >= 0 {
		donor := a.proxies[old]
		donor.faces = removeSorted(donor.faces, f)
		donor.err -= a.faceErr[f]
	}

	p := &proxy[S]{
		id:    a.nextID,
		seed:  f,
		shape: shape,
		faces: []int{f},
	}
	a.nextID++
	a.proxies = append(a.proxies, p)
	a.faceProxy[f] = len(a.proxies) - 1
	a.faceErr[f] = a.metric.Error(f, shape)
	p.err = a.faceErr[f]
	return nil
}

// worstFace returns the face with the largest error among faces of proxies
// with at least two members, restricted to region when non-nil. Ties go to
// the lowest face index; -1 when no such face exists.
func (a *Approximation[S]) worstFace(region []int) int {
	best, bestErr := -1, math.Inf(-1)
	visit := func(f int) {
		p := a.faceProxy[f]
		if p < 0 || len(a.proxies[p].faces) < 2 {
			return
		}
		if a.faceErr[f] > bestErr {
			best, bestErr = f, a.faceErr[f]
		}
	}
	if region == nil {
		for f := range a.faceProxy {
			visit(f)
		}
	} else {
		for _, f := range region {
			visit(f)
		}
	}
	return best
}

func removeSorted(s []int, v int) []int {
	i, ok := slices.BinarySearch(s, v)
	if !ok {
		return s
	}
	return slices.Delete(s, i, i+1)
}
