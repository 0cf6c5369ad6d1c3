// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package wrapper binds shape approximation engines to a mesh and exposes one
// control surface for whichever metric is active, along with per-proxy
// display colors.

package wrapper

import (
	"errors"
	"fmt"
	"image/color"
	"math/rand"
	"sync"

	"github.com/2dChan/vsa"
	"github.com/2dChan/vsa/trimesh"
	"github.com/golang/geo/r3"
)

const (
	defaultRNGSeed int64 = 1
	// Relaxation rounds run after a teleport, before it is tested.
	teleportRelaxations = 5
)

var (
	ErrUnsupportedMetric = errors.New("wrapper: unsupported metric")
	ErrNoMesh            = errors.New("wrapper: no mesh set")
)

// approximator is the metric-independent surface of vsa.Approximation.
type approximator interface {
	InitializeSeeds(method vsa.SeedingMethod, setters ...vsa.SeedOption) (int, error)
	Run(iterations int) error
	AddToFurthestProxies(n, relaxations int) (int, error)
	TeleportProxies(n, relaxations int, ifTest bool) (int, error)
	Split(px, n, relaxations int) (bool, error)
	ExtractMesh(setters ...vsa.ExtractOption) (bool, error)
	NumProxies() int
	ProxyIDs() []int
	FaceProxies() []int
	TotalError() float64
	Extraction() *vsa.Extraction
}

type Options struct {
	Rand *rand.Rand
}

type Option func(*Options) error

// WithRand sets the random source for seeding and proxy colors.
func WithRand(r *rand.Rand) Option {
	return func(o *Options) error {
		if r == nil {
			return errors.New("WithRand: rand must be non-nil")
		}
		o.Rand = r
		return nil
	}
}

// WithSeed seeds a new random source. A zero seed selects the default seed.
func WithSeed(seed int64) Option {
	return func(o *Options) error {
		if seed == 0 {
			seed = defaultRNGSeed
		}
		//nolint:gosec
		o.Rand = rand.New(rand.NewSource(seed))
		return nil
	}
}

// Wrapper holds one engine per metric for the current mesh and dispatches to
// the active one. It is safe for concurrent use; every method is a critical
// section.
type Wrapper struct {
	mu sync.Mutex

	rng     *rand.Rand
	mesh    *trimesh.Mesh
	engines map[Metric]approximator
	metric  Metric
	active  approximator

	// NOTE: Keyed by proxy ID.
	colors      map[int]color.RGBA
	initialized bool
}

func New(setters ...Option) (*Wrapper, error) {
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
	return &Wrapper{
		rng:    opts.Rand,
		metric: L21,
		colors: make(map[int]color.RGBA),
	}, nil
}

// SetMesh rebuilds every engine for m, computing the face attributes once for
// all of them. On error the previous mesh and engines are kept.
func (w *Wrapper) SetMesh(m *trimesh.Mesh) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if m == nil {
		return ErrNoMesh
	}
	attrs := trimesh.ComputeFaceAttributes(m)
	shared := vsa.WithFaceAttributes(attrs)

	l21, err := vsa.NewApproximation[r3.Vector](m, vsa.NewL21Metric(attrs), shared, vsa.WithSeed(w.rng.Int63()))
	if err != nil {
		return fmt.Errorf("SetMesh: %w", err)
	}
	l2, err := vsa.NewApproximation[vsa.Plane](m, vsa.NewL2Metric(m, attrs), shared, vsa.WithSeed(w.rng.Int63()))
	if err != nil {
		return fmt.Errorf("SetMesh: %w", err)
	}
	compact, err := vsa.NewApproximation[r3.Vector](m, vsa.NewCompactMetric(attrs.Centers, attrs.Areas), shared,
		vsa.WithSeed(w.rng.Int63()))
	if err != nil {
		return fmt.Errorf("SetMesh: %w", err)
	}

	w.mesh = m
	w.engines = map[Metric]approximator{
		L21:     l21,
		L2:      l2,
		Compact: compact,
	}
	w.active = w.engines[w.metric]
	w.resetDisplay()
	return nil
}

// SetMetric selects the active engine. Engines keep their proxies, but the
// wrapper must be seeded again before other operations.
func (w *Wrapper) SetMetric(m Metric) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !m.Valid() {
		return fmt.Errorf("%w: %v", ErrUnsupportedMetric, m)
	}
	w.metric = m
	if w.engines != nil {
		w.active = w.engines[m]
	}
	w.resetDisplay()
	return nil
}

func (w *Wrapper) resetDisplay() {
	w.colors = make(map[int]color.RGBA)
	w.initialized = false
}

// InitializeSeeds seeds the active engine. Zero maxProxies or minErrorDrop
// leave that stop criterion unset.
func (w *Wrapper) InitializeSeeds(method vsa.SeedingMethod, maxProxies int, minErrorDrop float64,
	relaxations int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active == nil {
		return 0, ErrNoMesh
	}
	setters := []vsa.SeedOption{vsa.WithRelaxations(relaxations)}
	if maxProxies != 0 {
		setters = append(setters, vsa.WithMaxProxies(maxProxies))
	}
	if minErrorDrop != 0 {
		setters = append(setters, vsa.WithMinErrorDrop(minErrorDrop))
	}

	n, err := w.active.InitializeSeeds(method, setters...)
	if err != nil {
		return 0, err
	}
	w.colors = make(map[int]color.RGBA)
	w.syncColors()
	w.initialized = true
	return n, nil
}

func (w *Wrapper) Run(iterations int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ready(); err != nil {
		return err
	}
	return w.active.Run(iterations)
}

// AddOneProxy splits the worst face off the worst proxy. It returns 0 when
// every proxy has a single face.
func (w *Wrapper) AddOneProxy() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ready(); err != nil {
		return 0, err
	}
	n, err := w.active.AddToFurthestProxies(1, 0)
	if err != nil {
		return 0, err
	}
	w.syncColors()
	return n, nil
}

// TeleportOneProxy moves one proxy if that lowers the total error.
func (w *Wrapper) TeleportOneProxy() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ready(); err != nil {
		return 0, err
	}
	n, err := w.active.TeleportProxies(1, teleportRelaxations, true)
	if err != nil {
		return 0, err
	}
	w.syncColors()
	return n, nil
}

func (w *Wrapper) Split(px, n, relaxations int) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ready(); err != nil {
		return false, err
	}
	ok, err := w.active.Split(px, n, relaxations)
	if err != nil || !ok {
		return false, err
	}
	w.syncColors()
	return true, nil
}

func (w *Wrapper) ExtractMesh(subdivisionRatio float64, relativeToChord, withDihedralAngle,
	optimizeAnchorLocation, pcaPlane bool) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ready(); err != nil {
		return false, err
	}
	return w.active.ExtractMesh(
		vsa.WithSubdivisionRatio(subdivisionRatio),
		vsa.WithRelativeToChord(relativeToChord),
		vsa.WithDihedralAngle(withDihedralAngle),
		vsa.WithOptimizeAnchorLocation(optimizeAnchorLocation),
		vsa.WithPCAPlane(pcaPlane),
	)
}

func (w *Wrapper) NumProxies() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active == nil {
		return 0
	}
	return w.active.NumProxies()
}

func (w *Wrapper) Metric() Metric {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metric
}

// Initialized reports whether the active engine was seeded since the last
// SetMesh or SetMetric.
func (w *Wrapper) Initialized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.initialized
}

func (w *Wrapper) Mesh() *trimesh.Mesh {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mesh
}

// FaceProxies returns the proxy position of every face of the mesh.
func (w *Wrapper) FaceProxies() []int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active == nil {
		return nil
	}
	return w.active.FaceProxies()
}

func (w *Wrapper) TotalError() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active == nil {
		return 0
	}
	return w.active.TotalError()
}

// Extraction returns the last extracted mesh of the active engine, or nil.
func (w *Wrapper) Extraction() *vsa.Extraction {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active == nil {
		return nil
	}
	return w.active.Extraction()
}

// ProxyColor returns the display color of the proxy at position i.
func (w *Wrapper) ProxyColor(i int) (color.RGBA, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ready(); err != nil {
		return color.RGBA{}, err
	}
	ids := w.active.ProxyIDs()
	if i < 0 || i >= len(ids) {
		return color.RGBA{}, fmt.Errorf("%w: %d not in [0 %d)", vsa.ErrInvalidProxyIndex, i, len(ids))
	}
	return w.colors[ids[i]], nil
}

// ProxyColors returns the display color of every proxy, by position.
func (w *Wrapper) ProxyColors() []color.RGBA {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active == nil || !w.initialized {
		return nil
	}
	ids := w.active.ProxyIDs()
	colors := make([]color.RGBA, len(ids))
	for i, id := range ids {
		colors[i] = w.colors[id]
	}
	return colors
}

func (w *Wrapper) ready() error {
	if w.active == nil {
		return ErrNoMesh
	}
	if !w.initialized {
		return vsa.ErrNotSeeded
	}
	return nil
}

// syncColors draws a color for every new proxy ID and forgets removed ones.
func (w *Wrapper) syncColors() {
	ids := w.active.ProxyIDs()
	colors := make(map[int]color.RGBA, len(ids))
	for _, id := range ids {
		c, ok := w.colors[id]
		if !ok {
			c = randomColor(w.rng)
		}
		colors[id] = c
	}
	w.colors = colors
}
