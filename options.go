// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package vsa

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/2dChan/vsa/trimesh"
)

const (
	defaultRNGSeed          int64 = 1
	defaultRelaxations            = 5
	defaultMinErrorDrop           = 0.1
	defaultSubdivisionRatio       = 5.0
)

type Options struct {
	Rand           *rand.Rand
	FaceAttributes *trimesh.FaceAttributes
}

type Option func(*Options) error

// WithRand sets the random source used for seeding. The source is owned by the
// Approximation afterwards and must not be shared across goroutines.
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

// WithFaceAttributes reuses attributes already computed for the mesh, as when
// several engines share one mesh.
func WithFaceAttributes(attrs trimesh.FaceAttributes) Option {
	return func(o *Options) error {
		o.FaceAttributes = &attrs
		return nil
	}
}

type SeedOptions struct {
	MaxProxies   int
	MinErrorDrop float64
	Relaxations  int

	hasMaxProxies   bool
	hasMinErrorDrop bool
}

type SeedOption func(*SeedOptions) error

// WithMaxProxies stops seeding once n proxies exist.
func WithMaxProxies(n int) SeedOption {
	return func(o *SeedOptions) error {
		if n < 1 {
			return fmt.Errorf("WithMaxProxies: n must be positive, got %d", n)
		}
		o.MaxProxies = n
		o.hasMaxProxies = true
		return nil
	}
}

// WithMinErrorDrop stops seeding once adding proxies lowers the total error by
// less than drop, relative to the error of a single proxy.
func WithMinErrorDrop(drop float64) SeedOption {
	return func(o *SeedOptions) error {
		if drop <= 0 || drop >= 1 {
			return fmt.Errorf("WithMinErrorDrop: drop must be in (0 1), got %v", drop)
		}
		o.MinErrorDrop = drop
		o.hasMinErrorDrop = true
		return nil
	}
}

// WithRelaxations sets the relaxation rounds run after each seeding step.
func WithRelaxations(n int) SeedOption {
	return func(o *SeedOptions) error {
		if n < 0 {
			return fmt.Errorf("WithRelaxations: n must be non-negative, got %d", n)
		}
		o.Relaxations = n
		return nil
	}
}

type ExtractOptions struct {
	SubdivisionRatio       float64
	RelativeToChord        bool
	WithDihedralAngle      bool
	OptimizeAnchorLocation bool
	PCAPlane               bool
}

type ExtractOption func(*ExtractOptions) error

func defaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		SubdivisionRatio:       defaultSubdivisionRatio,
		OptimizeAnchorLocation: true,
	}
}

// WithSubdivisionRatio sets the chord subdivision threshold. It is a ratio of
// the average edge length, or of the chord length with WithRelativeToChord.
func WithSubdivisionRatio(ratio float64) ExtractOption {
	return func(o *ExtractOptions) error {
		if ratio <= 0 {
			return fmt.Errorf("WithSubdivisionRatio: ratio must be positive, got %v", ratio)
		}
		o.SubdivisionRatio = ratio
		return nil
	}
}

func WithRelativeToChord(enabled bool) ExtractOption {
	return func(o *ExtractOptions) error {
		o.RelativeToChord = enabled
		return nil
	}
}

// WithDihedralAngle splits every chord between proxies meeting at a sharp angle.
func WithDihedralAngle(enabled bool) ExtractOption {
	return func(o *ExtractOptions) error {
		o.WithDihedralAngle = enabled
		return nil
	}
}

// WithOptimizeAnchorLocation moves anchors to the least-squares point of their
// proxy planes instead of keeping the input vertex position.
func WithOptimizeAnchorLocation(enabled bool) ExtractOption {
	return func(o *ExtractOptions) error {
		o.OptimizeAnchorLocation = enabled
		return nil
	}
}

// WithPCAPlane fits proxy planes by principal component analysis instead of the
// area-weighted normal.
func WithPCAPlane(enabled bool) ExtractOption {
	return func(o *ExtractOptions) error {
		o.PCAPlane = enabled
		return nil
	}
}
