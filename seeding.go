// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package vsa

import (
	"fmt"
)

type SeedingMethod int

const (
	// Random places seeds on randomly drawn faces.
	Random SeedingMethod = iota
	// Incremental adds one proxy at a time at the worst face of the worst proxy.
	Incremental
	// Hierarchical doubles the number of proxies at each step.
	Hierarchical
)

func (m SeedingMethod) String() string {
	switch m {
	case Random:
		return "random"
	case Incremental:
		return "incremental"
	case Hierarchical:
		return "hierarchical"
	}
	return fmt.Sprintf("SeedingMethod(%d)", int(m))
}

// InitializeSeeds discards the current proxies and seeds new ones with method.
// Seeding stops at WithMaxProxies proxies, or once a step lowers the error by
// less than WithMinErrorDrop; that step is undone. Without either option the
// error drop defaults to 0.1. It returns the number of proxies.
func (a *Approximation[S]) InitializeSeeds(method SeedingMethod, setters ...SeedOption) (int, error) {
	opts := SeedOptions{
		Relaxations: defaultRelaxations,
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return 0, err
		}
	}
	if method < Random || method > Hierarchical {
		return 0, fmt.Errorf("%w: %v", ErrUnknownSeedingMethod, method)
	}
	if !opts.hasMaxProxies && !opts.hasMinErrorDrop {
		opts.MinErrorDrop = defaultMinErrorDrop
		opts.hasMinErrorDrop = true
	}

	maxProxies := a.mesh.NumFaces()
	if opts.hasMaxProxies && opts.MaxProxies < maxProxies {
		maxProxies = opts.MaxProxies
	}

	err := a.atomically(func() error {
		a.reset()
		if method == Random && !opts.hasMinErrorDrop {
			return a.seedRandom(maxProxies, opts.Relaxations)
		}
		return a.seedIncrementally(method, maxProxies, opts)
	})
	if err != nil {
		return 0, err
	}
	a.seeded = true
	return len(a.proxies), nil
}

// seedRandom places all seeds at once on distinct random faces.
func (a *Approximation[S]) seedRandom(n int, relaxations int) error {
	perm := a.rng.Perm(a.mesh.NumFaces())
	for _, f := range perm[:n] {
		if err := a.newProxy(f); err != nil {
			return err
		}
	}
	return a.relaxAll(1 + relaxations)
}

// seedIncrementally grows the proxy set from one random proxy, one step at a
// time, until a stop criterion holds.
func (a *Approximation[S]) seedIncrementally(method SeedingMethod, maxProxies int, opts SeedOptions) error {
	if err := a.newProxy(a.rng.Intn(a.mesh.NumFaces())); err != nil {
		return err
	}
	if err := a.relaxAll(1 + opts.Relaxations); err != nil {
		return err
	}

	initial := a.TotalError()
	prev := initial
	for len(a.proxies) < maxProxies {
		if opts.hasMinErrorDrop && initial == 0 {
			break
		}

		before := a.snapshot()
		var (
			added int
			err   error
		)
		switch method {
		case Random:
			added, err = a.addRandom()
		case Incremental:
			added, err = a.addToFurthest(1)
		case Hierarchical:
			added, err = a.addToFurthest(min(len(a.proxies), maxProxies-len(a.proxies)))
		}
		if err != nil {
			return err
		}
		if added == 0 {
			break
		}
		if err := a.relaxAll(opts.Relaxations); err != nil {
			return err
		}

		cur := a.TotalError()
		if opts.hasMinErrorDrop && (prev-cur)/initial < opts.MinErrorDrop {
			a.restore(before)
			break
		}
		prev = cur
	}
	return nil
}

// addRandom seeds one proxy on a random face of a proxy with at least two
// members.
func (a *Approximation[S]) addRandom() (int, error) {
	eligible := make([]int, 0, len(a.faceProxy))
	for f, p := range a.faceProxy {
		if len(a.proxies[p].faces) > 1 {
			eligible = append(eligible, f)
		}
	}
	if len(eligible) == 0 {
		return 0, nil
	}
	if err := a.newProxy(eligible[a.rng.Intn(len(eligible))]); err != nil {
		return 0, err
	}
	return 1, nil
}
