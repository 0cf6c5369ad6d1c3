// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package vsa

import "errors"

var (
	// ErrEmptyProxy indicates a fit over zero faces.
	ErrEmptyProxy = errors.New("vsa: fit on an empty face set")
	// ErrInvalidProxyIndex indicates a proxy index outside [0, NumProxies).
	ErrInvalidProxyIndex = errors.New("vsa: proxy index out of range")
	// ErrNotSeeded indicates an operation that needs InitializeSeeds first.
	ErrNotSeeded = errors.New("vsa: proxies are not seeded")
	// ErrEmptyMesh indicates a mesh without faces.
	ErrEmptyMesh = errors.New("vsa: mesh has no faces")
	// ErrUnknownSeedingMethod indicates a SeedingMethod outside the enumeration.
	ErrUnknownSeedingMethod = errors.New("vsa: unknown seeding method")
	// ErrBoundaryTrace indicates proxy boundaries that do not close into loops,
	// which happens on meshes with non-manifold vertices.
	ErrBoundaryTrace = errors.New("vsa: proxy boundary does not close")
)
