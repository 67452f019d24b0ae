// Package geom defines the planar loop model for Foil and the pure
// geometric operations over it: signed area, arclength, curvature, normals,
// nearest-point projection and self-intersection queries.
//
// A Loop is immutable once constructed. Every operation in this package is a
// pure function of its inputs and safe for concurrent use.
package geom
