// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package generaldata

// A 2d point or size in logical (DPI-independent) coordinates
// When used as a size, X is the width and Y is the height
type Vector2i struct {
	X int
	Y int
}

func (v Vector2i) Add(other Vector2i) Vector2i {
	return Vector2i{X: v.X + other.X, Y: v.Y + other.Y}
}

func (v Vector2i) Sub(other Vector2i) Vector2i {
	return Vector2i{X: v.X - other.X, Y: v.Y - other.Y}
}

// A rectangle in logical coordinates, stored as origin plus size
// Origin+size instead of min/max corners since that's what the protocol speaks in
type Rect struct {
	Loc  Vector2i
	Size Vector2i
}

// Whether the point sits inside the rectangle
// The left/top edges are inclusive, the right/bottom edges exclusive
func (r Rect) Contains(p Vector2i) bool {
	return p.X >= r.Loc.X && p.X < r.Loc.X+r.Size.X &&
		p.Y >= r.Loc.Y && p.Y < r.Loc.Y+r.Size.Y
}

// Center of the rectangle, rounded towards the origin
func (r Rect) Center() Vector2i {
	return Vector2i{X: r.Loc.X + r.Size.X/2, Y: r.Loc.Y + r.Size.Y/2}
}

// Whether the rectangle has any area at all
func (r Rect) Empty() bool {
	return r.Size.X <= 0 || r.Size.Y <= 0
}
