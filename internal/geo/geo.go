package geo

import (
	"errors"
	"fmt"

	"github.com/RedUtils/botcore/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Arena positions are stored as XYZ points in unreal units. SQLite has no
// spatial awareness, so geometries always travel as WKB.

// ErrShortPath is returned when a path would have fewer than two vertices.
var ErrShortPath = errors.New("path needs at least 2 slices")

// ErrTimeRegression is returned when slice times are not increasing.
var ErrTimeRegression = errors.New("slice times must increase")

// PointFromVec3 converts an arena location into an XYZ point.
func PointFromVec3(v core.Vec3) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: v.X, Y: v.Y},
		Z:    v.Z,
		Type: geom.DimXYZ,
	})
}

// Vec3FromPoint is the inverse of PointFromVec3. Empty points yield the origin.
func Vec3FromPoint(p geom.Point) core.Vec3 {
	c, ok := p.Coordinates()
	if !ok {
		return core.Vec3{}
	}
	return core.Vec3{X: c.XY.X, Y: c.XY.Y, Z: c.Z}
}

// PathFromSlices builds an XYZM line string from a ball prediction, with
// the slice's game time stored as M.
func PathFromSlices(slices []core.BallSlice) (geom.LineString, error) {
	if len(slices) < 2 {
		return geom.LineString{}, ErrShortPath
	}

	flat := make([]float64, 0, len(slices)*4)
	for i, s := range slices {
		if i > 0 && s.Time <= slices[i-1].Time {
			return geom.LineString{}, fmt.Errorf("slice %d at %.3f: %w", i, s.Time, ErrTimeRegression)
		}
		flat = append(flat, s.Location.X, s.Location.Y, s.Location.Z, s.Time)
	}

	seq := geom.NewSequence(flat, geom.DimXYZM)
	return geom.NewLineString(seq), nil
}

// SlicesFromPath recovers locations and times from a path built by
// PathFromSlices. Velocities are not stored and come back zero.
func SlicesFromPath(ls geom.LineString) []core.BallSlice {
	seq := ls.Coordinates()
	n := seq.Length()
	if n == 0 {
		return nil
	}

	out := make([]core.BallSlice, n)
	for i := 0; i < n; i++ {
		c := seq.Get(i)
		out[i] = core.BallSlice{
			Location: core.Vec3{X: c.XY.X, Y: c.XY.Y, Z: c.Z},
			Time:     c.M,
		}
	}
	return out
}
