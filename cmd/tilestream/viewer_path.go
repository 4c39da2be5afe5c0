package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"tilestream/internal/world"
)

// viewerPath moves a viewer along a closed polyline at a constant speed in
// tiles per tick.
type viewerPath struct {
	points []mgl64.Vec2
	speed  float64
	length float64
}

func newViewerPath(speed float64, points ...mgl64.Vec2) *viewerPath {
	p := &viewerPath{points: points, speed: speed}
	for i := range points {
		p.length += p.segment(i).Len()
	}
	return p
}

// squarePath circles a square of the given half side around center.
func squarePath(center mgl64.Vec2, half, speed float64) *viewerPath {
	return newViewerPath(speed,
		center.Add(mgl64.Vec2{-half, -half}),
		center.Add(mgl64.Vec2{half, -half}),
		center.Add(mgl64.Vec2{half, half}),
		center.Add(mgl64.Vec2{-half, half}),
	)
}

func (p *viewerPath) segment(i int) mgl64.Vec2 {
	return p.points[(i+1)%len(p.points)].Sub(p.points[i])
}

// At returns the viewer position after tick ticks, on layer z.
func (p *viewerPath) At(tick int, z int) world.Vec3i {
	if len(p.points) == 0 {
		return world.Vec3i{Z: z}
	}
	pos := p.points[0]
	if p.length > 0 {
		d := math.Mod(float64(tick)*p.speed, p.length)
		for i := range p.points {
			seg := p.segment(i)
			l := seg.Len()
			if d <= l {
				if l > 0 {
					pos = p.points[i].Add(seg.Mul(d / l))
				} else {
					pos = p.points[i]
				}
				break
			}
			d -= l
		}
	}
	return world.Vec3i{X: int(math.Floor(pos.X())), Y: int(math.Floor(pos.Y())), Z: z}
}
