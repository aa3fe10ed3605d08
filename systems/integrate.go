package systems

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/vecmath"
)

// Integrate applies force to vel, clamps the speed to [MinVelocity,
// MaxVelocity] and advances pos by vel*dt*SpeedScale.
//
// When vel+force cancels out exactly and MinVelocity is positive, the agent
// keeps moving at MinVelocity along its previous heading, or +X if it had
// none.
func Integrate(pos, vel, force r2.Vec, dt float64, p *Params) (r2.Vec, r2.Vec) {
	next := r2.Add(vel, force)
	if next == vecmath.Zero && p.MinVelocity > 0 {
		dir := vecmath.NormalizeOrZero(vel)
		if dir == vecmath.Zero {
			dir = r2.Vec{X: 1}
		}
		next = r2.Scale(p.MinVelocity, dir)
	}
	next = vecmath.ClampLength(next, p.MinVelocity, p.MaxVelocity)
	return r2.Add(pos, r2.Scale(dt*p.SpeedScale, next)), next
}
