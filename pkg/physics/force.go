package physics

// ForceGenerator adds a force or torque to a body every step. The World
// calls Apply for each dynamic body before integrating forces.
type ForceGenerator interface {
	Apply(b *Body)
}

// DragForce opposes motion with magnitude K*|v|^2.
type DragForce struct {
	K float64
}

// Apply implements ForceGenerator
func (d DragForce) Apply(b *Body) {
	speedSq := b.Velocity.LengthSquared()
	if speedSq == 0 {
		return
	}
	b.AddForce(b.Velocity.Normalize().Scale(-d.K * speedSq))
}

// FrictionForce opposes motion with constant magnitude K.
type FrictionForce struct {
	K float64
}

// Apply implements ForceGenerator
func (f FrictionForce) Apply(b *Body) {
	b.AddForce(b.Velocity.Normalize().Scale(-f.K))
}

// ConstantForce pushes every body the same way, like wind.
type ConstantForce struct {
	Force Vector2D
}

// Apply implements ForceGenerator
func (c ConstantForce) Apply(b *Body) {
	b.AddForce(c.Force)
}

// ConstantTorque spins every body.
type ConstantTorque struct {
	Torque float64
}

// Apply implements ForceGenerator
func (c ConstantTorque) Apply(b *Body) {
	b.AddTorque(c.Torque)
}
