package transpiler

// TransformContext tells a transformer how its result will be used. It is
// passed explicitly on every call and never stored.
type TransformContext int

const (
	// None: the value is used, with no storage semantics.
	None TransformContext = iota
	// Left: the expression is an assignment target and must render its
	// store form.
	Left
	// Right: explicit read position.
	Right
	// Register: a declaration emits its registration call instead of its
	// body.
	Register
)

func (c TransformContext) String() string {
	switch c {
	case None:
		return "NONE"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	case Register:
		return "REGISTER"
	}
	return "UNKNOWN"
}
