package geom

// Transform is a bitset describing a layer's content orientation, or a
// display's scanout rotation. Bits are independent except that Rotate90,
// Rotate180 and Rotate270 are mutually exclusive by construction.
type Transform uint32

const (
	TransformNone     Transform = 0
	ReflectX          Transform = 1 << 0
	ReflectY          Transform = 1 << 1
	Rotate90          Transform = 1 << 2
	Rotate180         Transform = 1 << 3
	Rotate270         Transform = 1 << 4
)

// Has reports whether all bits of mask are set in t.
func (t Transform) Has(mask Transform) bool { return t&mask == mask }

// ResolveTransform composes a layer's content transform with the display's
// scanout rotation into the transform a plane must apply, following the
// hardware's fixed rotate-then-reflect composition order. display must be
// one of TransformNone, Rotate90, Rotate180, Rotate270 — reflection bits on
// display are ignored, matching the hardware which never reports a
// reflecting scanout rotation.
func ResolveTransform(layer, display Transform) Transform {
	var out Transform
	display &^= ReflectX | ReflectY

	switch {
	case layer.Has(Rotate90):
		if layer.Has(ReflectX) {
			out |= ReflectX
		}
		if layer.Has(ReflectY) {
			out |= ReflectY
		}
		switch display {
		case Rotate90:
			out |= Rotate180
		case Rotate180:
			out |= Rotate270
		case TransformNone:
			out |= Rotate90
		}
		// display == Rotate270: no additional rotation bit, matching the
		// original table's default (fall-through) case.

	case layer.Has(Rotate180):
		switch display {
		case Rotate90:
			out |= Rotate270
		case Rotate270:
			out |= Rotate90
		case TransformNone:
			out |= Rotate180
		}

	case layer.Has(Rotate270):
		switch display {
		case Rotate270:
			out |= Rotate180
		case Rotate180:
			out |= Rotate90
		case TransformNone:
			out |= Rotate270
		}

	default:
		// Layer carries no rotation, only possibly reflection.
		switch display {
		case Rotate90:
			if layer.Has(ReflectX) {
				out |= ReflectX
			}
			if layer.Has(ReflectY) {
				out |= ReflectY
			}
			out |= Rotate90
		case Rotate270:
			out |= Rotate270
		case Rotate180:
			out |= ReflectY
		case TransformNone:
			// No display rotation at all: the plane transform is exactly
			// whatever the layer already carries.
			out = layer
		}
	}

	return out
}
