package facematch

import "image"

// Region is a face bounding box in pixel coordinates as reported by the
// analyzer: top-left corner plus width and height.
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Usable reports whether the region has a positive area. The analyzer
// reports w=0 or h=0 when it could not localize a face.
func (r Region) Usable() bool {
	return r.W > 0 && r.H > 0
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// ClampTo intersects the region with bounds. The result is empty when the
// region lies entirely outside the frame.
func (r Region) ClampTo(bounds image.Rectangle) image.Rectangle {
	return r.Rect().Intersect(bounds)
}
