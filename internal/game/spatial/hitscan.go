package spatial

// degenerateSegmentLenSq is the squared length under which a segment is
// treated as a point.
const degenerateSegmentLenSq float32 = 1e-8

// SegmentCircle tests the segment start→end against a circle.
//
// t is the projection of the circle center onto the segment, clamped to
// [0, 1]; the closest point on the segment is start + (end-start)*t.
// A degenerate segment falls back to a point-in-circle test with t = 0.
//
// All checks are O(1). Swapping start and end yields the same verdict and
// reports 1-t (before clamping effects at the ends).
func SegmentCircle(start, end, center Vec2, radius float32) (hit bool, t float32) {
	line := end.Sub(start)
	startToCenter := center.Sub(start)
	lineLenSq := line.LenSq()
	rSq := radius * radius

	if lineLenSq <= degenerateSegmentLenSq {
		return startToCenter.LenSq() <= rSq, 0
	}

	t = Clamp01(startToCenter.Dot(line) / lineLenSq)
	closest := start.Add(line.Scale(t))
	return DistanceSq(center, closest) <= rSq, t
}

// PointAlong returns start + (end-start)*t.
func PointAlong(start, end Vec2, t float32) Vec2 {
	return start.Add(end.Sub(start).Scale(t))
}
