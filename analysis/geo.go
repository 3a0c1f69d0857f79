package analysis

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/hugr-lab/viewsearch/value"
)

// ErrNotGeometry indicates a value cannot be read as a geo shape.
var ErrNotGeometry = errors.New("value is not a geometry")

// GeoAnalyzer converts document values into shapes.
type GeoAnalyzer interface {
	Analyzer

	// Shape reads v as a geometry.
	Shape(v value.Value) (orb.Geometry, error)
}

// GeoPointOptions configures object-to-point extraction.
type GeoPointOptions struct {
	// Latitude and Longitude name object members holding the coordinates.
	// When empty only [lng, lat] arrays are accepted.
	Latitude  string
	Longitude string
}

// GeoPoint accepts [lng, lat] pairs or objects with configured coordinate
// members.
type GeoPoint struct {
	name string
	opts GeoPointOptions
}

// NewGeoPoint creates a point analyzer.
func NewGeoPoint(name string, opts GeoPointOptions) *GeoPoint {
	return &GeoPoint{name: name, opts: opts}
}

func (g *GeoPoint) Name() string                 { return g.name }
func (g *GeoPoint) Kind() Kind                   { return KindGeoPoint }
func (g *GeoPoint) Analyze(input string) []Token { return nil }

func (g *GeoPoint) Shape(v value.Value) (orb.Geometry, error) {
	if v.Kind() == value.KindObject && g.opts.Latitude != "" && g.opts.Longitude != "" {
		lat, okLat := v.Get(g.opts.Latitude)
		lng, okLng := v.Get(g.opts.Longitude)
		if okLat && okLng {
			return pointFrom(lng, lat)
		}
		return nil, fmt.Errorf("%w: missing %s/%s members", ErrNotGeometry, g.opts.Latitude, g.opts.Longitude)
	}
	return ParsePoint(v)
}

// GeoJSON accepts GeoJSON geometry objects and [lng, lat] pairs.
type GeoJSON struct {
	name string
}

// NewGeoJSON creates a GeoJSON analyzer.
func NewGeoJSON(name string) *GeoJSON {
	return &GeoJSON{name: name}
}

func (g *GeoJSON) Name() string                 { return g.name }
func (g *GeoJSON) Kind() Kind                   { return KindGeoJSON }
func (g *GeoJSON) Analyze(input string) []Token { return nil }

func (g *GeoJSON) Shape(v value.Value) (orb.Geometry, error) {
	return ParseShape(v)
}

// ParsePoint reads a [lng, lat] pair or a GeoJSON Point.
func ParsePoint(v value.Value) (orb.Point, error) {
	if v.Kind() == value.KindArray {
		if v.Len() != 2 {
			return orb.Point{}, fmt.Errorf("%w: point array must have 2 elements", ErrNotGeometry)
		}
		lng, _ := v.At(0)
		lat, _ := v.At(1)
		return pointFrom(lng, lat)
	}
	shape, err := ParseShape(v)
	if err != nil {
		return orb.Point{}, err
	}
	if p, ok := shape.(orb.Point); ok {
		return p, nil
	}
	return Centroid(shape), nil
}

// ParseShape reads a GeoJSON geometry object or a [lng, lat] pair.
func ParseShape(v value.Value) (orb.Geometry, error) {
	switch v.Kind() {
	case value.KindArray:
		return ParsePoint(v)
	case value.KindObject:
		g, err := geojson.UnmarshalGeometry([]byte(v.String()))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotGeometry, err)
		}
		shape := g.Geometry()
		if err := ValidateGeometry(shape); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotGeometry, err)
		}
		return shape, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotGeometry, v.Kind())
	}
}

func pointFrom(lng, lat value.Value) (orb.Point, error) {
	x, okX := lng.AsNumber()
	y, okY := lat.AsNumber()
	if !okX || !okY {
		return orb.Point{}, fmt.Errorf("%w: coordinates must be numbers", ErrNotGeometry)
	}
	if y < -90 || y > 90 || x < -180 || x > 180 {
		return orb.Point{}, fmt.Errorf("%w: coordinates out of range", ErrNotGeometry)
	}
	return orb.Point{x, y}, nil
}

// Centroid returns the representative point used for distance checks.
func Centroid(g orb.Geometry) orb.Point {
	switch s := g.(type) {
	case orb.Point:
		return s
	case orb.Bound:
		return s.Center()
	}
	c, _ := planar.CentroidArea(g)
	return c
}

// Distance returns the great-circle distance in meters from origin to the
// shape's centroid.
func Distance(origin orb.Point, g orb.Geometry) float64 {
	return geo.Distance(origin, Centroid(g))
}

// Intersects reports whether two shapes share at least one point.
func Intersects(a, b orb.Geometry) bool {
	if a == nil || b == nil || !a.Bound().Intersects(b.Bound()) {
		return false
	}
	pa, pb := decompose(a), decompose(b)

	for _, p := range pa.points {
		if pb.covers(p) {
			return true
		}
	}
	for _, p := range pb.points {
		if pa.covers(p) {
			return true
		}
	}
	for _, s := range pa.segments {
		for _, o := range pb.segments {
			if segmentsIntersect(s[0], s[1], o[0], o[1]) {
				return true
			}
		}
	}
	return false
}

// Contains reports whether inner lies within outer. Only polygonal outer
// shapes contain anything other than equal points.
func Contains(outer, inner orb.Geometry) bool {
	if outer == nil || inner == nil {
		return false
	}
	po, pi := decompose(outer), decompose(inner)
	if len(pi.points) == 0 {
		return false
	}
	for _, p := range pi.points {
		if !po.covers(p) {
			return false
		}
	}
	// Every vertex is inside; reject inner edges that leave a polygon
	// through its boundary.
	for _, s := range pi.segments {
		mid := orb.Point{(s[0][0] + s[1][0]) / 2, (s[0][1] + s[1][1]) / 2}
		if !po.covers(mid) {
			return false
		}
	}
	return true
}

type parts struct {
	points   []orb.Point
	segments [][2]orb.Point
	polygons []orb.Polygon
}

func decompose(g orb.Geometry) parts {
	var p parts
	p.add(g)
	return p
}

func (p *parts) add(g orb.Geometry) {
	switch s := g.(type) {
	case orb.Point:
		p.points = append(p.points, s)
	case orb.MultiPoint:
		p.points = append(p.points, s...)
	case orb.LineString:
		p.addLine(s)
	case orb.MultiLineString:
		for _, ls := range s {
			p.addLine(ls)
		}
	case orb.Ring:
		p.addLine(orb.LineString(s))
		p.polygons = append(p.polygons, orb.Polygon{s})
	case orb.Polygon:
		for _, r := range s {
			p.addLine(orb.LineString(r))
		}
		p.polygons = append(p.polygons, s)
	case orb.MultiPolygon:
		for _, poly := range s {
			p.add(poly)
		}
	case orb.Collection:
		for _, c := range s {
			p.add(c)
		}
	case orb.Bound:
		p.add(s.ToPolygon())
	}
}

func (p *parts) addLine(ls orb.LineString) {
	p.points = append(p.points, ls...)
	for i := 1; i < len(ls); i++ {
		p.segments = append(p.segments, [2]orb.Point{ls[i-1], ls[i]})
	}
}

// covers reports whether pt is inside a polygon, on a segment or equal to a
// point of p.
func (p *parts) covers(pt orb.Point) bool {
	for _, poly := range p.polygons {
		if planar.PolygonContains(poly, pt) {
			return true
		}
	}
	for _, s := range p.segments {
		if onSegment(s[0], s[1], pt) {
			return true
		}
	}
	for _, q := range p.points {
		if q.Equal(pt) {
			return true
		}
	}
	return false
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	if orientation(a, b, p) != 0 {
		return false
	}
	return p[0] >= min(a[0], b[0]) && p[0] <= max(a[0], b[0]) &&
		p[1] >= min(a[1], b[1]) && p[1] <= max(a[1], b[1])
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return onSegment(q1, q2, p1) || onSegment(q1, q2, p2) || onSegment(p1, p2, q1) || onSegment(p1, p2, q2)
}

// EncodeGeometry converts a shape to WKB.
func EncodeGeometry(g orb.Geometry) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("cannot encode nil geometry")
	}
	if b, ok := g.(orb.Bound); ok {
		g = b.ToPolygon()
	}
	return wkb.Marshal(g)
}

// DecodeGeometry converts WKB back into a shape.
func DecodeGeometry(data []byte) (orb.Geometry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot decode empty WKB data")
	}
	return wkb.Unmarshal(data)
}

// ValidateGeometry checks that a shape is well formed.
func ValidateGeometry(g orb.Geometry) error {
	if g == nil {
		return fmt.Errorf("geometry is nil")
	}

	switch s := g.(type) {
	case orb.Point, orb.Bound:
		return nil
	case orb.MultiPoint:
		if len(s) == 0 {
			return fmt.Errorf("multipoint is empty")
		}
	case orb.LineString:
		if len(s) < 2 {
			return fmt.Errorf("linestring must have at least 2 points, has %d", len(s))
		}
	case orb.MultiLineString:
		if len(s) == 0 {
			return fmt.Errorf("multilinestring is empty")
		}
		for i, ls := range s {
			if len(ls) < 2 {
				return fmt.Errorf("multilinestring[%d] must have at least 2 points, has %d", i, len(ls))
			}
		}
	case orb.Polygon:
		if len(s) == 0 {
			return fmt.Errorf("polygon has no rings")
		}
		for i, ring := range s {
			if len(ring) < 4 {
				return fmt.Errorf("polygon ring[%d] must have at least 4 points, has %d", i, len(ring))
			}
			if !ring[0].Equal(ring[len(ring)-1]) {
				return fmt.Errorf("polygon ring[%d] is not closed", i)
			}
		}
	case orb.MultiPolygon:
		if len(s) == 0 {
			return fmt.Errorf("multipolygon is empty")
		}
		for i, poly := range s {
			if err := ValidateGeometry(poly); err != nil {
				return fmt.Errorf("multipolygon[%d]: %w", i, err)
			}
		}
	case orb.Collection:
		if len(s) == 0 {
			return fmt.Errorf("geometry collection is empty")
		}
		for i, c := range s {
			if err := ValidateGeometry(c); err != nil {
				return fmt.Errorf("collection[%d]: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unknown geometry type: %T", g)
	}
	return nil
}

// GeometryTypeName returns the GeoJSON type name of a shape.
func GeometryTypeName(g orb.Geometry) string {
	if g == nil {
		return "Unknown"
	}
	return g.GeoJSONType()
}
