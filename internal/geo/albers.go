package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// GRS 80 ellipsoid.
const (
	grs80A = 6378137.0
	grs80F = 1 / 298.257222101
)

// Projector maps a longitude/latitude point to planar coordinates. It
// returns NaN coordinates for points outside its domain.
type Projector interface {
	Project(p orb.Point) orb.Point
}

// Albers is an Albers Equal-Area conic projection on the GRS 80 ellipsoid
// (Snyder, Map Projections: A Working Manual, eq. 14-1 to 14-12).
type Albers struct {
	CentralMeridian float64 // degrees, negative west
	OriginLatitude  float64
	Parallel1       float64
	Parallel2       float64

	e, n, c, rho0 float64
}

// NewAlbers precomputes the projection constants. The standard parallels
// must differ and must not be symmetric about the equator.
func NewAlbers(centralMeridian, originLat, parallel1, parallel2 float64) (*Albers, error) {
	if parallel1 == parallel2 {
		// the single-parallel case degenerates to n = sin(phi1); not needed here
		return nil, fmt.Errorf("geo: albers: standard parallels must differ")
	}
	if parallel1 == -parallel2 {
		return nil, fmt.Errorf("geo: albers: standard parallels symmetric about the equator")
	}
	a := &Albers{
		CentralMeridian: centralMeridian,
		OriginLatitude:  originLat,
		Parallel1:       parallel1,
		Parallel2:       parallel2,
	}
	a.e = math.Sqrt(2*grs80F - grs80F*grs80F)

	phi0 := radians(originLat)
	phi1 := radians(parallel1)
	phi2 := radians(parallel2)

	m1 := a.m(phi1)
	m2 := a.m(phi2)
	q0 := a.q(phi0)
	q1 := a.q(phi1)
	q2 := a.q(phi2)

	a.n = (m1*m1 - m2*m2) / (q2 - q1)
	a.c = m1*m1 + a.n*q1
	a.rho0 = grs80A * math.Sqrt(a.c-a.n*q0) / a.n
	return a, nil
}

// USAlbers returns the continental-US equal-area projection used for the
// shapeGeomProjected column: central meridian 96°W, origin 40°N, standard
// parallels 20°N and 60°N.
func USAlbers() *Albers {
	a, err := NewAlbers(-96, 40, 20, 60)
	if err != nil {
		panic(err)
	}
	return a
}

// Project implements Projector.
func (a *Albers) Project(p orb.Point) orb.Point {
	lon, lat := p[0], p[1]
	if math.IsNaN(lon) || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return orb.Point{math.NaN(), math.NaN()}
	}
	q := a.q(radians(lat))
	v := a.c - a.n*q
	if v < 0 {
		return orb.Point{math.NaN(), math.NaN()}
	}
	rho := grs80A * math.Sqrt(v) / a.n
	theta := a.n * radians(normalizeLon(lon-a.CentralMeridian))
	return orb.Point{rho * math.Sin(theta), a.rho0 - rho*math.Cos(theta)}
}

func (a *Albers) m(phi float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-a.e*a.e*s*s)
}

func (a *Albers) q(phi float64) float64 {
	s := math.Sin(phi)
	e := a.e
	return (1 - e*e) * (s/(1-e*e*s*s) - (1/(2*e))*math.Log((1-e*s)/(1+e*s)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func normalizeLon(d float64) float64 {
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	return d
}
