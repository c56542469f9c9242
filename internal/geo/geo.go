// Package geo converts source-projection coordinates to geographic
// latitude/longitude. Supported sources are geographic (EPSG:4326), web
// mercator (EPSG:3857) and WGS84 UTM zones (EPSG:326xx/327xx or a PROJ
// "+proj=utm +zone=N [+south]" string).
package geo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wroge/wgs84"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/gridstack/internal/grid"
)

const (
	epsgGeographic = 4326
	epsgMercator   = 3857
)

// Converter maps points in one source projection to lat/lon degrees.
type Converter struct {
	source  string
	code    int
	toGeo   wgs84.Func
	fromGeo wgs84.Func
}

// Parse builds a Converter for source. Unknown projections fail with
// grid.ErrProjectionUnknown.
func Parse(source string) (*Converter, error) {
	s := strings.TrimSpace(source)
	code, err := epsgCode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", grid.ErrProjectionUnknown, err)
	}
	c := &Converter{source: s, code: code}
	if code == epsgGeographic {
		return c, nil
	}

	repo := wgs84.EPSG()
	src, err := repo.SafeCode(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", grid.ErrProjectionUnknown, source, err)
	}
	geo, err := repo.SafeCode(epsgGeographic)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", grid.ErrProjectionUnknown, source, err)
	}
	c.toGeo = wgs84.Transform(src, geo)
	c.fromGeo = wgs84.Transform(geo, src)
	return c, nil
}

// epsgCode maps a source string onto the EPSG code it names.
func epsgCode(s string) (int, error) {
	up := strings.ToUpper(s)
	switch {
	case up == "EPSG:4326" || up == "WGS84" || strings.Contains(s, "+proj=longlat") || strings.Contains(s, "+proj=latlong"):
		return epsgGeographic, nil
	case up == "EPSG:3857" || up == "EPSG:900913" || strings.Contains(s, "+proj=merc"):
		return epsgMercator, nil
	case strings.HasPrefix(up, "EPSG:326") || strings.HasPrefix(up, "EPSG:327"):
		code, err := strconv.Atoi(up[len("EPSG:"):])
		if err != nil {
			return 0, fmt.Errorf("%q", s)
		}
		return utmCode(code%100, code >= 32700)
	case strings.Contains(s, "+proj=utm"):
		zone, south := 0, false
		for _, f := range strings.Fields(s) {
			switch {
			case strings.HasPrefix(f, "+zone="):
				z, err := strconv.Atoi(strings.TrimPrefix(f, "+zone="))
				if err != nil {
					return 0, fmt.Errorf("bad zone in %q", s)
				}
				zone = z
			case f == "+south":
				south = true
			}
		}
		return utmCode(zone, south)
	}
	return 0, fmt.Errorf("%q", s)
}

func utmCode(zone int, south bool) (int, error) {
	if zone < 1 || zone > 60 {
		return 0, fmt.Errorf("utm zone %d", zone)
	}
	if south {
		return 32700 + zone, nil
	}
	return 32600 + zone, nil
}

// Source returns the projection string the converter was built from.
func (c *Converter) Source() string { return c.source }

// EPSG returns the code the source resolved to.
func (c *Converter) EPSG() int { return c.code }

// ToLatLon converts pt (x = easting/longitude, y = northing/latitude) to
// latitude and longitude in degrees.
func (c *Converter) ToLatLon(pt r2.Vec) (lat, lon float64) {
	if c.toGeo == nil {
		return pt.Y, pt.X
	}
	lon, lat, _ = c.toGeo(pt.X, pt.Y, 0)
	return lat, lon
}

// FromLatLon converts degrees back into the source projection.
func (c *Converter) FromLatLon(lat, lon float64) r2.Vec {
	if c.fromGeo == nil {
		return r2.Vec{X: lon, Y: lat}
	}
	x, y, _ := c.fromGeo(lon, lat, 0)
	return r2.Vec{X: x, Y: y}
}
