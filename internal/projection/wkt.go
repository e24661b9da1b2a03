package projection

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pn-weights/internal/model"
)

// wktNode is one KEYWORD[...] element of a WKT1 string. Args holds strings,
// float64s and nested *wktNode values in source order.
type wktNode struct {
	Keyword string
	Args    []any
}

func (n *wktNode) name() string {
	if len(n.Args) > 0 {
		if s, ok := n.Args[0].(string); ok {
			return s
		}
	}
	return ""
}

func (n *wktNode) child(kw string) *wktNode {
	for _, a := range n.Args {
		if c, ok := a.(*wktNode); ok && c.Keyword == kw {
			return c
		}
	}
	return nil
}

func (n *wktNode) number(i int) (float64, bool) {
	if i >= len(n.Args) {
		return 0, false
	}
	f, ok := n.Args[i].(float64)
	return f, ok
}

type wktParser struct {
	s   string
	pos int
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.s) && unicode.IsSpace(rune(p.s[p.pos])) {
		p.pos++
	}
}

func (p *wktParser) node() (*wktNode, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) && (unicode.IsLetter(rune(p.s[p.pos])) || unicode.IsDigit(rune(p.s[p.pos])) || p.s[p.pos] == '_') {
		p.pos++
	}
	if start == p.pos {
		return nil, eris.Errorf("projection: expected keyword at offset %d", p.pos)
	}
	n := &wktNode{Keyword: strings.ToUpper(p.s[start:p.pos])}
	p.skipSpace()
	if p.pos >= len(p.s) || (p.s[p.pos] != '[' && p.s[p.pos] != '(') {
		// Bare enum values such as AXIS["X",EAST].
		return n, nil
	}
	closer := byte(']')
	if p.s[p.pos] == '(' {
		closer = ')'
	}
	p.pos++
	for {
		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, eris.New("projection: unterminated WKT")
		}
		c := p.s[p.pos]
		switch {
		case c == closer:
			p.pos++
			return n, nil
		case c == ',':
			p.pos++
		case c == '"':
			end := strings.IndexByte(p.s[p.pos+1:], '"')
			if end < 0 {
				return nil, eris.New("projection: unterminated WKT string")
			}
			n.Args = append(n.Args, p.s[p.pos+1:p.pos+1+end])
			p.pos += end + 2
		case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
			start := p.pos
			for p.pos < len(p.s) && strings.IndexByte("+-.eE0123456789", p.s[p.pos]) >= 0 {
				p.pos++
			}
			f, err := strconv.ParseFloat(p.s[start:p.pos], 64)
			if err != nil {
				return nil, eris.Wrapf(err, "projection: bad number %q", p.s[start:p.pos])
			}
			n.Args = append(n.Args, f)
		default:
			child, err := p.node()
			if err != nil {
				return nil, err
			}
			n.Args = append(n.Args, child)
		}
	}
}

func parseWKTTree(s string) (*wktNode, error) {
	p := &wktParser{s: strings.TrimSpace(strings.TrimPrefix(s, "\uFEFF"))}
	n, err := p.node()
	if err != nil {
		return nil, err
	}
	return n, nil
}

// FromWKT interprets an ESRI or OGC WKT1 definition, as found in shapefile
// .prj files. An EPSG authority code on the outer element wins when the code
// is registered.
func FromWKT(s string) (CRS, error) {
	root, err := parseWKTTree(s)
	if err != nil {
		return CRS{}, eris.Wrap(model.ErrGeometry, err.Error())
	}
	if code, ok := authorityCode(root); ok {
		if c, err := ByEPSG(code); err == nil {
			return c, nil
		}
	}
	switch root.Keyword {
	case "GEOGCS", "GEOGCRS":
		name := root.name()
		if strings.Contains(strings.ToUpper(name), "WGS") {
			return WGS84, nil
		}
		return NAD83, nil
	case "PROJCS", "PROJCRS":
		return projectedFromWKT(root)
	default:
		return CRS{}, eris.Wrapf(model.ErrGeometry, "projection: unsupported WKT root %s", root.Keyword)
	}
}

func authorityCode(n *wktNode) (int, bool) {
	auth := n.child("AUTHORITY")
	if auth == nil || !strings.EqualFold(auth.name(), "EPSG") || len(auth.Args) < 2 {
		return 0, false
	}
	switch v := auth.Args[1].(type) {
	case string:
		code, err := strconv.Atoi(v)
		return code, err == nil
	case float64:
		return int(v), true
	}
	return 0, false
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
}

func projectedFromWKT(root *wktNode) (CRS, error) {
	method := root.child("PROJECTION")
	if method == nil {
		return CRS{}, eris.Wrap(model.ErrGeometry, "projection: PROJCS without PROJECTION")
	}
	params := map[string]float64{}
	for _, a := range root.Args {
		if c, ok := a.(*wktNode); ok && c.Keyword == "PARAMETER" {
			if v, ok := c.number(1); ok {
				params[normalizeKey(c.name())] = v
			}
		}
	}
	first := func(keys ...string) (float64, bool) {
		for _, k := range keys {
			if v, ok := params[k]; ok {
				return v, true
			}
		}
		return 0, false
	}

	ellipsoid := GRS80
	if geog := root.child("GEOGCS"); geog != nil {
		if datum := geog.child("DATUM"); datum != nil {
			if sph := datum.child("SPHEROID"); sph != nil {
				a, okA := sph.number(1)
				invF, okF := sph.number(2)
				if okA && okF {
					ellipsoid = Ellipsoid{A: a, InvF: invF}
				}
			}
		}
	}
	unit := Meter
	if u := root.child("UNIT"); u != nil {
		if f, ok := u.number(1); ok && f > 0 {
			unit = f
		}
	}

	fe, _ := first("false_easting")
	fn, _ := first("false_northing")
	lon0, _ := first("central_meridian", "longitude_of_center", "longitude_of_origin")
	lat0, _ := first("latitude_of_origin", "latitude_of_center")
	lat1, ok1 := first("standard_parallel_1")
	lat2, ok2 := first("standard_parallel_2")

	crs := CRS{Name: root.name()}
	switch normalizeKey(method.name()) {
	case "albers", "albers_conic_equal_area", "albers_equal_area":
		if !ok1 || !ok2 {
			return CRS{}, eris.Wrap(model.ErrGeometry, "projection: Albers needs two standard parallels")
		}
		crs.proj = NewAlbers(AlbersParams{
			Ellipsoid: ellipsoid, Lat1: lat1, Lat2: lat2, Lat0: lat0, Lon0: lon0,
			FalseEasting: fe, FalseNorthing: fn, Unit: unit,
		})
	case "lambert_conformal_conic", "lambert_conformal_conic_2sp":
		if !ok1 || !ok2 {
			return CRS{}, eris.Wrap(model.ErrGeometry, "projection: Lambert needs two standard parallels")
		}
		crs.proj = NewLambert(LambertParams{
			Ellipsoid: ellipsoid, Lat1: lat1, Lat2: lat2, Lat0: lat0, Lon0: lon0,
			FalseEasting: fe, FalseNorthing: fn, Unit: unit,
		})
	case "mercator_auxiliary_sphere", "popular_visualisation_pseudo_mercator":
		return WebMercator, nil
	default:
		return CRS{}, eris.Wrapf(model.ErrGeometry, "projection: unsupported method %q", method.name())
	}
	return crs, nil
}
