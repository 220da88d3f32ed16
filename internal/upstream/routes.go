package upstream

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Route identifica un endpoint del provider por método y path exacto.
type Route struct {
	Method string
	Path   string
}

func (r Route) String() string { return r.Method + " " + r.Path }

// ParseRoute acepta "METHOD /path". El método se normaliza a mayúsculas y se
// ignora una barra final en el path.
func ParseRoute(s string) (Route, error) {
	f := strings.Fields(s)
	if len(f) != 2 {
		return Route{}, fmt.Errorf("upstream: route %q: want \"METHOD /path\"", s)
	}
	method := strings.ToUpper(f[0])
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return Route{}, fmt.Errorf("upstream: route %q: unsupported method %q", s, f[0])
	}
	if !strings.HasPrefix(f[1], "/") {
		return Route{}, fmt.Errorf("upstream: route %q: path must start with /", s)
	}
	return Route{Method: method, Path: cleanPath(f[1])}, nil
}

func cleanPath(p string) string {
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// IssuingRoutes es el conjunto de rutas donde el provider emite credenciales
// nuevas. Solo sus respuestas pasan por el encoder.
type IssuingRoutes struct {
	set map[Route]struct{}
}

// ParseIssuingRoutes construye el conjunto a partir de la config.
func ParseIssuingRoutes(specs []string) (IssuingRoutes, error) {
	set := make(map[Route]struct{}, len(specs))
	for _, s := range specs {
		r, err := ParseRoute(s)
		if err != nil {
			return IssuingRoutes{}, err
		}
		set[r] = struct{}{}
	}
	return IssuingRoutes{set: set}, nil
}

// Match indica si method+path es una ruta emisora.
func (ir IssuingRoutes) Match(method, path string) bool {
	if len(ir.set) == 0 {
		return false
	}
	_, ok := ir.set[Route{Method: strings.ToUpper(method), Path: cleanPath(path)}]
	return ok
}

// List devuelve las rutas ordenadas, para logs de arranque.
func (ir IssuingRoutes) List() []Route {
	out := make([]Route, 0, len(ir.set))
	for r := range ir.set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
