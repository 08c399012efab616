// Package routes derives the route and middleware maps from file-based
// routing conventions (Next.js app and pages routers).
package routes

import (
	"path"
	"sort"
	"strings"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/source"
)

var httpMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"PATCH":   true,
	"DELETE":  true,
	"HEAD":    true,
	"OPTIONS": true,
}

// RouteID derives the stable route identity from file, method, and path.
func RouteID(file, method, routePath string) string {
	return model.ShortHash("route", file, method, routePath)
}

// IsRouteFile reports whether a path follows an API route convention.
func IsRouteFile(p string) bool {
	p = path.Clean(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(p), "./")))
	return routePathFor(p) != ""
}

// routePathFor maps a source path to its served route path, "" if not a route.
func routePathFor(p string) string {
	norm := strings.TrimPrefix(p, "src/")
	base := path.Base(norm)
	dir := path.Dir(norm)

	// App router: app/api/**/route.{ts,tsx,js,jsx}
	if stripExt(base) == "route" {
		if idx := strings.Index(dir, "app/api"); idx >= 0 && (idx == 0 || dir[idx-1] == '/') {
			return "/" + strings.TrimPrefix(dir[idx+len("app/"):], "/")
		}
		return ""
	}

	// Pages router: pages/api/**/*.{ts,js}
	if idx := strings.Index(norm, "pages/api/"); idx >= 0 && (idx == 0 || norm[idx-1] == '/') {
		rel := norm[idx+len("pages/"):]
		rel = stripExt(rel)
		rel = strings.TrimSuffix(rel, "/index")
		return "/" + rel
	}
	return ""
}

func stripExt(p string) string {
	for _, ext := range []string{".tsx", ".jsx", ".ts", ".js", ".mjs", ".cjs"} {
		if strings.HasSuffix(p, ext) {
			return strings.TrimSuffix(p, ext)
		}
	}
	return p
}

// DetectRoutes builds RouteInfo records for every exported HTTP-method
// handler in the given files. Results are sorted by (file, method).
func DetectRoutes(files []*source.File) []model.RouteInfo {
	var out []model.RouteInfo
	for _, f := range files {
		rp := routePathFor(path.Clean(strings.TrimPrefix(f.Path, "./")))
		if rp == "" {
			continue
		}
		for _, d := range f.Declarations() {
			if !d.Exported {
				continue
			}
			method := strings.ToUpper(d.Name)
			if !httpMethods[method] {
				continue
			}
			out = append(out, model.RouteInfo{
				RouteID:   RouteID(f.Path, method, rp),
				Method:    method,
				Path:      rp,
				File:      f.Path,
				StartLine: d.StartLine,
				EndLine:   d.EndLine,
			})
		}

		// Pages-router files export one default handler covering all methods;
		// record it as a single POST-capable route so write checks still apply.
		if strings.Contains(rp, "/api/") || strings.HasPrefix(rp, "/api") {
			if len(out) == 0 || out[len(out)-1].File != f.Path {
				if d, ok := defaultHandler(f); ok {
					out = append(out, model.RouteInfo{
						RouteID:   RouteID(f.Path, "ANY", rp),
						Method:    "ANY",
						Path:      rp,
						File:      f.Path,
						StartLine: d.StartLine,
						EndLine:   d.EndLine,
					})
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func defaultHandler(f *source.File) (source.Decl, bool) {
	// Only pages-router files use a default export; app-router files name
	// their handlers after methods and were already collected above.
	if !strings.Contains(f.Path, "pages/api/") {
		return source.Decl{}, false
	}
	for _, d := range f.Declarations() {
		if d.Kind == "function" && d.Exported && strings.EqualFold(d.Name, "handler") {
			return d, true
		}
	}
	return source.Decl{}, false
}

// FindRoutesInFile returns the routes declared in one file, in start order.
func FindRoutesInFile(all []model.RouteInfo, file string) []model.RouteInfo {
	var out []model.RouteInfo
	for _, r := range all {
		if r.File == file {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartLine < out[j].StartLine })
	return out
}
