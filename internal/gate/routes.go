package gate

import "strings"

// RouteClass is the static admission class of a URL path. Classification is
// prefix-based and consulted on every request before any handler runs.
type RouteClass string

const (
	// RoutePublic admits everyone, credential or not.
	RoutePublic RouteClass = "public"
	// RoutePage requires any authenticated role; failures redirect to login.
	RoutePage RouteClass = "page"
	// RouteStaffPage requires teacher or admin; failures redirect.
	RouteStaffPage RouteClass = "staff_page"
	// RouteStaffAPI requires teacher or admin; failures are JSON errors.
	RouteStaffAPI RouteClass = "staff_api"
	// RouteAPI requires any authenticated role; failures are JSON errors.
	RouteAPI RouteClass = "api"
)

// Staff prefixes cover both the staff pages and their API counterparts; the
// trainee-facing page needs any authenticated role; everything else is
// public (including the launch and login endpoints themselves).
var (
	staffAPIPrefixes  = []string{"/api/admin", "/api/reports"}
	apiPrefixes       = []string{"/api/stream"}
	staffPagePrefixes = []string{"/dashboard", "/reports", "/admin"}
	pagePrefixes      = []string{"/training"}
)

// Classify returns the admission class for a request path.
func Classify(path string) RouteClass {
	switch {
	case hasAnyPrefix(path, staffAPIPrefixes):
		return RouteStaffAPI
	case hasAnyPrefix(path, apiPrefixes):
		return RouteAPI
	case hasAnyPrefix(path, staffPagePrefixes):
		return RouteStaffPage
	case hasAnyPrefix(path, pagePrefixes):
		return RoutePage
	default:
		return RoutePublic
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
