package api

import (
	"net/http"
	"strings"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request, params map[string]string) error

type route struct {
	method  string
	path    string
	handler handlerFunc
}

func (s *Service) routes() []route {
	return []route{
		{http.MethodGet, "/status", s.status},
		{http.MethodPost, "/v1/{package}/builds", s.builds},
		{http.MethodPost, "/v1/{package}/bundles", s.bundles},
		{http.MethodPost, "/v1/{package}/apks", s.apks},
		{http.MethodPost, "/v1/{package}/builds/links", s.links},
		{http.MethodGet, "/v1/{package}/tracks", s.tracks},
	}
}

// dispatch finds the route for r. A nil route with allowed methods means the
// path exists but not for this method.
func dispatch(routes []route, r *http.Request) (*route, map[string]string, []string) {
	var allowed []string
	for i, candidate := range routes {
		params := map[string]string{}
		if !matchSegments(candidate.path, r.URL.Path, func(segment, value string) { params[segment] = value }) {
			continue
		}
		if candidate.method != r.Method {
			allowed = append(allowed, candidate.method)
			continue
		}
		return &routes[i], params, nil
	}
	return nil, nil, allowed
}

func matchSegments(pattern, urlPath string, onMatch func(segment, value string)) bool {
	patternSegments := strings.Split(strings.Trim(pattern, "/"), "/")
	urlSegments := strings.Split(strings.Trim(urlPath, "/"), "/")

	if len(patternSegments) != len(urlSegments) {
		return false
	}

	for i, segment := range patternSegments {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			if urlSegments[i] == "" {
				return false
			}
			onMatch(strings.Trim(segment, "{}"), urlSegments[i])
		} else if segment != urlSegments[i] {
			return false
		}
	}
	return true
}
