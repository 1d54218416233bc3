package audit

import (
	"net/http"
	"strings"
)

// ActionResource holds action and resource derived from an HTTP route.
type ActionResource struct {
	Action   string
	Resource string
}

var segmentResource = map[string]string{
	"stalls":  "stall",
	"reviews": "review",
	"person":  "user",
	"auth":    "session",
}

// ParseRoute maps a method and mux path template (e.g. PUT /api/stalls/update/{id}) to an
// action and resource. The first literal segment after /api names the resource; a second literal
// segment names the action (hyphens become underscores). Routes without one fall back to the
// method: POST create, PUT/PATCH update, DELETE delete, anything else get.
func ParseRoute(method, template string) ActionResource {
	segs := strings.Split(strings.Trim(template, "/"), "/")
	if len(segs) > 0 && segs[0] == "api" {
		segs = segs[1:]
	}
	if len(segs) == 0 || segs[0] == "" {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	resource, ok := segmentResource[segs[0]]
	if !ok {
		resource = segs[0]
	}
	if len(segs) > 1 && !strings.HasPrefix(segs[1], "{") {
		return ActionResource{Action: strings.ReplaceAll(segs[1], "-", "_"), Resource: resource}
	}
	return ActionResource{Action: methodToAction(method), Resource: resource}
}

func methodToAction(method string) string {
	switch strings.ToUpper(method) {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "get"
	}
}

// IsMutation reports whether requests with this method change state and should be audited.
func IsMutation(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
