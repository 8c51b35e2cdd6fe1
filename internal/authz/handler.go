package authz

import (
	"net/http"

	"github.com/openradius/openradius/internal/platform/httpx"
)

type routeView struct {
	Method     string `json:"method"`
	Pattern    string `json:"pattern"`
	Permission string `json:"permission,omitempty"`
	Source     Source `json:"source"`
}

type routesResponse struct {
	Unmapped UnmappedPolicy `json:"unmapped"`
	Routes   []routeView    `json:"routes"`
}

// RoutesHandler lists the declared entries followed by the route table, in
// the order they are evaluated.
func (e *Engine) RoutesHandler(w http.ResponseWriter, r *http.Request) {
	resp := routesResponse{Unmapped: e.unmapped, Routes: []routeView{}}
	for _, entry := range e.Declared().Entries() {
		resp.Routes = append(resp.Routes, viewOf(entry, SourceDeclared))
	}
	for _, entry := range e.table.Entries() {
		resp.Routes = append(resp.Routes, viewOf(entry, SourceTable))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func viewOf(entry RouteEntry, source Source) routeView {
	return routeView{Method: entry.Method, Pattern: entry.Pattern, Permission: entry.Permission, Source: source}
}
