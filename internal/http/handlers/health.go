package handlers

import (
	"net/http"
)

// upstreamInfo is implemented by generators that can describe their upstream.
type upstreamInfo interface {
	HasCredentials() bool
	ImageModel() string
}

type healthResponse struct {
	Status     string `json:"status"`
	Upstream   string `json:"upstream,omitempty"`
	ImageModel string `json:"imageModel,omitempty"`
}

// Health always answers 200 so liveness checks pass while the API key is missing;
// upstream reports "missing" in that case.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if info, ok := a.Generator.(upstreamInfo); ok {
		resp.Upstream = "configured"
		if !info.HasCredentials() {
			resp.Upstream = "missing"
		}
		resp.ImageModel = info.ImageModel()
	}
	a.json(w, http.StatusOK, resp)
}
