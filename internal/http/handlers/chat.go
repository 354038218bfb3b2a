package handlers

import (
	"net/http"
	"strings"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Text string `json:"text"`
}

func (a *App) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := a.decode(w, r, &req); err != nil {
		a.badRequest(w, r, "invalid JSON payload", false)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		a.badRequest(w, r, "message is required", false)
		return
	}
	text, err := a.Generator.Chat(r.Context(), req.Message)
	if err != nil {
		a.fail(w, r, err, false)
		return
	}
	a.json(w, http.StatusOK, chatResponse{Text: text})
}
