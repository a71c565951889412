package handler

import (
	"net/http"

	"github.com/mcoot/xwsync/internal/api/response"
)

// Dictionary is what the health check reports about the loaded word list
type Dictionary interface {
	Name() string
	WordCount() int
}

// Health handles GET /api/v1/health
func Health(dict Dictionary) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := response.Health{Status: "ok"}
		if dict != nil {
			resp.Dictionary = dict.Name()
			resp.Words = dict.WordCount()
		}
		response.JSON(w, http.StatusOK, resp)
	}
}
