package api

import (
	"net/http"
	"slices"
	"strings"

	"github.com/rs/cors"
)

// CORSMiddleware allows the comma separated origins, or every origin for
// "*". Allowed origins are echoed back so credentialed requests work.
func CORSMiddleware(allowed string) func(http.Handler) http.Handler {
	origins := parseOrigins(allowed)
	allowAll := slices.Contains(origins, "*")
	return cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return allowAll || slices.Contains(origins, origin)
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           600,
	}).Handler
}

func parseOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
