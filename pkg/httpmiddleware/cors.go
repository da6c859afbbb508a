package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists origins allowed to make cross-origin requests.
	// Empty, or the single entry "*", allows every origin.
	AllowOrigins []string
	// AllowHeaders lists the request headers clients may send. When empty the
	// preflight's Access-Control-Request-Headers value is echoed back.
	AllowHeaders []string
	// AllowCredentials exposes responses to credentialed requests. Credentials
	// and the wildcard origin are mutually exclusive; when both are set the
	// specific origin is echoed instead of "*".
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds. Zero omits the header.
	MaxAge int
}

const defaultAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"

// CORS returns a middleware that answers preflight requests and sets the
// CORS response headers. Origins are matched case-insensitively and the
// original casing is echoed back. Vary headers are always set so caches do
// not serve one origin's response to another.
func CORS(cfg CORSConfig) Middleware {
	allowAll := len(cfg.AllowOrigins) == 0
	allowed := make(map[string]bool, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.ToLower(o)] = true
	}
	if cfg.AllowCredentials {
		allowAll = false
	}
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")

			switch {
			case allowAll:
				h.Set("Access-Control-Allow-Origin", "*")
			case allowed[strings.ToLower(origin)] || (cfg.AllowCredentials && len(cfg.AllowOrigins) == 0):
				h.Set("Access-Control-Allow-Origin", origin)
			default:
				next.ServeHTTP(w, r)
				return
			}
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			// Preflight: request method header present on an OPTIONS request.
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				h.Set("Access-Control-Allow-Methods", defaultAllowMethods)
				if allowHeaders != "" {
					h.Set("Access-Control-Allow-Headers", allowHeaders)
				} else if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
					h.Set("Access-Control-Allow-Headers", reqHeaders)
				}
				if cfg.MaxAge != 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
