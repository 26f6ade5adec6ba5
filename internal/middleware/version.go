package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// VersionMiddleware tags responses with the API version and rejects requests
// for versions the server does not serve.
type VersionMiddleware struct {
	supported      map[string]string
	defaultVersion string
}

func NewVersionMiddleware() *VersionMiddleware {
	return &VersionMiddleware{
		supported: map[string]string{
			"v1": "Current stable API version",
		},
		defaultVersion: "v1",
	}
}

// VersionHeader adds version information to response headers
func (vm *VersionMiddleware) VersionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-API-Version", version)
			if msg, ok := vm.supported[version]; ok {
				c.Response().Header().Set("X-API-Message", msg)
			}
			return next(c)
		}
	}
}

// APIVersionResolver resolves the API version from the request path
func (vm *VersionMiddleware) APIVersionResolver() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			version := extractVersionFromPath(c.Request().URL.Path)
			if version == "" {
				c.Set("api_version", vm.defaultVersion)
				return next(c)
			}
			if _, ok := vm.supported[version]; !ok {
				return c.JSON(http.StatusNotFound, map[string]string{
					"error":              "Unsupported API version",
					"supported_versions": strings.Join(vm.Supported(), ", "),
				})
			}
			c.Set("api_version", version)
			return next(c)
		}
	}
}

func (vm *VersionMiddleware) Supported() []string {
	versions := make([]string, 0, len(vm.supported))
	for v := range vm.supported {
		versions = append(versions, v)
	}
	return versions
}

// extractVersionFromPath returns "vN" for paths like /vN/...
func extractVersionFromPath(path string) string {
	if len(path) < 3 || path[0] != '/' || path[1] != 'v' {
		return ""
	}
	end := strings.IndexByte(path[1:], '/')
	seg := path[2:]
	if end >= 0 {
		seg = path[2 : end+1]
	}
	n, err := strconv.Atoi(seg)
	if err != nil || n <= 0 {
		return ""
	}
	return "v" + strconv.Itoa(n)
}
