package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Default and maximum page sizes for list endpoints.
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// ParseLimit parses the limit query parameter, defaulting to DefaultLimit.
// The limit must be between 1 and MaxLimit.
func ParseLimit(c *gin.Context) (int, error) {
	return ParseIntQuery(c, "limit", DefaultLimit, 1, MaxLimit)
}

// ParseIntQuery parses an integer query parameter within [minValue, maxValue].
// A missing parameter yields def.
func ParseIntQuery(c *gin.Context, name string, def, minValue, maxValue int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < minValue || value > maxValue {
		return 0, fmt.Errorf("invalid %s parameter: must be between %d and %d", name, minValue, maxValue)
	}
	return value, nil
}

// RequireIntQuery parses a mandatory integer query parameter within [minValue, maxValue].
func RequireIntQuery(c *gin.Context, name string, minValue, maxValue int) (int, error) {
	if raw, ok := c.GetQuery(name); !ok || raw == "" {
		return 0, fmt.Errorf("missing %s parameter", name)
	}
	return ParseIntQuery(c, name, 0, minValue, maxValue)
}

// ParseBoolQuery parses a boolean query parameter. A missing parameter yields def.
func ParseBoolQuery(c *gin.Context, name string, def bool) (bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s parameter: must be a boolean", name)
	}
	return value, nil
}
