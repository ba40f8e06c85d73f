package gate

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is the access class of a page path.
type Category string

const (
	CategoryOther           Category = "other"
	CategoryPublic          Category = "public"
	CategoryAuth            Category = "auth"
	CategoryProtected       Category = "protected"
	CategoryPendingApproval Category = "pending_approval"
)

//go:embed routes.yaml
var defaultRoutes []byte

// RouteTable lists path prefixes per category.
type RouteTable struct {
	Public          []string `yaml:"public"`
	Auth            []string `yaml:"auth"`
	Protected       []string `yaml:"protected"`
	PendingApproval []string `yaml:"pending_approval"`
}

// DefaultRoutes returns the built-in route table.
func DefaultRoutes() RouteTable {
	t, err := ParseRoutes(defaultRoutes)
	if err != nil {
		panic(fmt.Sprintf("gate: embedded routes: %v", err))
	}
	return t
}

// LoadRoutes reads a route table from a YAML file. An empty path yields the defaults.
func LoadRoutes(path string) (RouteTable, error) {
	if path == "" {
		return DefaultRoutes(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return RouteTable{}, fmt.Errorf("read routes file: %w", err)
	}
	return ParseRoutes(data)
}

// ParseRoutes decodes and validates a YAML route table.
func ParseRoutes(data []byte) (RouteTable, error) {
	var t RouteTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return RouteTable{}, fmt.Errorf("parse routes: %w", err)
	}
	for _, group := range t.groups() {
		for _, route := range group.routes {
			if !strings.HasPrefix(route, "/") {
				return RouteTable{}, fmt.Errorf("%s route %q must start with /", group.category, route)
			}
			if route != "/" && strings.HasSuffix(route, "/") {
				return RouteTable{}, fmt.Errorf("%s route %q must not end with /", group.category, route)
			}
		}
	}
	return t, nil
}

type routeGroup struct {
	category Category
	routes   []string
}

// groups orders categories from most to least restrictive; on equal-length
// matches the earlier group wins.
func (t RouteTable) groups() []routeGroup {
	return []routeGroup{
		{CategoryProtected, t.Protected},
		{CategoryPendingApproval, t.PendingApproval},
		{CategoryAuth, t.Auth},
		{CategoryPublic, t.Public},
	}
}

// Classify returns the category of the longest route matching path. A route
// matches when it equals path or is a prefix followed by "/".
func (t RouteTable) Classify(path string) Category {
	best, bestLen := CategoryOther, -1
	for _, group := range t.groups() {
		for _, route := range group.routes {
			if matches(path, route) && len(route) > bestLen {
				best, bestLen = group.category, len(route)
			}
		}
	}
	return best
}

func matches(path, route string) bool {
	if path == route {
		return true
	}
	if route == "/" {
		return false
	}
	return strings.HasPrefix(path, route+"/")
}
