// Package access classifies request paths and decides whether a principal may
// enter them.
package access

import (
	"path"
	"strings"
)

// RouteClass is the protection category of a path.
type RouteClass int

const (
	Unclassified RouteClass = iota
	Public
	Passthrough
	AuthPages
	StudentArea
	AdminArea
)

func (c RouteClass) String() string {
	switch c {
	case Public:
		return "public"
	case Passthrough:
		return "passthrough"
	case AuthPages:
		return "auth"
	case StudentArea:
		return "student"
	case AdminArea:
		return "admin"
	default:
		return "unclassified"
	}
}

const (
	RootPath    = "/"
	AuthRoot    = "/auth"
	LoginPath   = "/auth/login"
	StudentRoot = "/student"
	AdminRoot   = "/admin"
)

var (
	passthroughPrefixes = []string{"/_next", "/static", "/assets", "/api", "/health", "/ready", "/metrics", "/docs"}
	assetExtensions     = map[string]struct{}{
		".svg": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".ico": {},
		".css": {}, ".js": {}, ".map": {}, ".woff": {}, ".woff2": {},
	}
)

// Classifier maps normalized paths to route classes. The zero value knows only
// the root as public.
type Classifier struct {
	public map[string]struct{}
}

// NewClassifier builds a classifier whose public set is the root plus publicPaths.
func NewClassifier(publicPaths ...string) *Classifier {
	public := map[string]struct{}{RootPath: {}}
	for _, p := range publicPaths {
		public[Normalize(p)] = struct{}{}
	}
	return &Classifier{public: public}
}

// Classify categorises p. Protected sections win over the asset rule so that
// "/admin/export.js" is still admin-only.
func (c *Classifier) Classify(p string) RouteClass {
	p = Normalize(p)

	switch {
	case underRoot(p, AdminRoot):
		return AdminArea
	case underRoot(p, StudentRoot):
		return StudentArea
	case underRoot(p, AuthRoot):
		return AuthPages
	}

	if c.isPublic(p) {
		return Public
	}
	for _, prefix := range passthroughPrefixes {
		if underRoot(p, prefix) {
			return Passthrough
		}
	}
	if _, ok := assetExtensions[strings.ToLower(path.Ext(p))]; ok {
		return Passthrough
	}
	return Unclassified
}

func (c *Classifier) isPublic(p string) bool {
	if c == nil || c.public == nil {
		return p == RootPath
	}
	_, ok := c.public[p]
	return ok
}

// Normalize cleans p, forces a leading slash and drops any trailing slash.
func Normalize(p string) string {
	if p == "" {
		return RootPath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func underRoot(p, root string) bool {
	return p == root || strings.HasPrefix(p, root+"/")
}
