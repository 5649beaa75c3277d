package glyph

import (
	"regexp"
)

// objectNameRe matches server-assigned object names, e.g. ::pw::Connector_7.
var objectNameRe = regexp.MustCompile(`^::pw::([A-Za-z]+)_\d+$`)

// Handle is a client-side reference to a server-resident object. It is a
// plain value: two handles with the same ID refer to the same server
// object, and copying a handle never affects the object's lifetime.
type Handle struct {
	// ID is the server-assigned object name, e.g. "::pw::Connector_1".
	ID string
	// Category is the server class of the object, e.g. "pw::Connector".
	Category string
}

// IsObjectName reports whether s has the shape of a server-assigned
// object name.
func IsObjectName(s string) bool {
	return objectNameRe.MatchString(s)
}

// newHandle wraps a server object name. The category comes from the
// registry's entry for the name's class prefix when one was learned
// earlier, else it is inferred from the literal name pattern and taught
// to the registry.
func newHandle(reg *Registry, id string) Handle {
	h := Handle{ID: id, Category: inferCategory(id)}
	if reg != nil {
		prefix := classPrefix(id)
		if info, ok := reg.Lookup(prefix); ok && info.Category != "" {
			h.Category = info.Category
		} else if prefix != "" {
			reg.Learn(prefix, CategoryInfo{Category: h.Category})
		}
	}
	return h
}

// classPrefix extracts the class portion of an object name, e.g.
// "Connector" from "::pw::Connector_7". Empty for non-object names.
func classPrefix(id string) string {
	m := objectNameRe.FindStringSubmatch(id)
	if m == nil {
		return ""
	}
	return m[1]
}

// inferCategory derives the server class from an object name. Names that
// do not match the object grammar get an empty category.
func inferCategory(id string) string {
	p := classPrefix(id)
	if p == "" {
		return ""
	}
	return "pw::" + p
}

// Equal reports whether two handles reference the same server object.
// Category is cached metadata and does not participate.
func (h Handle) Equal(other Handle) bool {
	return h.ID == other.ID
}

// IsZero reports whether the handle references nothing.
func (h Handle) IsZero() bool {
	return h.ID == ""
}

func (h Handle) String() string {
	if h.Category != "" {
		return h.Category + "(" + h.ID + ")"
	}
	return h.ID
}

// wireTarget returns the token naming this object in a command.
func (h Handle) wireTarget() string {
	return h.ID
}

// class returns the instance's server class.
func (h Handle) class() string {
	if h.Category != "" {
		return h.Category
	}
	return inferCategory(h.ID)
}
