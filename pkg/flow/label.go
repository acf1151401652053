package flow

import "fmt"

// DisplayName resolves the label a node renders: properties.name, then
// data.name, then the catalog default for its type. Exclusive and inclusive
// gateways have no default and resolve to "". An empty data.name counts as
// unset, so it falls through to the default.
func DisplayName(n Node) string {
	if v, ok := n.Data.Properties["name"]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	if n.Data.Name != "" {
		return n.Data.Name
	}
	return catalog[n.Type].DefaultLabel
}
