package domain

// Boundary is one node of a tenant's boundary relationship tree.
type Boundary struct {
	ID           string     `json:"id,omitempty"`
	Code         string     `json:"code"`
	BoundaryType string     `json:"boundaryType"`
	Children     []Boundary `json:"children,omitempty"`
}

// Flatten returns every code in the subtree mapped to its parent code.
func (b Boundary) Flatten() map[string]BoundaryProject {
	out := make(map[string]BoundaryProject)
	var walk func(node Boundary, parent string)
	walk = func(node Boundary, parent string) {
		out[node.Code] = BoundaryProject{Parent: parent, BoundaryType: node.BoundaryType}
		for _, child := range node.Children {
			walk(child, node.Code)
		}
	}
	walk(b, "")
	return out
}

// HierarchyLevel is one level of a boundary hierarchy definition.
type HierarchyLevel struct {
	BoundaryType       string `json:"boundaryType"`
	ParentBoundaryType string `json:"parentBoundaryType,omitempty"`
}

// BoundaryHierarchy is a tenant's ordered list of boundary types.
type BoundaryHierarchy struct {
	TenantID      string           `json:"tenantId"`
	HierarchyType string           `json:"hierarchyType"`
	Levels        []HierarchyLevel `json:"boundaryHierarchy"`
}

// OrderedTypes returns boundary types from root to leaf.
func (h BoundaryHierarchy) OrderedTypes() []string {
	parentOf := make(map[string]string, len(h.Levels))
	childOf := make(map[string]string, len(h.Levels))
	root := ""
	for _, lvl := range h.Levels {
		parentOf[lvl.BoundaryType] = lvl.ParentBoundaryType
		if lvl.ParentBoundaryType == "" {
			root = lvl.BoundaryType
		} else {
			childOf[lvl.ParentBoundaryType] = lvl.BoundaryType
		}
	}
	if root == "" {
		return nil
	}
	types := []string{root}
	seen := map[string]bool{root: true}
	for cur := childOf[root]; cur != "" && !seen[cur]; cur = childOf[cur] {
		types = append(types, cur)
		seen[cur] = true
	}
	return types
}
