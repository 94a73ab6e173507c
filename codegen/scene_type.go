package codegen

import "strings"

// sceneTypeKeywords maps scene-type tags to the keywords that select them.
// Evaluated in order; first tag with a matching keyword wins.
var sceneTypeKeywords = []struct {
	tag      string
	keywords []string
}{
	{"graph", []string{"graph", "plot", "chart", "axis", "coordinate"}},
	{"formula", []string{"formula", "equation", "math", "expression"}},
	{"animation", []string{"animate", "move", "transform", "transition"}},
	{"text", []string{"text", "title", "label", "write"}},
	{"geometry", []string{"shape", "circle", "square", "rectangle"}},
	{"3d", []string{"3d", "three", "dimensional", "cube", "sphere"}},
}

// InferSceneType maps implementation text to a scene-type tag. Used only to
// narrow memory lookups; it never changes control flow.
func InferSceneType(implementation string) string {
	text := strings.ToLower(implementation)
	for _, st := range sceneTypeKeywords {
		for _, kw := range st.keywords {
			if strings.Contains(text, kw) {
				return st.tag
			}
		}
	}
	return "general"
}
