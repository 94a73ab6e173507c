package codegen

import (
	"fmt"

	"github.com/ManojINaik/manimAnimationAgent/planner"
)

func promptCodeGeneration(topic, description string, spec *planner.SceneSpec) string {
	return fmt.Sprintf(`You are an expert Manim developer. Write the complete Python source for scene %d
of a video about "%s" (%s).

Scene outline:
%s

Implementation plan:
%s

Requirements:
- Use the Manim Community edition (from manim import *).
- Define exactly one Scene subclass whose construct method builds the full scene.
- The code must be self-contained and renderable as-is: no placeholder comments,
  no external asset files unless substituted with primitive shapes.
- Keep all content within the visible frame.

Return ONLY the code inside a single `+"```python"+` fenced block.`,
		spec.Number, topic, description, spec.Outline, spec.Implementation())
}
