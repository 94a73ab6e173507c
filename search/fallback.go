package search

import (
	"regexp"
	"strings"
)

const maxQueryLen = 400

// manimObjects is the priority order used to pick the class implicated by a
// traceback, most specific first.
var manimObjects = []string{
	"Polygon", "Triangle", "Square", "Circle", "Rectangle", "RegularPolygon", "Ellipse",
	"Line", "Arrow", "Vector", "Angle", "Arc", "Sector", "Annulus",
	"Text", "MathTex", "Tex", "MarkupText", "Code",
	"Sphere", "Cube", "Cylinder", "Cone", "Torus", "Surface", "ParametricSurface",
	"Transform", "ReplacementTransform", "TransformMatchingTex", "FadeIn", "FadeOut",
	"Create", "Write", "DrawBorderThenFill", "GrowFromCenter",
	"Indicate", "Flash", "Circumscribe", "Wiggle", "Rotate",
	"Scene", "VGroup", "Group", "VMobject", "Mobject",
	"NumberLine", "Axes", "Graph", "BarChart",
}

var (
	errorLineRe   = regexp.MustCompile(`(?im)^\s*(\w+(?:Error|Exception|Warning)): (.+?)$`)
	pathRe        = regexp.MustCompile(`/[\w/.-]+\.py:\d+`)
	fileLineRe    = regexp.MustCompile(`File "[^"]+", line \d+`)
	noAttributeRe = regexp.MustCompile(`has no attribute '(\w+)'`)
)

// BuildFallbackQuery builds a documentation-targeted query deterministically,
// for when no model is available to write one. The result always names manim,
// targets the official docs, and stays under the query length cap.
func BuildFallbackQuery(errorType, traceback string) string {
	parts := []string{"manim"}
	if obj := extractMainObject(traceback); obj != "" {
		parts = append(parts, obj)
	}
	if errorType != "" {
		parts = append(parts, errorType)
	}
	if phrase := extractErrorPhrase(traceback); phrase != "" {
		candidate := strings.Join(append(append([]string{}, parts...), phrase), " ")
		if len(candidate) < maxQueryLen-50 {
			parts = append(parts, phrase)
		}
	}

	query := strings.Join(parts, " ") + " site:docs.manim.community"
	if len(query) > maxQueryLen {
		query = "manim " + errorType + " site:docs.manim.community"
	}
	return query
}

// ClampQuery enforces the query length cap on model-written queries.
func ClampQuery(query string) string {
	if len(query) > maxQueryLen {
		return query[:maxQueryLen]
	}
	return query
}

// extractMainObject finds the implicated class. The match is case-sensitive:
// class names are capitalized, and a lowercase match would hit the "line 12"
// in every traceback.
func extractMainObject(traceback string) string {
	for _, obj := range manimObjects {
		if strings.Contains(traceback, obj) {
			return obj
		}
	}
	return ""
}

// extractErrorPhrase pulls the most descriptive part of the error message,
// normalized to short searchable phrases for the common cases.
func extractErrorPhrase(traceback string) string {
	m := errorLineRe.FindStringSubmatch(traceback)
	if m == nil {
		return ""
	}
	msg := strings.TrimSpace(m[2])
	msg = pathRe.ReplaceAllString(msg, "")
	msg = fileLineRe.ReplaceAllString(msg, "")

	switch {
	case strings.Contains(msg, "same number of dimensions"):
		return "all input arrays must have same number of dimensions"
	case strings.Contains(msg, "takes") && strings.Contains(msg, "argument"):
		return "takes positional argument"
	case strings.Contains(msg, "has no attribute"):
		if am := noAttributeRe.FindStringSubmatch(msg); am != nil {
			return "has no attribute " + am[1]
		}
	case strings.Contains(msg, "unexpected keyword argument"):
		return "unexpected keyword argument"
	case strings.Contains(msg, "missing") && strings.Contains(msg, "required"):
		return "missing required argument"
	}
	if len(msg) > 50 {
		msg = msg[:50]
	}
	return strings.TrimSpace(msg)
}

// FallbackSuggestions returns static guidance for when the search service is
// unreachable, keyed on what the query implicates.
func FallbackSuggestions(query string) []string {
	suggestions := []string{
		"Manual search recommended: " + query,
		"Check Manim Community documentation at docs.manim.community",
	}
	switch {
	case strings.Contains(query, "get_side_length"):
		suggestions = append(suggestions,
			"Use np.linalg.norm(vertex2 - vertex1) to calculate side length",
			"Polygon objects do not have a get_side_length() method")
	case strings.Contains(query, "Angle") && strings.Contains(query, "radius"):
		suggestions = append(suggestions,
			"Angle requires Line objects, not vertex coordinates",
			"Use Angle(line1, line2, radius=0.5)")
	case strings.Contains(query, "Point"):
		suggestions = append(suggestions,
			"Manim uses numpy arrays for coordinates, not Point objects",
			"Use np.array([x, y, z]) for vertex coordinates")
	default:
		suggestions = append(suggestions,
			"Search GitHub issues for similar problems",
			"Review Manim examples and tutorials")
	}
	return suggestions
}
