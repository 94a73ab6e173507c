package codegen

import "testing"

func TestInferSceneType(t *testing.T) {
	tests := []struct {
		implementation string
		want           string
	}{
		{"plot the function on Axes with a graph of x squared", "graph"},
		{"show the quadratic formula as an equation using MathTex", "formula"},
		{"animate the transform between the two shapes", "animation"},
		{"display the title text and a label", "text"},
		{"draw a circle inscribed in a triangle", "geometry"},
		{"rotate the 3D sphere around the camera", "3d"},
		{"something else entirely", "general"},
		{"", "general"},
	}
	for _, tt := range tests {
		if got := InferSceneType(tt.implementation); got != tt.want {
			t.Errorf("InferSceneType(%q) = %q, want %q", tt.implementation, got, tt.want)
		}
	}
}
