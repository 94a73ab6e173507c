package planner

import (
	"log"
	"regexp"
	"strconv"
)

var sceneMarkerRe = regexp.MustCompile(`<SCENE_(\d+)>[^<]`)

// extractTag pulls a <TAG>...</TAG> block out of a model response. When the
// tag is missing the raw response is returned as-is: stage delimiters are a
// formatting convention, and discarding an otherwise usable plan over a missing
// tag loses more than it protects. The diagnostic makes the fallback visible.
func extractTag(text, tag string) string {
	re := regexp.MustCompile(`(?s)(<` + tag + `>.*?</` + tag + `>)`)
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	log.Printf("Warning: could not find <%s> tags, using full response", tag)
	return text
}

// CountScenes returns the number of scene markers in an outline. Assembly
// re-reads the cached outline through this to decide how many scenes to join.
func CountScenes(outline string) int {
	return len(sceneMarkerRe.FindAllString(outline, -1))
}

// sceneSection extracts the <SCENE_i> block for one scene from the outline.
// Returns "" if the block is missing.
func sceneSection(outline string, i int) string {
	n := strconv.Itoa(i)
	re := regexp.MustCompile(`(?s)(<SCENE_` + n + `>.*?</SCENE_` + n + `>)`)
	if m := re.FindStringSubmatch(outline); m != nil {
		return m[1]
	}
	return ""
}
