package planner

import (
	"fmt"
	"strings"
)

func promptSceneOutline(topic, description string) string {
	return fmt.Sprintf(`You are an expert at creating educational math and science animations with Manim.

Topic: %s
Description: %s

Break this topic down into an ordered list of animation scenes that together
form one coherent explanatory video. Each scene should cover a single idea and
be renderable on its own.

Wrap the full outline in <SCENE_OUTLINE> tags, and wrap each scene in numbered
tags like <SCENE_1>...</SCENE_1>, <SCENE_2>...</SCENE_2>. Inside each scene tag
give a short title and a few sentences describing what the scene shows.`, topic, description)
}

func promptVisionStoryboard(scene int, topic, description, sceneOutline string, plugins []string) string {
	return fmt.Sprintf(`You are planning scene %d of a Manim video about "%s" (%s).

Scene outline:
%s

%s

Produce a visual storyboard for this scene: the objects on screen, their layout,
and the order in which they appear and transform. Wrap your storyboard in
<SCENE_VISION_STORYBOARD_PLAN> tags.`, scene, topic, description, sceneOutline, pluginLine(plugins))
}

func promptTechnicalImplementation(scene int, topic, description, sceneOutline, storyboard string, plugins []string) string {
	return fmt.Sprintf(`You are writing the technical implementation plan for scene %d of a Manim video about "%s" (%s).

Scene outline:
%s

Storyboard:
%s

%s

Describe concretely how to implement this storyboard in Manim: which mobject
classes, animations, coordinate placements and timing to use. Wrap the plan in
<SCENE_TECHNICAL_IMPLEMENTATION_PLAN> tags.`, scene, topic, description, sceneOutline, storyboard, pluginLine(plugins))
}

func promptAnimationNarration(scene int, topic, description, sceneOutline, storyboard, technical string, plugins []string) string {
	return fmt.Sprintf(`You are writing the animation and narration plan for scene %d of a Manim video about "%s" (%s).

Scene outline:
%s

Storyboard:
%s

Technical plan:
%s

%s

Write the narration script for this scene, aligned to the animation beats, with
approximate timing. Wrap the plan in <SCENE_ANIMATION_NARRATION_PLAN> tags.`,
		scene, topic, description, sceneOutline, storyboard, technical, pluginLine(plugins))
}

func promptDetectPlugins(topic, description string) string {
	return fmt.Sprintf(`A Manim video is being produced about "%s" (%s).

From the following plugin list, select the ones relevant to this topic:
manim-physics, manim-chemistry, manim-ml, manim-circuit, manim-dsa

Return a JSON object with a "plugins" array. Return an empty array if none apply.`, topic, description)
}

func pluginLine(plugins []string) string {
	if len(plugins) == 0 {
		return "No plugins are relevant."
	}
	return "Relevant plugins: " + strings.Join(plugins, ", ")
}
