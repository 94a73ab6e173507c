package repair

import "fmt"

func promptFixError(errText, code, context string) string {
	contextSection := ""
	if context != "" {
		contextSection = "\nAdditional context:\n" + context + "\n"
	}
	return fmt.Sprintf(`You are an expert Manim developer. The following scene code failed to render.

Error:
%s

Code:
`+"```python"+`
%s
`+"```"+`
%s
Fix the error while preserving the scene's intent. The result must be complete,
self-contained, and renderable as-is.

Return ONLY the fixed code inside a single `+"```python"+` fenced block.`, errText, code, contextSection)
}

func promptSearchQuery(errText, code string) string {
	codeExcerpt := code
	if len(codeExcerpt) > 300 {
		codeExcerpt = codeExcerpt[:300]
	}
	return fmt.Sprintf(`Write a single web search query to find documentation for fixing this Manim
render error. The query MUST include the word "manim", the error type, and the
Manim class or method involved. Keep it under 300 characters. Return only the
query text, nothing else.

Error:
%s

Code excerpt:
%s`, errText, codeExcerpt)
}

func promptVisualFix(code string) string {
	return fmt.Sprintf(`You are an expert Manim developer. The attached image is a frame from the
rendered scene below. Inspect it for visual defects: elements outside the
visible frame, overlapping objects, unreadable text, or a blank canvas.

Code:
`+"```python"+`
%s
`+"```"+`

Rewrite the code to fix the visual problems you observe, preserving the scene's
intent. If the frame looks correct, return the code unchanged.

Return ONLY the code inside a single `+"```python"+` fenced block.`, code)
}
