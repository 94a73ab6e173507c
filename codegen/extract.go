package codegen

import (
	"context"
	"fmt"
	"log"
	"regexp"

	"github.com/ManojINaik/manimAnimationAgent/llm"
)

var codeFenceRe = regexp.MustCompile("(?s)```python\n(.*?)\n```")

// ExtractionError reports that no code block could be obtained from the model
// after the configured number of re-prompts. Fatal for the scene.
type ExtractionError struct {
	Attempts int
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract code block after %d attempts", e.Attempts)
}

// ExtractCode pulls the fenced python block out of a response. When the fence
// is missing it re-prompts the model with an explicit return-code-only
// instruction, up to maxRetries attempts. Shared by generation and the
// model-backed fix tiers.
func ExtractCode(ctx context.Context, model llm.Generator, response string, maxRetries int, meta llm.Metadata) (string, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		if m := codeFenceRe.FindStringSubmatch(response); m != nil {
			return m[1], nil
		}

		if attempt == maxRetries-1 {
			break
		}
		log.Printf("Attempt %d: failed to extract code block, re-prompting...", attempt+1)

		retryPrompt := fmt.Sprintf(`Please return the Python code from your previous response inside a single
`+"```python"+` fenced block. You MUST NOT include any other text or comments.
You MUST return the exact same code as in the previous response, NO CONTENT EDITING is allowed.
Previous response:
%s`, response)

		retryMeta := meta
		retryMeta.GenerationName = fmt.Sprintf("%s_format_retry_%d", meta.GenerationName, attempt+1)
		var err error
		response, err = model.Generate(ctx, retryPrompt, retryMeta)
		if err != nil {
			return "", fmt.Errorf("extraction re-prompt failed: %w", err)
		}
	}
	return "", &ExtractionError{Attempts: maxRetries}
}
