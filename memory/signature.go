package memory

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	varTokenRe   = regexp.MustCompile(`\b\w*\d+\w*\b`)
	lineNumberRe = regexp.MustCompile(`line \d+`)
	errorTypeRe  = regexp.MustCompile(`(\w+Error|\w+Exception|\w+Warning)`)
)

// NormalizeError strips variable-name-like tokens and line numbers from an
// error message so structurally similar errors collapse to the same text.
func NormalizeError(errorMessage string) string {
	normalized := strings.ToLower(errorMessage)
	normalized = lineNumberRe.ReplaceAllString(normalized, "line <NUM>")
	normalized = varTokenRe.ReplaceAllString(normalized, "<VAR>")
	return normalized
}

// ErrorType extracts the error class name from a message, or "UnknownError".
func ErrorType(errorMessage string) string {
	if m := errorTypeRe.FindString(errorMessage); m != "" {
		return m
	}
	return "UnknownError"
}

// Signature produces the lookup key for an error: the error type plus an
// 8-hex hash over the normalized message and the leading code excerpt.
func Signature(errorMessage, codeExcerpt string) string {
	if len(codeExcerpt) > 200 {
		codeExcerpt = codeExcerpt[:200]
	}
	combined := NormalizeError(errorMessage) + ":" + codeExcerpt
	sum := md5.Sum([]byte(combined))
	return ErrorType(errorMessage) + ":" + hex.EncodeToString(sum[:])[:8]
}
