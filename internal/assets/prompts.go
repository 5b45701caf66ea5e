// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at
// compile time so the instruction sent to the model is reviewable as plain text.
package assets

import (
	_ "embed"
	"strings"
)

//go:embed prompts/enhance-instruction.txt
var enhanceInstruction string

// EnhanceInstruction returns the fixed instruction sent with every captured
// still: colour rendering, multi-shot resolution boost, noise reduction and
// aspect-ratio preservation, in that order.
func EnhanceInstruction() string {
	return strings.TrimSpace(enhanceInstruction)
}
