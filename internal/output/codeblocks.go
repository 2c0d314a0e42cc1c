// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package output

import (
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// =============================================================================
// CODE BLOCKS
// =============================================================================

// fencePattern matches a fenced block with an optional language tag.
var fencePattern = regexp.MustCompile("```(\\w+)?\\n?([\\s\\S]*?)```")

// PlainLanguage is reported when no language can be determined.
const PlainLanguage = "text"

// CodeBlock is one fenced block extracted from a reply.
type CodeBlock struct {
	Language string
	Code     string
}

// ExtractCodeBlocks returns every complete fenced block in text, in order.
// An unterminated fence at the end of a streaming reply is not returned
// until its closing fence arrives.
func ExtractCodeBlocks(text string) []CodeBlock {
	matches := fencePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	blocks := make([]CodeBlock, 0, len(matches))
	for _, m := range matches {
		code := strings.TrimRight(m[2], "\n")
		blocks = append(blocks, CodeBlock{
			Language: ResolveLanguage(m[1], code),
			Code:     code,
		})
	}
	return blocks
}

// ResolveLanguage canonicalizes a fence tag through the lexer registry
// ("golang" becomes "go"). Without a tag the code itself is analysed.
// Unknown tags are kept as written, lowercased.
func ResolveLanguage(tag, code string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))

	var lexer chroma.Lexer
	if tag != "" {
		lexer = lexers.Get(tag)
		if lexer == nil {
			return tag
		}
	} else if strings.TrimSpace(code) != "" {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		return PlainLanguage
	}

	cfg := lexer.Config()
	if len(cfg.Aliases) > 0 {
		return cfg.Aliases[0]
	}
	return strings.ToLower(cfg.Name)
}
