// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/claudie-tui/internal/output"
	"github.com/jeranaias/claudie-tui/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// RenderCodeBlock renders one extracted block with a language badge, line
// numbers and syntax highlighting, boxed to width.
func RenderCodeBlock(block output.CodeBlock, width int, isDark bool) string {
	code := strings.TrimRight(block.Code, "\n")
	lines := strings.Split(highlightCode(code, block.Language, isDark), "\n")

	gutter := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Width(len(fmt.Sprint(len(lines)))).
		Align(lipgloss.Right).
		MarginRight(1)

	var sb strings.Builder
	if block.Language != "" && block.Language != output.PlainLanguage {
		sb.WriteString(lipgloss.NewStyle().
			Foreground(styles.TextInverse).
			Background(styles.Cyan).
			Padding(0, 1).
			Bold(true).
			Render(block.Language))
		sb.WriteString("\n")
	}
	for i, line := range lines {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(gutter.Render(fmt.Sprint(i + 1)))
		sb.WriteString(line)
	}

	maxWidth := max(width, 20)
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(0, 1).
		MaxWidth(maxWidth).
		Render(sb.String())
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// highlightCode returns code with terminal color escapes, or code unchanged
// when no lexer applies or formatting fails.
func highlightCode(code, language string, isDark bool) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		return code
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "github"
	if isDark {
		styleName = "monokai"
	}
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
