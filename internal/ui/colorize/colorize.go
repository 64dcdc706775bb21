package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Enabled reports whether colour output is allowed by the environment.
func Enabled() bool {
	return os.Getenv("ELFSTAT_NO_COLOR") == "" && os.Getenv("NO_COLOR") == ""
}

// getAssemblyLexer returns the lexer for the given syntax with fallbacks
func getAssemblyLexer(gnu bool) chroma.Lexer {
	candidates := []string{"nasm", "gas"}
	if gnu {
		candidates = []string{"gas", "nasm"}
	}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// getDisasmStyle returns the disassembly style with fallbacks
func getDisasmStyle() *chroma.Style {
	candidates := []string{"disasm-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// ColorizeInstruction highlights one instruction's text. gnu selects the
// AT&T lexer. On any failure the input is returned unchanged.
func ColorizeInstruction(text string, gnu bool) string {
	if !Enabled() {
		return text
	}

	lexer := getAssemblyLexer(gnu)
	if lexer == nil {
		return text
	}

	iterator, err := lexer.Tokenise(nil, text)
	if err != nil {
		return text
	}

	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getDisasmStyle(), iterator); err != nil {
		return text
	}
	return strings.TrimRight(buf.String(), "\n")
}
