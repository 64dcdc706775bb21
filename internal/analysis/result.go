package analysis

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Result is the report emitted for one analyzed file.
type Result struct {
	Filename         string `json:"filename" jsonschema:"title=Filename,description=Path of the analyzed file"`
	SHA256           string `json:"sha256" jsonschema:"title=SHA-256,description=Lowercase hex digest of the whole file,pattern=^[0-9a-f]{64}$"`
	InstructionCount int    `json:"instruction_count" jsonschema:"title=Instruction Count,description=Number of decoded instructions in the code section,minimum=0"`
	Instructions     Tally  `json:"instructions" jsonschema:"title=Instructions,description=Occurrences per mnemonic"`
}

// WriteJSON writes r as a single JSON object followed by a newline.
func (r *Result) WriteJSON(w io.Writer, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(r, "", "  ")
	} else {
		data, err = json.Marshal(r)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Markdown renders r as a markdown summary with mnemonics ordered by frequency.
func (r *Result) Markdown() string {
	var b strings.Builder

	b.WriteString("# elfstat\n\n")
	fmt.Fprintf(&b, "- **File:** `%s`\n", r.Filename)
	fmt.Fprintf(&b, "- **SHA-256:** `%s`\n", r.SHA256)
	fmt.Fprintf(&b, "- **Instructions:** %d\n", r.InstructionCount)
	fmt.Fprintf(&b, "- **Distinct mnemonics:** %d\n", len(r.Instructions))


	rows := r.Instructions.Sorted()
	if len(rows) == 0 {
		b.WriteString("\nNo instructions decoded.\n")
		return b.String()
	}

	b.WriteString("\n| Mnemonic | Count | Share |\n")
	b.WriteString("|:---------|------:|------:|\n")
	total := r.Instructions.Sum()
	for _, row := range rows {
		share := 100 * float64(row.Count) / float64(total)
		fmt.Fprintf(&b, "| `%s` | %d | %.2f%% |\n", row.Mnemonic, row.Count, share)
	}
	return b.String()
}
