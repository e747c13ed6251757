package pagemd

import (
	"fmt"
	"strings"
)

// Render produces the canonical markdown for a block slice. Canonical means
// deterministic byte-for-byte output for the same blocks regardless of
// field ordering upstream in the block tree — the property the hasher
// depends on (spec.md §4.1).
func Render(blocks []Block) (string, error) {
	var sb strings.Builder

	for i, b := range blocks {
		line, err := renderBlock(b)
		if err != nil {
			return "", fmt.Errorf("pagemd: rendering block %d (%s): %w", i, b.Type, err)
		}

		sb.WriteString(line)
		sb.WriteString("\n")

		if i != len(blocks)-1 {
			sb.WriteString("\n")
		}
	}

	out := sb.String()
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}

	return out, nil
}

func renderBlock(b Block) (string, error) {
	switch b.Type {
	case BlockParagraph:
		return b.Text, nil
	case BlockHeading1:
		return "# " + b.Text, nil
	case BlockHeading2:
		return "## " + b.Text, nil
	case BlockHeading3:
		return "### " + b.Text, nil
	case BlockBulletItem:
		return "- " + b.Text, nil
	case BlockNumberItem:
		return "1. " + b.Text, nil
	case BlockCode:
		return "```" + b.Language + "\n" + b.Text + "\n```", nil
	case BlockQuote:
		return "> " + b.Text, nil
	case BlockDivider:
		return "---", nil
	default:
		return "", fmt.Errorf("pagemd: %w: unknown block type %q", ErrUnsupportedBlock, b.Type)
	}
}

// RenderWithFrontmatter prepends a YAML frontmatter section (database entry
// properties) to the rendered body, per spec.md §6.2.
func RenderWithFrontmatter(blocks []Block, properties map[string]any) (string, error) {
	body, err := Render(blocks)
	if err != nil {
		return "", err
	}

	if len(properties) == 0 {
		return body, nil
	}

	fm, err := encodeFrontmatter(properties)
	if err != nil {
		return "", err
	}

	return fm + body, nil
}
