package pagemd

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedBlock is wrapped into an error whenever a block carries a
// type neither renderBlock nor parseLine knows how to handle — surfaced by
// the engine as a sticky conversion error (spec.md §7 item 3).
var ErrUnsupportedBlock = errors.New("pagemd: unsupported block type")

// ErrMalformedFrontmatter is returned when a file opens with a frontmatter
// delimiter but the YAML between the fences does not parse.
var ErrMalformedFrontmatter = errors.New("pagemd: malformed frontmatter")

const frontmatterDelim = "---"

// Parse splits markdown into YAML frontmatter (database entry properties,
// nil for leaf pages with none) and a block slice, per spec.md §6.2.
func Parse(markdown string) ([]Block, map[string]any, error) {
	body := markdown
	var properties map[string]any

	if fm, rest, ok := splitFrontmatter(markdown); ok {
		props, err := decodeFrontmatter(fm)
		if err != nil {
			return nil, nil, err
		}

		properties = props
		body = rest
	}

	blocks, err := parseBody(body)
	if err != nil {
		return nil, nil, err
	}

	return blocks, properties, nil
}

// splitFrontmatter reports whether markdown opens with a "---" fenced YAML
// block and, if so, returns its contents plus the remaining body.
func splitFrontmatter(markdown string) (fm, rest string, ok bool) {
	if !strings.HasPrefix(markdown, frontmatterDelim+"\n") {
		return "", markdown, false
	}

	remainder := markdown[len(frontmatterDelim)+1:]

	end := strings.Index(remainder, "\n"+frontmatterDelim)
	if end == -1 {
		return "", markdown, false
	}

	fm = remainder[:end]
	rest = remainder[end+len(frontmatterDelim)+1:]
	rest = strings.TrimLeft(rest, "\n")

	return fm, rest, true
}

func decodeFrontmatter(fm string) (map[string]any, error) {
	var props map[string]any

	if err := yaml.Unmarshal([]byte(fm), &props); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrontmatter, err)
	}

	return props, nil
}

func encodeFrontmatter(properties map[string]any) (string, error) {
	out, err := yaml.Marshal(properties)
	if err != nil {
		return "", fmt.Errorf("pagemd: encoding frontmatter: %w", err)
	}

	return frontmatterDelim + "\n" + string(out) + frontmatterDelim + "\n\n", nil
}

// parseBody splits the body into paragraphs/headings/list items/code
// fences/quotes/dividers on blank-line-separated chunks. It is deliberately
// simple — the sync engine only needs a stable, invertible mapping between
// canonical markdown and blocks, not a general markdown parser.
func parseBody(body string) ([]Block, error) {
	chunks := splitChunks(body)

	blocks := make([]Block, 0, len(chunks))

	for _, chunk := range chunks {
		b, err := parseChunk(chunk)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, b)
	}

	return blocks, nil
}

func splitChunks(body string) []string {
	raw := strings.Split(strings.TrimRight(body, "\n"), "\n\n")

	chunks := make([]string, 0, len(raw))

	for _, c := range raw {
		if strings.TrimSpace(c) == "" {
			continue
		}

		chunks = append(chunks, c)
	}

	return chunks
}

func parseChunk(chunk string) (Block, error) {
	switch {
	case chunk == "---":
		return Block{Type: BlockDivider}, nil
	case strings.HasPrefix(chunk, "### "):
		return Block{Type: BlockHeading3, Text: strings.TrimPrefix(chunk, "### ")}, nil
	case strings.HasPrefix(chunk, "## "):
		return Block{Type: BlockHeading2, Text: strings.TrimPrefix(chunk, "## ")}, nil
	case strings.HasPrefix(chunk, "# "):
		return Block{Type: BlockHeading1, Text: strings.TrimPrefix(chunk, "# ")}, nil
	case strings.HasPrefix(chunk, "- "):
		return Block{Type: BlockBulletItem, Text: strings.TrimPrefix(chunk, "- ")}, nil
	case strings.HasPrefix(chunk, "1. "):
		return Block{Type: BlockNumberItem, Text: strings.TrimPrefix(chunk, "1. ")}, nil
	case strings.HasPrefix(chunk, "> "):
		return Block{Type: BlockQuote, Text: strings.TrimPrefix(chunk, "> ")}, nil
	case strings.HasPrefix(chunk, "```"):
		return parseCodeFence(chunk)
	default:
		return Block{Type: BlockParagraph, Text: chunk}, nil
	}
}

func parseCodeFence(chunk string) (Block, error) {
	lines := strings.Split(chunk, "\n")
	if len(lines) < 2 || !strings.HasPrefix(lines[len(lines)-1], "```") {
		return Block{}, fmt.Errorf("%w: unterminated code fence", ErrUnsupportedBlock)
	}

	lang := strings.TrimPrefix(lines[0], "```")
	text := strings.Join(lines[1:len(lines)-1], "\n")

	return Block{Type: BlockCode, Text: text, Language: lang}, nil
}
