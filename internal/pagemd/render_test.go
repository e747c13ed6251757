package pagemd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderParseRoundTrip(t *testing.T) {
	blocks := []Block{
		{Type: BlockHeading1, Text: "Notes"},
		{Type: BlockParagraph, Text: "hello world"},
		{Type: BlockBulletItem, Text: "first"},
		{Type: BlockCode, Text: "fmt.Println(1)", Language: "go"},
	}

	md, err := Render(blocks)
	require.NoError(t, err)

	parsed, props, err := Parse(md)
	require.NoError(t, err)
	assert.Nil(t, props)
	assert.Equal(t, blocks, parsed)
}

func TestRenderSimpleBody(t *testing.T) {
	md, err := Render([]Block{{Type: BlockParagraph, Text: "hello"}})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", md)
}

func TestParseFrontmatter(t *testing.T) {
	md := "---\nstatus: todo\npriority: 1\n---\n\n# Title\n\nbody text\n"

	blocks, props, err := Parse(md)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "todo", props["status"])
	assert.Equal(t, 1, props["priority"])
}

func TestRenderWithFrontmatterRoundTrip(t *testing.T) {
	blocks := []Block{{Type: BlockParagraph, Text: "entry body"}}
	props := map[string]any{"status": "done"}

	md, err := RenderWithFrontmatter(blocks, props)
	require.NoError(t, err)

	parsedBlocks, parsedProps, err := Parse(md)
	require.NoError(t, err)
	assert.Equal(t, blocks, parsedBlocks)
	assert.Equal(t, props["status"], parsedProps["status"])
}

func TestParseUnterminatedCodeFence(t *testing.T) {
	_, _, err := Parse("```go\nfmt.Println(1)")
	require.Error(t, err)
}
