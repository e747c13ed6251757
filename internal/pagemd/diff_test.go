package pagemd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeNoChange(t *testing.T) {
	blocks := []Block{{Type: BlockParagraph, Text: "same"}}

	d := Compute(blocks, blocks, nil, nil)
	assert.True(t, d.IsEmpty())
}

func TestComputeUpdateInsertDelete(t *testing.T) {
	old := []Block{
		{Type: BlockParagraph, Text: "one"},
		{Type: BlockParagraph, Text: "two"},
	}
	next := []Block{
		{Type: BlockParagraph, Text: "one-edited"},
	}

	d := Compute(old, next, nil, nil)
	assert.False(t, d.IsEmpty())
	assert.Len(t, d.Ops, 2)
	assert.Equal(t, OpUpdate, d.Ops[0].Kind)
	assert.Equal(t, OpDelete, d.Ops[1].Kind)
}

func TestComputePropertiesChange(t *testing.T) {
	blocks := []Block{{Type: BlockParagraph, Text: "x"}}

	d := Compute(blocks, blocks, map[string]any{"status": "todo"}, map[string]any{"status": "done"})
	assert.False(t, d.IsEmpty())
	assert.Equal(t, "done", d.Properties["status"])
}
