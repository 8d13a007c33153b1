package prompt

import (
	"sort"
	"strings"
)

// Block is one section of a composed prompt. Higher priorities come first;
// ties are broken by ID.
type Block struct {
	ID       string
	Priority int
	Content  string
}

type Builder struct {
	blocks []Block
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Add(block Block) *Builder {
	if strings.TrimSpace(block.Content) == "" {
		return b
	}
	b.blocks = append(b.blocks, block)
	return b
}

func (b *Builder) Build() string {
	if len(b.blocks) == 0 {
		return ""
	}
	blocks := make([]Block, len(b.blocks))
	copy(blocks, b.blocks)
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Priority == blocks[j].Priority {
			return blocks[i].ID < blocks[j].ID
		}
		return blocks[i].Priority > blocks[j].Priority
	})

	var sb strings.Builder
	for i, block := range blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.TrimSpace(block.Content))
	}
	return sb.String()
}
