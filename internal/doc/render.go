package doc

import (
	"regexp"
	"strings"

	"inkwell/core/internal/hashing"
	"inkwell/core/internal/util"
)

var (
	headingLineRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	blankLineRe   = regexp.MustCompile(`\n{2,}`)
)

// RenderText flattens a document to plain text: headings as #-prefixed
// lines, blocks separated by blank lines. Used for the revision archive
// and CLI display, not as an owned file format.
func RenderText(d Document) string {
	chunks := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		if b.Kind == KindHeading {
			chunks = append(chunks, strings.Repeat("#", b.HeadingLevel)+" "+b.Text)
			continue
		}
		chunks = append(chunks, b.Text)
	}
	if len(chunks) == 0 {
		return ""
	}
	return strings.Join(chunks, "\n\n") + "\n"
}

// SplitText is the import-side inverse of RenderText: blank-line
// separated chunks become blocks, single #-prefixed lines become
// headings. Block ids are generated.
func SplitText(text string) []Block {
	text = strings.TrimSpace(hashing.Normalize(text))
	if text == "" {
		return nil
	}
	var blocks []Block
	for _, chunk := range splitChunks(text) {
		if m := headingLineRe.FindStringSubmatch(chunk); m != nil && !strings.Contains(chunk, "\n") {
			blocks = append(blocks, NewHeading(util.NewID("blk"), len(m[1]), m[2]))
			continue
		}
		blocks = append(blocks, NewParagraph(util.NewID("blk"), chunk))
	}
	return blocks
}

func splitChunks(text string) []string {
	var chunks []string
	for _, raw := range blankLineRe.Split(text, -1) {
		chunk := strings.TrimSpace(raw)
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
