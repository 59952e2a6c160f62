package flatten

import (
	"context"
	"fmt"
	"io"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/fpm-git/gabagool/internal/errors"
)

// maxDumpText truncates leaf text in Dump output.
const maxDumpText = 60

// Dump writes the named nodes of source's syntax tree to w, one per line and
// indented by depth, as "kind field=name text". Text is only shown for leaves.
func Dump(ctx context.Context, w io.Writer, source []byte) error {
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return errors.Wrap(err, "parsing source")
	}
	defer tree.Close()
	return dumpNode(w, tree.RootNode(), "", source, 0)
}

func dumpNode(w io.Writer, n *sitter.Node, field string, source []byte, depth int) error {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.Type())
	if n.IsMissing() {
		b.WriteString(" (missing)")
	}
	if field != "" {
		fmt.Fprintf(&b, " field=%s", field)
	}
	fmt.Fprintf(&b, " [%d:%d]", n.StartPoint().Row+1, n.StartPoint().Column)
	if n.NamedChildCount() == 0 {
		text := n.Content(source)
		if len(text) > maxDumpText {
			text = text[:maxDumpText] + "..."
		}
		fmt.Fprintf(&b, " %q", text)
	}
	if _, err := fmt.Fprintln(w, b.String()); err != nil {
		return err
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.IsNamed() {
			continue
		}
		if err := dumpNode(w, child, n.FieldNameForChild(i), source, depth+1); err != nil {
			return err
		}
	}
	return nil
}
