package flatten

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestDump(t *testing.T) {
	var out bytes.Buffer
	if err := Dump(context.Background(), &out, []byte("module.exports = { a: 1 };\n")); err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if !strings.HasPrefix(lines[0], "program [1:0]") {
		t.Fatalf("expected program root, got %q", lines[0])
	}
	for _, want := range []string{
		"      member_expression field=left [1:0]",
		`        identifier field=object [1:0] "module"`,
		`        property_identifier field=property [1:7] "exports"`,
		"      object field=right [1:17]",
		`          number field=value [1:22] "1"`,
	} {
		if !strings.Contains(out.String(), want+"\n") {
			t.Errorf("missing line %q in:\n%s", want, out.String())
		}
	}
}
