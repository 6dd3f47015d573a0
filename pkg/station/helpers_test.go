package station

import (
	"strings"
	"testing"

	"github.com/chaseleif/starswitch/internal/script"
)

func newTestParser(t *testing.T, input string) *script.Parser {
	t.Helper()
	return script.NewParser(strings.NewReader(input))
}

func directiveFrame(seq, dst int, text, filePath string, isFile bool) script.Directive {
	return script.Directive{
		Kind:     script.KindFrame,
		Seq:      seq,
		Dst:      dst,
		Text:     text,
		FilePath: filePath,
		IsFile:   isFile,
	}
}
