package errplain

import (
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

// detailPrinter records what an xerrors.Formatter prints, one segment per call.
type detailPrinter struct {
	segments []string
}

func (p *detailPrinter) Print(args ...interface{}) {
	p.segments = append(p.segments, fmt.Sprint(args...))
}

func (p *detailPrinter) Printf(format string, args ...interface{}) {
	p.segments = append(p.segments, fmt.Sprintf(format, args...))
}

func (p *detailPrinter) Detail() bool {
	return true
}

// xerrorsStack returns the frame detail printed by errors created with xerrors.New and
// xerrors.Errorf.  Those print their message first, then their frame.
func xerrorsStack(err error) string {
	f, ok := err.(xerrors.Formatter)
	if !ok {
		return ""
	}

	p := &detailPrinter{}
	f.FormatError(p)
	if len(p.segments) < 2 {
		return ""
	}

	detail := strings.TrimSpace(strings.Join(p.segments[1:], ""))
	return strings.ReplaceAll(detail, "\n    ", "\n\t")
}
