package main

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
)

// glogLogger routes library messages to glog. Debug messages need -v=1.
// A quiet logger drops Info messages unless -v=1 is given.
type glogLogger struct {
	quiet bool
}

func (glogLogger) Debug(msg string, kv ...any) {
	if glog.V(1) {
		glog.InfoDepth(1, format(msg, kv))
	}
}

func (l glogLogger) Info(msg string, kv ...any) {
	if l.infoEnabled() {
		glog.InfoDepth(1, format(msg, kv))
	}
}

func (glogLogger) Error(msg string, kv ...any) { glog.ErrorDepth(1, format(msg, kv)) }

func (l glogLogger) infoEnabled() bool {
	return !l.quiet || bool(glog.V(1))
}

func format(msg string, kv []any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, " %v", kv[i])
		}
	}
	return b.String()
}
