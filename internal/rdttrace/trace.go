// Package rdttrace writes the Wireshark-style packet trace log
// specified by spec.md §4.1: one line per SENT/RECEIVED/DROPPED
// action, truncated at process start.
package rdttrace

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// Action is a traced network event.
type Action string

const (
	Sent     Action = "SENT"
	Received Action = "RECEIVED"
	Dropped  Action = "DROPPED"
)

// PacketKind labels a traced packet's type for display purposes; it
// mirrors packet.Type without importing it, keeping this package
// usable by anything that can describe itself as DATA or ACK.
type PacketKind string

const (
	KindData PacketKind = "DATA"
	KindAck  PacketKind = "ACK"
)

// Logger appends trace lines to a truncated file. A nil *Logger is
// valid and silently discards events, matching the teacher's pattern
// of optional callback-style loggers.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// Open truncates (or creates) path and returns a Logger writing to it.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &Logger{file: f}, nil
}

// Close releases the underlying file. Safe to call on a nil Logger.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Log appends one Wireshark-style trace line:
//
//	HH:MM:SS.mmm ACTION   (src) -> (dst) - TYPE [SEQ=x, LEN=y]
func (l *Logger) Log(action Action, kind PacketKind, seq uint8, src, dst net.Addr, length int) {
	if l == nil || l.file == nil {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	line := fmt.Sprintf("%s %-8s (%s) -> (%s) - %-4s [SEQ=%d, LEN=%d]\n",
		ts, action, addrString(src), addrString(dst), kind, seq, length)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.file.WriteString(line)
}

func addrString(a net.Addr) string {
	if a == nil {
		return "unknown"
	}
	return a.String()
}
