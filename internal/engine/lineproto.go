package engine

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
)

// maxLineSize bounds a single request line.
const maxLineSize = 1 << 20

// Store is the key/value surface the bundled engines expose to ServeLines.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
}

// ServeLines serves a minimal line exchange on conn:
//
//	GET <key>          -> VALUE <value> | MISS
//	PUT <key> <value>  -> OK
//	QUIT               -> connection closed
//
// Any failure is answered with "ERR <message>". It returns when the peer
// closes the connection, sends QUIT, or ctx is done.
func ServeLines(ctx context.Context, conn net.Conn, st Store, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)
	w := bufio.NewWriter(conn)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		reply, quit := handleLine(ctx, st, line)
		if quit {
			return
		}
		if _, err := w.WriteString(reply + "\n"); err != nil {
			log.Debug("write reply", "remote", conn.RemoteAddr().String(), "error", err)
			return
		}
		if err := w.Flush(); err != nil {
			log.Debug("flush reply", "remote", conn.RemoteAddr().String(), "error", err)
			return
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		log.Debug("read request", "remote", conn.RemoteAddr().String(), "error", err)
	}
}

func handleLine(ctx context.Context, st Store, line string) (reply string, quit bool) {
	verb, rest, _ := strings.Cut(line, " ")
	switch strings.ToUpper(verb) {
	case "QUIT":
		return "", true
	case "GET":
		key := strings.TrimSpace(rest)
		if key == "" {
			return "ERR missing key", false
		}
		v, ok, err := st.Get(ctx, key)
		switch {
		case err != nil:
			return fmt.Sprintf("ERR %v", err), false
		case !ok:
			return "MISS", false
		default:
			return "VALUE " + v, false
		}
	case "PUT":
		key, value, ok := strings.Cut(strings.TrimSpace(rest), " ")
		if !ok || key == "" {
			return "ERR usage: PUT <key> <value>", false
		}
		if err := st.Put(ctx, key, value); err != nil {
			return fmt.Sprintf("ERR %v", err), false
		}
		return "OK", false
	default:
		return fmt.Sprintf("ERR unknown command %q", verb), false
	}
}
