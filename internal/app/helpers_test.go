package app

import (
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/specialistvlad/dagwatch/internal/snapshot"
	"github.com/stretchr/testify/require"
)

func testutilMeta() snapshot.Metadata {
	return snapshot.Metadata{TotalNodes: 1}
}

func itoa(n int) string { return strconv.Itoa(n) }

// freePort returns a TCP port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func contains(s, sub string) bool { return strings.Contains(s, sub) }
