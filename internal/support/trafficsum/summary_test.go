package trafficsum

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/protocol"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/server"
)

// buildLog produces a real traffic log through the server's logger.
func buildLog(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	logger := server.NewJSONLTrafficLogger(&buf)

	logger.LogTraffic(server.DirectionInbound, protocol.EncodeSetBreakpoint(
		protocol.SetBreakpointArgs{File: "test.sp", Line: 10, ID: 1}))
	logger.LogTraffic(server.DirectionOutbound, protocol.EncodeHasStopped(
		protocol.HasStoppedArgs{Reason: "Breakpoint", Text: "N/A"}))
	logger.LogTraffic(server.DirectionInbound, protocol.EncodeStateSwitch(
		protocol.Continue, 0))
	logger.LogTraffic(server.DirectionOutbound, protocol.EncodeEmpty(
		protocol.HasContinued))
	logger.LogTraffic(server.DirectionOutbound, protocol.EncodeHasStopped(
		protocol.HasStoppedArgs{Reason: "Step over", Text: "N/A"}))
	return buf.Bytes()
}

func TestSummarizeCountsAndReasons(t *testing.T) {
	summary, err := Summarize(buildLog(t))
	require.NoError(t, err)

	require.Equal(t, 5, summary.Messages)
	require.Equal(t, 2, summary.Inbound)
	require.Equal(t, 3, summary.Outbound)
	require.Equal(t, 2, summary.Stops)
	require.Equal(t, []string{"Breakpoint", "Step over"}, summary.StopReasons)
	require.Equal(t, 1, summary.ByType["SetBreakpoint"])
	require.Equal(t, 2, summary.ByType["HasStopped"])
	require.False(t, summary.FirstAt.IsZero())
	require.False(t, summary.LastAt.Before(summary.FirstAt))
	require.WithinDuration(t, time.Now(), summary.LastAt, time.Minute)
}

func TestSummarizeRejectsEmptyLog(t *testing.T) {
	_, err := Summarize(nil)
	require.Error(t, err)

	_, err = Summarize([]byte("\n\n"))
	require.Error(t, err)
}

func TestSummarizeRejectsBrokenLine(t *testing.T) {
	log := append(buildLog(t), []byte("{not json}\n")...)
	_, err := Summarize(log)
	require.Error(t, err)
}
