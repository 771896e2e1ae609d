package po_test

import (
	"testing"

	"github.com/bionicotaku/lingo-services-analysis/internal/models/po"

	"github.com/stretchr/testify/require"
)

var allStatuses = []po.VideoStatus{
	po.VideoStatusUploading,
	po.VideoStatusSTTProcessing,
	po.VideoStatusSTTCompleted,
	po.VideoStatusAIAnalyzing,
	po.VideoStatusCompleted,
	po.VideoStatusFailed,
}

func TestVideoStatus_CanTransitionTo(t *testing.T) {
	allowed := map[po.VideoStatus]map[po.VideoStatus]bool{
		po.VideoStatusUploading:     {po.VideoStatusSTTProcessing: true, po.VideoStatusFailed: true},
		po.VideoStatusSTTProcessing: {po.VideoStatusSTTCompleted: true, po.VideoStatusFailed: true},
		po.VideoStatusSTTCompleted:  {po.VideoStatusAIAnalyzing: true, po.VideoStatusFailed: true},
		po.VideoStatusAIAnalyzing:   {po.VideoStatusCompleted: true, po.VideoStatusFailed: true},
	}
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			require.Equal(t, allowed[from][to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestVideoStatus_NoBackwardEdges(t *testing.T) {
	cases := []struct {
		from po.VideoStatus
		to   po.VideoStatus
	}{
		{po.VideoStatusSTTProcessing, po.VideoStatusUploading},
		{po.VideoStatusSTTCompleted, po.VideoStatusSTTProcessing},
		{po.VideoStatusAIAnalyzing, po.VideoStatusSTTCompleted},
		{po.VideoStatusAIAnalyzing, po.VideoStatusUploading},
		{po.VideoStatusCompleted, po.VideoStatusAIAnalyzing},
		{po.VideoStatusFailed, po.VideoStatusUploading},
		{po.VideoStatusUploading, po.VideoStatusAIAnalyzing},
		{po.VideoStatusUploading, po.VideoStatusUploading},
	}
	for _, tc := range cases {
		require.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestVideoStatus_TerminalHasNoOutgoingEdges(t *testing.T) {
	for _, from := range []po.VideoStatus{po.VideoStatusCompleted, po.VideoStatusFailed} {
		require.True(t, from.Terminal())
		for _, to := range allStatuses {
			require.False(t, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	for _, s := range po.NonTerminalVideoStatuses() {
		require.False(t, s.Terminal())
		require.True(t, s.CanTransitionTo(po.VideoStatusFailed), s)
	}
}

func TestVideoStatus_Valid(t *testing.T) {
	for _, s := range allStatuses {
		require.True(t, s.Valid(), s)
	}
	require.False(t, po.VideoStatus("").Valid())
	require.False(t, po.VideoStatus("uploading").Valid())
}

func TestVideo_HasExecutionHandle(t *testing.T) {
	var nilVideo *po.Video
	require.False(t, nilVideo.HasExecutionHandle())

	empty := ""
	require.False(t, (&po.Video{AIExecutionID: &empty}).HasExecutionHandle())

	id := "exec-1"
	require.True(t, (&po.Video{AIExecutionID: &id}).HasExecutionHandle())
}
