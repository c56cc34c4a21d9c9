package oid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layoutpub/pkg/domain"
)

func TestIssueSequentialPerKind(t *testing.T) {
	ctx := context.Background()
	i := NewLocalIssuer("")
	a, err := i.Issue(ctx, domain.KindTrackNumber)
	require.NoError(t, err)
	b, err := i.Issue(ctx, domain.KindTrackNumber)
	require.NoError(t, err)
	s, err := i.Issue(ctx, domain.KindSwitch)
	require.NoError(t, err)
	assert.Equal(t, "1.2.246.578.13.10001.1", a)
	assert.Equal(t, "1.2.246.578.13.10001.2", b)
	assert.Equal(t, "1.2.246.578.13.10003.1", s)
}

func TestIssueErrors(t *testing.T) {
	i := NewLocalIssuer("9.9")
	_, err := i.Issue(context.Background(), domain.AssetKind("BRIDGE"))
	assert.Equal(t, domain.CodeInvalidArgument, domain.CodeOf(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = i.Issue(ctx, domain.KindSwitch)
	require.ErrorIs(t, err, context.Canceled)
}

func TestResume(t *testing.T) {
	i := NewLocalIssuer("9.9")
	i.Resume(domain.KindLocationTrack, []string{"9.9.10002.4", "9.9.10002.11", "other", "9.9.10001.50"})
	got, err := i.Issue(context.Background(), domain.KindLocationTrack)
	require.NoError(t, err)
	assert.Equal(t, "9.9.10002.12", got)
}
