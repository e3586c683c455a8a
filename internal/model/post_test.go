package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePostStatus(t *testing.T) {
	cases := []struct {
		name    string
		targets []TargetStatus
		want    PostStatus
		ok      bool
	}{
		{
			name:    "empty target set is a no-op",
			targets: nil,
			ok:      false,
		},
		{
			name:    "single success",
			targets: []TargetStatus{TargetStatusSuccess},
			want:    PostStatusPublished,
			ok:      true,
		},
		{
			name:    "all success",
			targets: []TargetStatus{TargetStatusSuccess, TargetStatusSuccess, TargetStatusSuccess},
			want:    PostStatusPublished,
			ok:      true,
		},
		{
			name:    "success mixed with pending stays scheduled",
			targets: []TargetStatus{TargetStatusSuccess, TargetStatusPending},
			want:    PostStatusScheduled,
			ok:      true,
		},
		{
			name:    "failed mixed with processing stays scheduled",
			targets: []TargetStatus{TargetStatusFailed, TargetStatusProcessing},
			want:    PostStatusScheduled,
			ok:      true,
		},
		{
			name:    "scheduled target keeps the post open",
			targets: []TargetStatus{TargetStatusScheduled},
			want:    PostStatusScheduled,
			ok:      true,
		},
		{
			name:    "all failed",
			targets: []TargetStatus{TargetStatusFailed, TargetStatusFailed},
			want:    PostStatusFailed,
			ok:      true,
		},
		{
			name:    "success mixed with failed only changes nothing",
			targets: []TargetStatus{TargetStatusSuccess, TargetStatusFailed},
			ok:      false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolvePostStatus(tc.targets)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestResolvePostStatusPublishedOnlyWhenAllSuccess(t *testing.T) {
	// published must never be reachable while any target is non-success
	nonSuccess := []TargetStatus{
		TargetStatusPending, TargetStatusScheduled, TargetStatusProcessing, TargetStatusFailed,
	}
	for _, st := range nonSuccess {
		got, ok := ResolvePostStatus([]TargetStatus{TargetStatusSuccess, st})
		if ok {
			require.NotEqual(t, PostStatusPublished, got, "status %s", st)
		}
	}
}

func TestStatusValid(t *testing.T) {
	require.True(t, PostStatusScheduled.Valid())
	require.False(t, PostStatus("bogus").Valid())

	require.True(t, JobStatusSuccess.Terminal())
	require.True(t, JobStatusFailed.Terminal())
	require.False(t, JobStatusPending.Terminal())
	require.False(t, JobStatusProcessing.Terminal())
}
