package main

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableLauncher_Resolve(t *testing.T) {
	l := NewTableLauncher([]string{"app", " TEL "}, nil)

	tests := []struct {
		name   string
		ref    string
		target string
		scheme string
		ok     bool
	}{
		{name: "host form", ref: "app://com.android.mms", target: "com.android.mms", scheme: "app", ok: true},
		{name: "host and path", ref: "app://com.android.contacts/dialer", target: "com.android.contacts/dialer", scheme: "app", ok: true},
		{name: "opaque", ref: "tel:5551234", target: "5551234", scheme: "tel", ok: true},
		{name: "scheme case folded", ref: "APP://camera", target: "camera", scheme: "app", ok: true},
		{name: "unknown scheme", ref: "intent://x", ok: false},
		{name: "empty", ref: "  ", ok: false},
		{name: "no target", ref: "app://", ok: false},
		{name: "unparseable", ref: "app://%zz", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := l.Resolve(tt.ref)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrLaunchResolution)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, a.Target)
			assert.Equal(t, tt.scheme, a.Scheme)
			_, perr := uuid.Parse(a.ID)
			assert.NoError(t, perr, "launch id is a uuid")
		})
	}
}

func TestTableLauncher_RunDispatches(t *testing.T) {
	var got []ResolvedAction
	l := NewTableLauncher([]string{"app"}, func(a ResolvedAction) error {
		got = append(got, a)
		return nil
	})

	a, err := l.Resolve("app://camera")
	require.NoError(t, err)
	require.NoError(t, l.Run(a))
	assert.Equal(t, []ResolvedAction{a}, got)

	boom := errors.New("no activity")
	l = NewTableLauncher([]string{"app"}, func(ResolvedAction) error { return boom })
	assert.ErrorIs(t, l.Run(a), boom)

	assert.NoError(t, NewTableLauncher(nil, nil).Run(a), "nil dispatcher")
}

func TestLogDispatcher(t *testing.T) {
	assert.NoError(t, logDispatcher(discardLogger())(ResolvedAction{ID: "x", Ref: "app://x"}))
}
