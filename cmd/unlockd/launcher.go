package main

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ResolvedAction is a launch reference matched to a handler.
type ResolvedAction struct {
	ID     string `json:"id"`
	Ref    string `json:"ref"`
	Scheme string `json:"scheme"`
	Target string `json:"target"`
}

// Launcher resolves action references and runs them.
type Launcher interface {
	// Resolve fails with ErrLaunchResolution when ref is malformed or no
	// handler exists for it.
	Resolve(ref string) (ResolvedAction, error)
	Run(ResolvedAction) error
}

// Dispatcher delivers a resolved action to whatever starts apps.
type Dispatcher func(ResolvedAction) error

// TableLauncher resolves references by URI scheme against a fixed table.
type TableLauncher struct {
	schemes  map[string]struct{}
	dispatch Dispatcher
}

// NewTableLauncher accepts references whose scheme is listed in schemes.
func NewTableLauncher(schemes []string, dispatch Dispatcher) *TableLauncher {
	l := &TableLauncher{
		schemes:  make(map[string]struct{}, len(schemes)),
		dispatch: dispatch,
	}
	for _, s := range schemes {
		l.schemes[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return l
}

func (l *TableLauncher) Resolve(ref string) (ResolvedAction, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ResolvedAction{}, fmt.Errorf("%w: empty reference", ErrLaunchResolution)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ResolvedAction{}, fmt.Errorf("%w: %w", ErrLaunchResolution, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if _, ok := l.schemes[scheme]; !ok {
		return ResolvedAction{}, fmt.Errorf("%w: no handler for scheme %q", ErrLaunchResolution, scheme)
	}

	target := u.Opaque
	if target == "" {
		target = strings.TrimPrefix(u.Host+u.Path, "/")
	}
	if target == "" {
		return ResolvedAction{}, fmt.Errorf("%w: %q has no target", ErrLaunchResolution, ref)
	}

	return ResolvedAction{
		ID:     uuid.NewString(),
		Ref:    ref,
		Scheme: scheme,
		Target: target,
	}, nil
}

func (l *TableLauncher) Run(a ResolvedAction) error {
	if l.dispatch == nil {
		return nil
	}
	return l.dispatch(a)
}

// logDispatcher only records launches. It is used when no bus is configured.
func logDispatcher(logger *slog.Logger) Dispatcher {
	return func(a ResolvedAction) error {
		logger.Info("launch", "id", a.ID, "ref", a.Ref, "scheme", a.Scheme, "target", a.Target)
		return nil
	}
}
