package health

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct {
	err   error
	calls int
}

func (f *fakePinger) PingContext(context.Context) error {
	f.calls++
	return f.err
}

func TestDBChecker(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"reachable", nil, false},
		{"unreachable", errors.New("dial tcp: connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakePinger{err: tt.err}
			checker := NewDBChecker(db)

			err := checker.HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Errorf("expected wrapped ping error, got %v", err)
			}
			if db.calls != 1 {
				t.Errorf("expected 1 ping, got %d", db.calls)
			}
		})
	}

	if got := NewDBChecker(&fakePinger{}).Name(); got != "database" {
		t.Errorf("Name() = %q, want database", got)
	}
}
