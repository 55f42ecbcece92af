package cli

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWaitAll(t *testing.T) {
	tests := []struct {
		name      string
		run       func(context.Context) error
		serverErr error
		withSrv   bool
		want      string
	}{
		{
			name: "scheduler stops on cancel",
			run: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
		},
		{
			name: "scheduler error",
			run:  func(context.Context) error { return errors.New("cron broke") },
			want: "watch: cron broke",
		},
		{
			name: "server error stops scheduler",
			run: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
			withSrv:   true,
			serverErr: errors.New("address in use"),
			want:      "watch: address in use",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var serverErr chan error
			if tt.withSrv {
				serverErr = make(chan error, 1)
				serverErr <- tt.serverErr
			} else if tt.want == "" {
				time.AfterFunc(10*time.Millisecond, cancel)
			}

			done := make(chan error, 1)
			go func() { done <- waitAll(ctx, cancel, tt.run, serverErr) }()

			select {
			case err := <-done:
				if tt.want == "" {
					if err != nil {
						t.Errorf("waitAll() error = %v", err)
					}
					return
				}
				if err == nil || !strings.Contains(err.Error(), tt.want) {
					t.Errorf("waitAll() error = %v, want %q", err, tt.want)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("waitAll() did not return")
			}
		})
	}
}
