package termsize

import (
	"errors"
	"testing"

	"github.com/praetorian-inc/aegis-recorder/internal/testing/fakes/faketerm"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		term       *faketerm.Terminal
		wantWidth  int
		wantHeight int
	}{
		{
			name:       "no controlling terminal",
			term:       &faketerm.Terminal{},
			wantWidth:  80,
			wantHeight: 24,
		},
		{
			name:       "terminal reports size",
			term:       &faketerm.Terminal{TTY: true, Width: 142, Height: 38},
			wantWidth:  142,
			wantHeight: 38,
		},
		{
			name:       "size probe errors",
			term:       &faketerm.Terminal{TTY: true, SizeErr: errors.New("ioctl failed")},
			wantWidth:  80,
			wantHeight: 24,
		},
		{
			name:       "degenerate size",
			term:       &faketerm.Terminal{TTY: true, Width: 0, Height: 0},
			wantWidth:  80,
			wantHeight: 24,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Resolve(tt.term)
			if w != tt.wantWidth || h != tt.wantHeight {
				t.Errorf("Resolve() = (%d, %d), want (%d, %d)", w, h, tt.wantWidth, tt.wantHeight)
			}
		})
	}
}
