package ws

import (
	"errors"
	"fmt"
	"testing"

	"trenchline.gg/internal/board"
	"trenchline.gg/internal/gacha"
	"trenchline.gg/internal/grid"
	"trenchline.gg/internal/persistence/gridcodec"
	"trenchline.gg/internal/persistence/savefile"
	"trenchline.gg/internal/protocol"
	"trenchline.gg/internal/session"
)

func TestCodeFor(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("load save x: %w", err) }
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&protocol.RequestError{Msg: "missing x"}, protocol.ErrBadRequest},
		{wrap(grid.ErrOutOfRange), protocol.ErrOutOfRange},
		{&grid.CollisionError{}, protocol.ErrDuplicateCoordinate},
		{wrap(board.ErrSlotOccupied), protocol.ErrConflict},
		{wrap(gridcodec.ErrMalformedDocument), protocol.ErrMalformedDocument},
		{wrap(savefile.ErrNotFound), protocol.ErrNotFound},
		{wrap(gacha.ErrInvalidPool), protocol.ErrInvalidPool},
		{wrap(gacha.ErrInsufficientFunds), protocol.ErrInsufficientFunds},
		{wrap(session.ErrNoSuchReward), protocol.ErrBadRequest},
		{wrap(session.ErrBadSaveName), protocol.ErrBadRequest},
		{errors.New("disk on fire"), protocol.ErrInternal},
	}
	for _, tc := range cases {
		got := CodeFor(tc.err)
		if got != tc.want {
			t.Fatalf("CodeFor(%v)=%q want %q", tc.err, got, tc.want)
		}
		if !protocol.IsKnownCode(got) {
			t.Fatalf("CodeFor returned unknown code %q", got)
		}
	}
}
