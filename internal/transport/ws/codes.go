package ws

import (
	"errors"

	"trenchline.gg/internal/board"
	"trenchline.gg/internal/gacha"
	"trenchline.gg/internal/grid"
	"trenchline.gg/internal/persistence/gridcodec"
	"trenchline.gg/internal/persistence/savefile"
	"trenchline.gg/internal/protocol"
	"trenchline.gg/internal/session"
)

// CodeFor maps an error from the game layer onto its wire code.
func CodeFor(err error) string {
	var re *protocol.RequestError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &re):
		return protocol.ErrBadRequest
	case errors.Is(err, grid.ErrOutOfRange):
		return protocol.ErrOutOfRange
	case errors.Is(err, grid.ErrDuplicateCoordinate):
		return protocol.ErrDuplicateCoordinate
	case errors.Is(err, board.ErrSlotOccupied):
		return protocol.ErrConflict
	case errors.Is(err, gridcodec.ErrMalformedDocument):
		return protocol.ErrMalformedDocument
	case errors.Is(err, savefile.ErrNotFound):
		return protocol.ErrNotFound
	case errors.Is(err, gacha.ErrInvalidPool):
		return protocol.ErrInvalidPool
	case errors.Is(err, gacha.ErrInsufficientFunds):
		return protocol.ErrInsufficientFunds
	case errors.Is(err, session.ErrNoSuchReward),
		errors.Is(err, session.ErrUnknownType),
		errors.Is(err, session.ErrBadSaveName):
		return protocol.ErrBadRequest
	default:
		return protocol.ErrInternal
	}
}

func errorMsg(req protocol.Request, err error) protocol.ErrorMsg {
	return protocol.NewError(req, CodeFor(err), err.Error())
}

func wireState(st session.State) protocol.State {
	out := protocol.State{
		Points:  st.Points,
		Cols:    st.Cols,
		Rows:    st.Rows,
		Slots:   make([]protocol.Slot, 0, len(st.Slots)),
		Reserve: make([]protocol.Soldier, 0, len(st.Reserve)),
	}
	for _, s := range st.Slots {
		out.Slots = append(out.Slots, protocol.Slot{X: s.X, Y: s.Y, Type: s.Type, Tier: s.Tier, Filled: s.Filled})
	}
	for _, r := range st.Reserve {
		out.Reserve = append(out.Reserve, protocol.Soldier{Type: r.SoldierTypeName, Tier: r.SoldierTierName})
	}
	return out
}
