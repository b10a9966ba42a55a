package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"trenchline.gg/internal/protocol"
	"trenchline.gg/internal/session"
)

const (
	writeWait = 5 * time.Second
	readWait  = 60 * time.Second
	outQueue  = 16
)

type Server struct {
	game *session.Game
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(g *session.Game, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		game: g,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		out := make(chan any, outQueue)

		// Writer goroutine.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case v := <-out:
					if err := writeJSON(conn, v); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readWait))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			resp := s.Dispatch(msg)
			select {
			case out <- resp:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		cancel()
		<-done
	}
}

// Dispatch decodes one request and runs it against the game.
func (s *Server) Dispatch(msg []byte) any {
	var req protocol.Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return errorMsg(req, &protocol.RequestError{Msg: "invalid json: " + err.Error()})
	}
	if req.ProtocolVersion != "" && req.ProtocolVersion != protocol.Version {
		return errorMsg(req, &protocol.RequestError{Msg: "bad protocol_version " + req.ProtocolVersion})
	}
	if !protocol.IsRequestType(req.Type) {
		return errorMsg(req, &protocol.RequestError{Msg: "unknown type " + req.Type})
	}

	res, err := s.handle(req)
	if err != nil {
		if CodeFor(err) == protocol.ErrInternal {
			s.log.Printf("%s %s: %v", req.Type, req.ID, err)
		}
		return errorMsg(req, err)
	}
	return res
}

func (s *Server) handle(req protocol.Request) (protocol.ResultMsg, error) {
	var res protocol.ResultMsg
	switch req.Type {
	case protocol.TypeSpin:
		roll, err := s.game.Spin()
		if err != nil {
			return res, err
		}
		r := &protocol.Roll{Item: roll.Item, Rarity: roll.Rarity, Cost: roll.Cost}
		for _, p := range roll.Picks {
			r.Picks = append(r.Picks, protocol.Pick{Item: p.Item, Rarity: p.Rarity})
		}
		res.Roll = r
	case protocol.TypeBuy:
		if req.Soldier == "" {
			return res, &protocol.RequestError{Msg: "BUY requires soldier"}
		}
		if _, err := s.game.Buy(req.Soldier); err != nil {
			return res, err
		}
	case protocol.TypeEarn:
		if req.Amount <= 0 {
			return res, &protocol.RequestError{Msg: "EARN requires a positive amount"}
		}
		s.game.AddPoints(req.Amount)
	case protocol.TypePlace:
		if req.X == nil || req.Y == nil || req.Reserve == nil {
			return res, &protocol.RequestError{Msg: "PLACE requires x, y and reserve"}
		}
		if err := s.game.Place(*req.Reserve, *req.X, *req.Y); err != nil {
			return res, err
		}
	case protocol.TypeRemove:
		if req.X == nil || req.Y == nil {
			return res, &protocol.RequestError{Msg: "REMOVE requires x and y"}
		}
		if err := s.game.Remove(*req.X, *req.Y); err != nil {
			return res, err
		}
	case protocol.TypeSave:
		rep, err := s.game.Save(req.Name)
		if err != nil {
			return res, err
		}
		res.Save = &protocol.SaveInfo{Path: rep.Path, Entries: rep.Entries, Points: rep.Points, Backup: rep.Backup}
	case protocol.TypeLoad:
		rep, err := s.game.Load(req.Name)
		if err != nil {
			return res, err
		}
		res.Load = &protocol.LoadInfo{Path: rep.Path, Soldiers: rep.Soldiers, Points: rep.Points, Warnings: rep.Warnings}
	case protocol.TypeState:
	}
	roll, save, load := res.Roll, res.Save, res.Load
	res = protocol.NewResult(req, wireState(s.game.State()))
	res.Roll, res.Save, res.Load = roll, save, load
	return res, nil
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}
