package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"trenchline.gg/internal/protocol"
)

// reply is a RESULT or ERROR frame.
type reply struct {
	protocol.ResultMsg
	Code    string `json:"code"`
	Message string `json:"message"`
}

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		maxSpins = flag.Int("spins", 10, "stop after this many spins")
		saveName = flag.String("save", "", "save name to write when done (empty: default save)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{conn: conn, log: logger}
	st, err := b.call(protocol.Request{Type: protocol.TypeState})
	if err != nil {
		logger.Fatalf("STATE: %v", err)
	}
	for spins := 0; spins < *maxSpins; spins++ {
		select {
		case <-stop:
			return
		default:
		}
		next, ok := nextMove(st)
		if !ok {
			break
		}
		r, err := b.call(next)
		if err != nil {
			logger.Printf("%s: %v", next.Type, err)
			break
		}
		st = r
		if next.Type != protocol.TypeSpin {
			spins--
		}
	}
	rep, err := b.call(protocol.Request{Type: protocol.TypeSave, Name: *saveName})
	if err != nil {
		logger.Fatalf("SAVE: %v", err)
	}
	logger.Printf("saved %d soldiers, %d points to %s", rep.Save.Entries, rep.Save.Points, rep.Save.Path)
}

type bot struct {
	conn *websocket.Conn
	log  *log.Logger
	seq  int
}

func (b *bot) call(req protocol.Request) (protocol.ResultMsg, error) {
	b.seq++
	req.ID = fmt.Sprintf("bot-%d", b.seq)
	req.ProtocolVersion = protocol.Version
	if err := b.conn.WriteJSON(req); err != nil {
		return protocol.ResultMsg{}, err
	}
	_ = b.conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var r reply
	if err := b.conn.ReadJSON(&r); err != nil {
		return protocol.ResultMsg{}, err
	}
	if r.Type == protocol.TypeError {
		return r.ResultMsg, fmt.Errorf("%s: %s", r.Code, r.Message)
	}
	if r.Roll != nil {
		b.log.Printf("SPIN -> %s/%s (points=%d)", r.Roll.Item, r.Roll.Rarity, r.State.Points)
	}
	return r.ResultMsg, nil
}

// nextMove places a waiting soldier into the first empty slot, otherwise spins.
// It reports false once the board is full with nothing left to place.
func nextMove(res protocol.ResultMsg) (protocol.Request, bool) {
	empty := firstEmpty(res.State.Slots)
	if len(res.State.Reserve) > 0 {
		if empty == nil {
			return protocol.Request{}, false
		}
		idx := 0
		return protocol.Request{Type: protocol.TypePlace, Reserve: &idx, X: &empty.X, Y: &empty.Y}, true
	}
	if empty == nil {
		return protocol.Request{}, false
	}
	return protocol.Request{Type: protocol.TypeSpin}, true
}

func firstEmpty(slots []protocol.Slot) *protocol.Slot {
	for i := range slots {
		if !slots[i].Filled {
			return &slots[i]
		}
	}
	return nil
}
