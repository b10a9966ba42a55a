package ws

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"trenchline.gg/internal/catalogs"
	"trenchline.gg/internal/protocol"
	"trenchline.gg/internal/session"
	"trenchline.gg/internal/tuning"
)

type fixed float64

func (f fixed) Float64() float64 { return float64(f) }

func newTestGame(t *testing.T) *session.Game {
	t.Helper()
	return newTestGameIn(t, t.TempDir())
}

func newTestGameIn(t *testing.T, savesDir string) *session.Game {
	t.Helper()
	cats, err := catalogs.New([]catalogs.SoldierType{
		{Name: "Rifleman", Stats: catalogs.Stats{Health: 40, Cost: 20}},
	}, nil)
	if err != nil {
		t.Fatalf("catalogs.New: %v", err)
	}
	tune := tuning.Defaults()
	tune.Board = tuning.Board{Columns: 2, Rows: 1, CellSize: 1}
	tune.Saves.Dir = savesDir
	tune.Normalize("")
	g, err := session.New(session.Config{Tuning: tune, Catalogs: cats, Src: fixed(0)})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return g
}

func dial(t *testing.T, g *session.Game) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewServer(g, nil).Handler())
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type reply struct {
	protocol.ResultMsg
	Code    string `json:"code"`
	Message string `json:"message"`
}

func roundTrip(t *testing.T, conn *websocket.Conn, req string) reply {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var r reply
	if err := conn.ReadJSON(&r); err != nil {
		t.Fatalf("read: %v", err)
	}
	return r
}

func TestServer_SpinPlaceSave(t *testing.T) {
	conn := dial(t, newTestGame(t))

	r := roundTrip(t, conn, `{"type":"SPIN","id":"s1"}`)
	if r.Type != protocol.TypeResult || r.ID != "s1" || r.Roll == nil || r.Roll.Item != "Rifleman" || r.Roll.Rarity != "Common" {
		t.Fatalf("spin reply=%+v", r)
	}
	if r.State.Points != 50 || len(r.State.Reserve) != 1 {
		t.Fatalf("state=%+v", r.State)
	}

	r = roundTrip(t, conn, `{"type":"PLACE","id":"p1","reserve":0,"x":1,"y":0}`)
	if r.Type != protocol.TypeResult || !r.State.Slots[1].Filled {
		t.Fatalf("place reply=%+v", r)
	}

	r = roundTrip(t, conn, `{"type":"PLACE","id":"p2","reserve":0,"x":1,"y":0}`)
	if r.Type != protocol.TypeError || r.Code != protocol.ErrBadRequest {
		t.Fatalf("empty reserve reply=%+v", r)
	}

	r = roundTrip(t, conn, `{"type":"SAVE","id":"v1","name":"ws"}`)
	if r.Type != protocol.TypeResult || r.Save == nil || r.Save.Entries != 1 {
		t.Fatalf("save reply=%+v", r)
	}
}

func TestServer_Errors(t *testing.T) {
	conn := dial(t, newTestGame(t))

	cases := []struct {
		req  string
		code string
	}{
		{`not json`, protocol.ErrBadRequest},
		{`{"type":"DANCE","id":"1"}`, protocol.ErrBadRequest},
		{`{"type":"STATE","id":"2","protocol_version":"0.1"}`, protocol.ErrBadRequest},
		{`{"type":"REMOVE","id":"3","x":9,"y":9}`, protocol.ErrOutOfRange},
		{`{"type":"LOAD","id":"4","name":"nope"}`, protocol.ErrNotFound},
		{`{"type":"BUY","id":"5","soldier":"Tank"}`, protocol.ErrBadRequest},
	}
	for _, tc := range cases {
		r := roundTrip(t, conn, tc.req)
		if r.Type != protocol.TypeError || r.Code != tc.code {
			t.Fatalf("%s: reply=%+v want %s", tc.req, r, tc.code)
		}
	}

	// Two spins drain the starting balance; the third is refused.
	roundTrip(t, conn, `{"type":"SPIN","id":"a"}`)
	roundTrip(t, conn, `{"type":"SPIN","id":"b"}`)
	r := roundTrip(t, conn, `{"type":"SPIN","id":"c"}`)
	if r.Code != protocol.ErrInsufficientFunds {
		t.Fatalf("third spin=%+v", r)
	}
	r = roundTrip(t, conn, `{"type":"EARN","id":"d","amount":25}`)
	if r.Type != protocol.TypeResult || r.State.Points != 25 {
		t.Fatalf("earn=%+v", r)
	}
}

func TestServer_RejectsSaveNamesOutsideSavesDir(t *testing.T) {
	root := t.TempDir()
	conn := dial(t, newTestGameIn(t, filepath.Join(root, "Saves")))
	abs := filepath.Join(t.TempDir(), "elsewhere", "abs")

	for i, name := range []string{"../escaped", "../../escaped", abs, "a/b", `..\escaped`, ".."} {
		for _, typ := range []string{protocol.TypeSave, protocol.TypeLoad} {
			b, _ := json.Marshal(protocol.Request{Type: typ, ID: fmt.Sprint(i), Name: name})
			r := roundTrip(t, conn, string(b))
			if r.Type != protocol.TypeError || r.Code != protocol.ErrBadRequest {
				t.Fatalf("%s %q: reply=%+v want %s", typ, name, r, protocol.ErrBadRequest)
			}
		}
	}
	for _, p := range []string{filepath.Join(root, "escaped.json"), filepath.Dir(abs)} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("%s was created (err=%v)", p, err)
		}
	}

	r := roundTrip(t, conn, `{"type":"SAVE","id":"ok","name":"  "}`)
	if r.Type != protocol.TypeResult || r.Save == nil || r.Save.Path != filepath.Join(root, "Saves", "MyFirstSave.json") {
		t.Fatalf("blank name save=%+v", r)
	}
}
