package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"trenchline.gg/internal/protocol"
	"trenchline.gg/internal/session"
	"trenchline.gg/internal/transport/ws"
)

func newMux(g *session.Game, logger *log.Logger, enableAdmin bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		st := g.State()
		filled := 0
		for _, s := range st.Slots {
			if s.Filled {
				filled++
			}
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP trenchline_points Current point balance.\n")
		fmt.Fprintf(rw, "# TYPE trenchline_points gauge\n")
		fmt.Fprintf(rw, "trenchline_points %d\n", st.Points)

		fmt.Fprintf(rw, "# HELP trenchline_slots Board slots by state.\n")
		fmt.Fprintf(rw, "# TYPE trenchline_slots gauge\n")
		fmt.Fprintf(rw, "trenchline_slots{state=%q} %d\n", "filled", filled)
		fmt.Fprintf(rw, "trenchline_slots{state=%q} %d\n", "empty", len(st.Slots)-filled)

		fmt.Fprintf(rw, "# HELP trenchline_reserve Unplaced soldiers.\n")
		fmt.Fprintf(rw, "# TYPE trenchline_reserve gauge\n")
		fmt.Fprintf(rw, "trenchline_reserve %d\n", len(st.Reserve))
	})

	if enableAdmin {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(g.State())
		})
		mux.HandleFunc("/admin/v1/save", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rep, err := g.Save(r.URL.Query().Get("name"))
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				code := ws.CodeFor(err)
				status := http.StatusInternalServerError
				if code == protocol.ErrBadRequest {
					status = http.StatusBadRequest
				}
				rw.WriteHeader(status)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "code": code, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "save": rep})
		})
	} else {
		logger.Printf("admin endpoints disabled (TL_ENABLE_ADMIN_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(g, logger).Handler())
	return mux
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
