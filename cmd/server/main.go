package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"trenchline.gg/internal/catalogs"
	"trenchline.gg/internal/gacha"
	"trenchline.gg/internal/persistence/kvstore"
	persistlog "trenchline.gg/internal/persistence/log"
	"trenchline.gg/internal/persistence/savefile"
	"trenchline.gg/internal/session"
	"trenchline.gg/internal/tuning"
)

// prefShouldLoad is set by the menu when the next session should resume
// the default save.
const prefShouldLoad = "ShouldLoadGame"

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		loadName   = flag.String("load", "", "save name or path to load at startup (optional)")
		disableKV  = flag.Bool("disable_kv", false, "disable the sqlite prefs store (no save fallback)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp, *dataDir)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	_ = os.MkdirAll(tune.Saves.Dir, 0o755)

	var kv *kvstore.DB
	if !*disableKV {
		kv, err = kvstore.Open(tune.Saves.KVPath)
		if err != nil {
			logger.Printf("kv store disabled: %v", err)
			kv = nil
		} else {
			defer kv.Close()
		}
	}
	store := savefile.NewFallback(kv, savefile.Mode(tune.Saves.Fallback), logger)

	spinLog := persistlog.NewSpinLogger(*dataDir)
	auditLog := persistlog.NewAuditLogger(*dataDir)
	defer spinLog.Close()
	defer auditLog.Close()

	g, err := session.New(session.Config{
		Tuning:   tune,
		Catalogs: cats,
		Store:    store,
		Src:      gacha.NewSource(tune.SlotMachine.Seed),
		Spins:    spinLog,
		Audit:    auditLog,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalf("session: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if name, ok := startupSave(ctx, *loadName, kv, logger); ok {
		// -load comes from the operator, so it may name any path.
		load := g.Load
		if name != "" {
			load = g.LoadFile
		}
		rep, err := load(name)
		if err != nil {
			logger.Printf("load %q: %v (starting fresh)", name, err)
		} else {
			logger.Printf("resumed %s: %d soldiers, %d points", rep.Path, rep.Soldiers, rep.Points)
		}
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newMux(g, logger, envBool("TL_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// startupSave picks the save to resume: -load wins, otherwise the
// ShouldLoadGame pref selects the default save ("") and is cleared.
func startupSave(ctx context.Context, flagName string, kv *kvstore.DB, logger *log.Logger) (string, bool) {
	if n := strings.TrimSpace(flagName); n != "" {
		return n, true
	}
	if kv == nil {
		return "", false
	}
	v, err := kv.GetInt(ctx, prefShouldLoad, 0)
	if err != nil {
		logger.Printf("prefs %s: %v", prefShouldLoad, err)
		return "", false
	}
	if v != 1 {
		return "", false
	}
	if err := kv.SetInt(ctx, prefShouldLoad, 0); err != nil {
		logger.Printf("prefs %s: %v", prefShouldLoad, err)
	}
	return "", true
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
