package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"trenchline.gg/internal/persistence/kvstore"
)

func kvCmd(args []string) {
	fs := flag.NewFlagSet("kv", flag.ExitOnError)
	dbPath := fs.String("db", "./data/prefs.db", "sqlite prefs db path")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: admin kv [-db path] get <key> | set <key> <value> | del <key> | list [prefix]")
		os.Exit(2)
	}

	db, err := kvstore.Open(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := runKV(ctx, db, fs.Args(), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "kv:", err)
		os.Exit(1)
	}
}

func runKV(ctx context.Context, db *kvstore.DB, args []string, out io.Writer) error {
	op := strings.ToLower(args[0])
	switch {
	case op == "get" && len(args) == 2:
		v, ok, err := db.Get(ctx, args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: not set", args[1])
		}
		_, err = fmt.Fprintln(out, v)
		return err
	case op == "set" && len(args) == 3:
		return db.Set(ctx, args[1], args[2])
	case op == "del" && len(args) == 2:
		return db.Delete(ctx, args[1])
	case op == "list" && len(args) <= 2:
		prefix := ""
		if len(args) == 2 {
			prefix = args[1]
		}
		keys, err := db.Keys(ctx, prefix)
		if err != nil {
			return err
		}
		for _, k := range keys {
			v, _, err := db.Get(ctx, k)
			if err != nil {
				return err
			}
			if len(v) > 60 {
				v = v[:57] + "..."
			}
			fmt.Fprintf(out, "%s\t%s\n", k, v)
		}
		return nil
	}
	return fmt.Errorf("bad arguments %q", args)
}
