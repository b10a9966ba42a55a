package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	os.Exit(callAdmin(http.MethodGet, *baseURL, "/admin/v1/state", 5*time.Second))
}

func saveCmd(args []string) {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	name := fs.String("name", "", "save name (default: the server's default save)")
	_ = fs.Parse(args)

	path := "/admin/v1/save"
	if n := strings.TrimSpace(*name); n != "" {
		path += "?name=" + url.QueryEscape(n)
	}
	os.Exit(callAdmin(http.MethodPost, *baseURL, path, 10*time.Second))
}

// callAdmin prints the response body and returns the process exit code.
func callAdmin(method, baseURL, path string, timeout time.Duration) int {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		return 2
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		return 1
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		return 1
	}
	return 0
}
