package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeValkey speaks just enough RESP for the provider.
type fakeValkey struct {
	mu       sync.Mutex
	data     map[string]string
	password string
	commands []string
}

func startFakeValkey(t *testing.T, password string) (*fakeValkey, string) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { lis.Close() })

	fv := &fakeValkey{data: make(map[string]string), password: password}
	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			go fv.serve(conn)
		}
	}()
	return fv, lis.Addr().String()
}

func (f *fakeValkey) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	authed := f.password == ""
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.commands = append(f.commands, strings.ToUpper(args[0]))
		var reply string
		switch strings.ToUpper(args[0]) {
		case "AUTH":
			if args[len(args)-1] == f.password {
				authed = true
				reply = "+OK\r\n"
			} else {
				reply = "-WRONGPASS invalid password\r\n"
			}
		case "PING":
			reply = "+PONG\r\n"
		case "SET":
			f.data[args[1]] = args[2]
			reply = "+OK\r\n"
		case "GET":
			if v, ok := f.data[args[1]]; ok {
				reply = fmt.Sprintf("$%d\r\n%s\r\n", len(v), v)
			} else {
				reply = "$-1\r\n"
			}
		case "DEL":
			delete(f.data, args[1])
			reply = ":1\r\n"
		default:
			reply = "-ERR unknown command\r\n"
		}
		if !authed && strings.ToUpper(args[0]) != "AUTH" {
			reply = "-NOAUTH Authentication required\r\n"
		}
		f.mu.Unlock()
		if _, err := io.WriteString(conn, reply); err != nil {
			return
		}
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(header, "*")))
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		sizeLine, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(sizeLine, "$")))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func TestValkeyProviderRoundTrip(t *testing.T) {
	_, addr := startFakeValkey(t, "")
	provider, err := NewValkeyProvider(ValkeyConfig{Addr: addr, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	defer provider.Close()

	ctx := context.Background()
	if _, err := provider.Get(ctx, "report"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if err := provider.Set(ctx, "report", []byte("line one\r\nline two"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := provider.Get(ctx, "report")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "line one\r\nline two" {
		t.Fatalf("unexpected payload %q", got)
	}
	if err := provider.Del(ctx, "report"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := provider.Get(ctx, "report"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestValkeyProviderAuth(t *testing.T) {
	fv, addr := startFakeValkey(t, "s3cret")

	if _, err := NewValkeyProvider(ValkeyConfig{Addr: addr, Password: "wrong"}); err == nil {
		t.Fatalf("expected auth failure")
	}

	provider, err := NewValkeyProvider(ValkeyConfig{Addr: addr, Username: "default", Password: "s3cret"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if err := provider.Set(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	fv.mu.Lock()
	defer fv.mu.Unlock()
	if len(fv.commands) == 0 || fv.commands[0] != "AUTH" {
		t.Fatalf("expected AUTH before other commands, got %v", fv.commands)
	}
}

func TestValkeyProviderRequiresAddr(t *testing.T) {
	if _, err := NewValkeyProvider(ValkeyConfig{}); err == nil {
		t.Fatalf("expected error without addr")
	}
}
