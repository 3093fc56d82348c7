// Command authctl is the operator tool for the auth store: hashing
// passwords, lifting lockouts, inspecting and revoking sessions, and load
// testing the session path.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/debtflow/authcore/attempt"
	"github.com/debtflow/authcore/kv"
	"github.com/debtflow/authcore/password"
	"github.com/debtflow/authcore/session"
	"github.com/redis/go-redis/v9"
)

const usage = `usage: authctl <command> [flags]

commands:
  hash                   read a password from stdin and print its Argon2id hash
  attempts <email> <ip>  show the failure counter and block for a pair
  unblock <email> <ip>   lift a login block and clear its counter
  sessions               count live sessions
  show <sessionId>       print a stored session record
  revoke <sessionId>     revoke a session immediately
  loadtest               seed sessions and measure authorize/login latency`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "hash":
		err = runHash(os.Stdin, os.Stdout)
	case "attempts", "unblock", "sessions", "show", "revoke":
		err = runStore(cmd, args)
	case "loadtest":
		err = runLoadTest(args)
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "authctl %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func runHash(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	plain := strings.TrimRight(line, "\r\n")
	if plain == "" {
		return errors.New("empty password")
	}

	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(plain)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}

func runStore(cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	redisURL := fs.String("redis-url", os.Getenv("REDIS_URL"), "redis URL; defaults to REDIS_URL")
	timeout := fs.Duration("timeout", 5*time.Second, "per-command timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *redisURL == "" {
		return errors.New("-redis-url or REDIS_URL is required")
	}

	opts, err := redis.ParseURL(*redisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	return dispatch(ctx, kv.NewRedis(client), cmd, fs.Args(), os.Stdout)
}

func dispatch(ctx context.Context, store kv.Store, cmd string, args []string, out io.Writer) error {
	guard := attempt.NewGuard(store, 0)
	sessions := session.NewManager(store, nil, session.Config{})

	switch cmd {
	case "attempts":
		if len(args) != 2 {
			return errors.New("expected <email> <ip>")
		}
		n, err := guard.Attempts(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		remaining, blocked, err := guard.BlockRemaining(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "attempts=%d blocked=%t remaining=%s\n", n, blocked, remaining.Round(time.Second))
	case "unblock":
		if len(args) != 2 {
			return errors.New("expected <email> <ip>")
		}
		if err := guard.Unblock(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(out, "unblocked %s from %s\n", attempt.NormalizeEmail(args[0]), args[1])
	case "sessions":
		n, err := sessions.CountActive(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d active sessions\n", n)
	case "show":
		if len(args) != 1 {
			return errors.New("expected <sessionId>")
		}
		rec, err := sessions.Get(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "session=%s user=%s email=%s created=%s\n",
			rec.SessionID, rec.UserID, rec.Email, rec.Created().UTC().Format(time.RFC3339))
	case "revoke":
		if len(args) != 1 {
			return errors.New("expected <sessionId>")
		}
		if err := sessions.Revoke(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "revoked %s\n", args[0])
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}
