// Command cryptachat is the end-user client of the relay. Messages are sealed
// locally; the server only ever sees ciphertext.
package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	grpcserver "github.com/and161185/cryptachat/internal/server/grpc"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"username"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "cryptachat")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cryptachat")
}

func tokenPath() string    { return filepath.Join(cfgDir(), "token.json") }
func identityPath() string { return filepath.Join(cfgDir(), "identity.json") }
func cursorsPath() string  { return filepath.Join(cfgDir(), "cursors.json") }

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o600)
}

func readJSONFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func saveToken(tok, username string, exp time.Time) error {
	return writeJSONFile(tokenPath(), tokenFile{AccessToken: tok, ExpiresAt: exp, Username: username})
}

// loadToken returns the saved session and the username it was issued to.
func loadToken() (string, string, error) {
	var tf tokenFile
	if err := readJSONFile(tokenPath(), &tf); err != nil {
		return "", "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, tf.Username, nil
}

// identityFile keeps the X25519 key pair; the private half is wrapped with a
// passphrase-derived key.
type identityFile struct {
	PublicKey  string `json:"public_key"`
	KEKSalt    []byte `json:"kek_salt"`
	WrappedKey []byte `json:"wrapped_key"`
}

func saveIdentity(id identityFile) error { return writeJSONFile(identityPath(), id) }

func loadIdentity() (identityFile, error) {
	var id identityFile
	if err := readJSONFile(identityPath(), &id); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return id, errors.New("no identity key (run keygen first)")
		}
		return id, err
	}
	return id, nil
}

// loadCursors returns the last seen message id per partner.
func loadCursors() (map[string]int64, error) {
	c := map[string]int64{}
	if err := readJSONFile(cursorsPath(), &c); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return c, nil
}

func saveCursor(partner string, id int64) error {
	c, err := loadCursors()
	if err != nil {
		return err
	}
	if id <= c[partner] {
		return nil
	}
	c[partner] = id
	return writeJSONFile(cursorsPath(), c)
}

// ---- grpc dial ----

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

type transport struct {
	addr      string
	caPath    string
	insecure  bool
	plaintext bool
}

func loadTLS(caPath string, insecure bool) (credentials.TransportCredentials, error) {
	if insecure {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

func dial(ctx context.Context, tr transport, bearer string) (*grpc.ClientConn, *grpcserver.RelayClient, error) {
	var creds credentials.TransportCredentials
	if tr.plaintext {
		creds = insecure.NewCredentials()
	} else {
		c, err := loadTLS(tr.caPath, tr.insecure)
		if err != nil {
			return nil, nil, err
		}
		creds = c
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if bearer != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: bearer, secure: !tr.plaintext}))
	}
	//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
	cc, err := grpc.DialContext(ctx, tr.addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return cc, grpcserver.NewRelayClient(cc), nil
}

// ---- utils ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// readSecret prompts without echo on a terminal and reads one line otherwise.
func readSecret(prompt string, in *os.File) (string, error) {
	if term.IsTerminal(int(in.Fd())) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(os.Stderr)
		return string(b), err
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// passphrase comes from CRYPTACHAT_PASSPHRASE or the terminal.
func passphrase() (string, error) {
	if v := os.Getenv("CRYPTACHAT_PASSPHRASE"); v != "" {
		return v, nil
	}
	return readSecret("key passphrase: ", os.Stdin)
}

func usage() {
	fmt.Fprintf(os.Stderr, `cryptachat CLI
Usage:
  cryptachat -addr HOST:PORT [-cacert file | -insecure | -plaintext] <cmd> [args]

Commands:
  version
  keygen     [-force]                              (new X25519 identity, passphrase-protected)
  register   -u <username> [-p <password>]
  login      -u <username> [-p <password>]         (saves token)
  logout
  upload-key                                       (publish identity public key)
  get-key    <username>
  request    <username>
  requests                                         (pending requests addressed to me)
  accept     <username>
  contacts
  send       <username> <text...>
  recv       <username> [-since <id>] [-json]      (new messages since the saved cursor)
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

const rpcTimeout = 30 * time.Second

// ctxFunc returns the context for one command's network round trips.
type ctxFunc func() (context.Context, context.CancelFunc)

// rpcContext starts the RPC deadline. Commands call it only after their
// prompts have been answered.
func rpcContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), rpcTimeout)
}

// main dispatches subcommands and configures TLS/auth for RPC calls.
func main() {
	// global flags
	var tr transport
	flag.StringVar(&tr.addr, "addr", "localhost:8443", "server addr")
	flag.StringVar(&tr.caPath, "cacert", "", "CA cert (PEM)")
	flag.BoolVar(&tr.insecure, "insecure", false, "skip cert verify (dev)")
	flag.BoolVar(&tr.plaintext, "plaintext", false, "no TLS (server behind a local terminator)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	var err error
	switch cmd {
	case "version":
		fmt.Printf("cryptachat %s (%s)\n", version, buildDate)
	case "keygen":
		err = cmdKeygen(args)
	case "register":
		err = cmdRegister(rpcContext, tr, args)
	case "login":
		err = cmdLogin(rpcContext, tr, args)
	case "logout":
		err = os.Remove(tokenPath())
	case "upload-key":
		err = cmdUploadKey(rpcContext, tr)
	case "get-key":
		err = cmdGetKey(rpcContext, tr, args)
	case "request":
		err = cmdRequest(rpcContext, tr, args)
	case "requests":
		err = cmdRequests(rpcContext, tr)
	case "accept":
		err = cmdAccept(rpcContext, tr, args)
	case "contacts":
		err = cmdContacts(rpcContext, tr)
	case "send":
		err = cmdSend(rpcContext, tr, args)
	case "recv":
		err = cmdRecv(rpcContext, tr, args)
	default:
		usage()
	}
	if err != nil {
		fail(err)
	}
}

// ---- helpers ----

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
