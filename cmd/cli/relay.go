package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"

	"github.com/and161185/cryptachat/internal/api"
	cc "github.com/and161185/cryptachat/internal/crypto/clientcrypto"
	grpcserver "github.com/and161185/cryptachat/internal/server/grpc"
)

const kekSaltLen = 16

// relayAPI is the part of the relay client used for messaging.
type relayAPI interface {
	GetKey(ctx context.Context, in *api.GetKeyRequest, opts ...grpc.CallOption) (*api.KeyResponse, error)
	SendMessage(ctx context.Context, in *api.SendMessageRequest, opts ...grpc.CallOption) (*api.SendMessageResponse, error)
	GetMessages(ctx context.Context, in *api.GetMessagesRequest, opts ...grpc.CallOption) (*api.MessagesResponse, error)
}

// ------- keys -------

// newIdentity generates a key pair and wraps the private half with pass.
func newIdentity(pass []byte) (identityFile, error) {
	priv, pub, err := cc.GenerateKeyPair()
	if err != nil {
		return identityFile{}, err
	}
	salt, err := cc.Rand(kekSaltLen)
	if err != nil {
		return identityFile{}, err
	}
	wrapped, err := cc.WrapKey(cc.DeriveKEK(pass, salt), priv)
	if err != nil {
		return identityFile{}, err
	}
	return identityFile{PublicKey: pub.String(), KEKSalt: salt, WrappedKey: wrapped}, nil
}

// unlock recovers the private key and checks it still matches the public one.
func (id identityFile) unlock(pass []byte) (cc.PrivateKey, error) {
	priv, err := cc.UnwrapKey(cc.DeriveKEK(pass, id.KEKSalt), id.WrappedKey)
	if err != nil {
		return priv, errors.New("wrong passphrase or damaged identity file")
	}
	pub, err := priv.Public()
	if err != nil {
		return priv, err
	}
	if pub.String() != id.PublicKey {
		return priv, errors.New("identity file: public key does not match private key")
	}
	return priv, nil
}

// ------- sealing -------

// sealPair encrypts text twice: once for the sender's own key, once for the recipient's.
func sealPair(sender, recipient string, senderPub, recipientPub cc.PublicKey, text []byte) (string, string, error) {
	aad := cc.ConversationAAD(sender, recipient)
	sb, err := cc.Seal(senderPub, aad, text)
	if err != nil {
		return "", "", err
	}
	rb, err := cc.Seal(recipientPub, aad, text)
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(sb), base64.StdEncoding.EncodeToString(rb), nil
}

// openMessage decrypts the blob the relay returned for me in the conversation with partner.
func openMessage(priv cc.PrivateKey, me, partner string, m api.Message) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(m.EncryptedBlob)
	if err != nil {
		return nil, fmt.Errorf("blob encoding: %w", err)
	}
	sender, recipient := partner, me
	if m.SenderUsername == me {
		sender, recipient = me, partner
	}
	return cc.Open(priv, cc.ConversationAAD(sender, recipient), blob)
}

// sendText looks up the recipient's key, seals for both parties and sends.
func sendText(ctx context.Context, cl relayAPI, me string, id identityFile, to, text string) (*api.SendMessageResponse, error) {
	mine, err := cc.ParsePublicKey(id.PublicKey)
	if err != nil {
		return nil, err
	}
	kr, err := cl.GetKey(ctx, &api.GetKeyRequest{Username: to})
	if err != nil {
		return nil, err
	}
	theirs, err := cc.ParsePublicKey(kr.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", to, err)
	}
	sb, rb, err := sealPair(me, to, mine, theirs, []byte(text))
	if err != nil {
		return nil, err
	}
	return cl.SendMessage(ctx, &api.SendMessageRequest{RecipientUsername: to, SenderBlob: sb, RecipientBlob: rb})
}

type received struct {
	ID   int64     `json:"id"`
	From string    `json:"from"`
	At   time.Time `json:"at"`
	Text string    `json:"text,omitempty"`
	Err  string    `json:"error,omitempty"`
}

// fetchNew returns decrypted messages after since and the highest id seen.
// Messages that fail to open are reported, not fatal.
func fetchNew(ctx context.Context, cl relayAPI, me string, priv cc.PrivateKey, partner string, since int64) ([]received, int64, error) {
	resp, err := cl.GetMessages(ctx, &api.GetMessagesRequest{Username: partner, SinceID: since})
	if err != nil {
		return nil, since, err
	}
	out := make([]received, 0, len(resp.Messages))
	last := since
	for _, m := range resp.Messages {
		r := received{ID: m.ID, From: m.SenderUsername, At: m.Timestamp}
		if pt, err := openMessage(priv, me, partner, m); err != nil {
			r.Err = "cannot decrypt: " + err.Error()
		} else {
			r.Text = string(pt)
		}
		out = append(out, r)
		last = max(last, m.ID)
	}
	return out, last, nil
}

// ------- commands -------

func oneArg(name string, args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("%s: need exactly one <username>", name)
	}
	return args[0], nil
}

func credentialsFlags(name string, args []string) (string, string, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	u := fs.String("u", "", "username")
	p := fs.String("p", "", "password (prompted when empty)")
	_ = fs.Parse(args)
	if *u == "" {
		return "", "", fmt.Errorf("%s: need -u", name)
	}
	if *p == "" {
		pw, err := readSecret("password: ", os.Stdin)
		if err != nil {
			return "", "", err
		}
		*p = pw
	}
	return *u, *p, nil
}

// authed dials with the saved session and returns the username it belongs to.
func authed(ctx context.Context, tr transport) (*grpc.ClientConn, string, error) {
	token, me, err := loadToken()
	if err != nil {
		return nil, "", err
	}
	conn, _, err := dial(ctx, tr, token)
	return conn, me, err
}

func cmdKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	force := fs.Bool("force", false, "replace an existing identity")
	_ = fs.Parse(args)

	if _, err := os.Stat(identityPath()); err == nil && !*force {
		return errors.New("identity already exists (use -force to replace it; old messages become unreadable)")
	}
	pass, err := passphrase()
	if err != nil {
		return err
	}
	if pass == "" {
		return errors.New("empty passphrase")
	}
	id, err := newIdentity([]byte(pass))
	if err != nil {
		return err
	}
	if err := saveIdentity(id); err != nil {
		return err
	}
	fmt.Println(id.PublicKey)
	return nil
}

func cmdRegister(newCtx ctxFunc, tr transport, args []string) error {
	u, p, err := credentialsFlags("register", args)
	if err != nil {
		return err
	}
	ctx, cancel := newCtx()
	defer cancel()
	conn, cl, err := dial(ctx, tr, "")
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := cl.Register(ctx, &api.Credentials{Username: u, Password: p})
	if err != nil {
		return err
	}
	fmt.Println(resp.Message, resp.UserID)
	return nil
}

func cmdLogin(newCtx ctxFunc, tr transport, args []string) error {
	u, p, err := credentialsFlags("login", args)
	if err != nil {
		return err
	}
	ctx, cancel := newCtx()
	defer cancel()
	conn, cl, err := dial(ctx, tr, "")
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := cl.Login(ctx, &api.Credentials{Username: u, Password: p})
	if err != nil {
		return err
	}
	if err := saveToken(resp.Token, u, resp.ExpiresAt); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func cmdUploadKey(newCtx ctxFunc, tr transport) error {
	id, err := loadIdentity()
	if err != nil {
		return err
	}
	ctx, cancel := newCtx()
	defer cancel()
	conn, _, err := authed(ctx, tr)
	if err != nil {
		return err
	}
	defer conn.Close()

	st, err := grpcserver.NewRelayClient(conn).UploadKey(ctx, &api.UploadKeyRequest{PublicKey: id.PublicKey})
	if err != nil {
		return err
	}
	fmt.Println(st.Message)
	return nil
}

func cmdGetKey(newCtx ctxFunc, tr transport, args []string) error {
	name, err := oneArg("get-key", args)
	if err != nil {
		return err
	}
	ctx, cancel := newCtx()
	defer cancel()
	conn, _, err := authed(ctx, tr)
	if err != nil {
		return err
	}
	defer conn.Close()

	kr, err := grpcserver.NewRelayClient(conn).GetKey(ctx, &api.GetKeyRequest{Username: name})
	if err != nil {
		return err
	}
	printJSON(kr)
	return nil
}

func cmdRequest(newCtx ctxFunc, tr transport, args []string) error {
	name, err := oneArg("request", args)
	if err != nil {
		return err
	}
	ctx, cancel := newCtx()
	defer cancel()
	conn, _, err := authed(ctx, tr)
	if err != nil {
		return err
	}
	defer conn.Close()

	st, err := grpcserver.NewRelayClient(conn).RequestChat(ctx, &api.ChatRequestRequest{RecipientUsername: name})
	if err != nil {
		return err
	}
	fmt.Println(st.Message)
	return nil
}

func cmdRequests(newCtx ctxFunc, tr transport) error {
	ctx, cancel := newCtx()
	defer cancel()
	conn, _, err := authed(ctx, tr)
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := grpcserver.NewRelayClient(conn).GetChatRequests(ctx)
	if err != nil {
		return err
	}
	printJSON(resp.PendingRequests)
	return nil
}

func cmdAccept(newCtx ctxFunc, tr transport, args []string) error {
	name, err := oneArg("accept", args)
	if err != nil {
		return err
	}
	ctx, cancel := newCtx()
	defer cancel()
	conn, _, err := authed(ctx, tr)
	if err != nil {
		return err
	}
	defer conn.Close()

	st, err := grpcserver.NewRelayClient(conn).AcceptChat(ctx, &api.AcceptChatRequest{RequesterUsername: name})
	if err != nil {
		return err
	}
	fmt.Println(st.Message)
	return nil
}

func cmdContacts(newCtx ctxFunc, tr transport) error {
	ctx, cancel := newCtx()
	defer cancel()
	conn, _, err := authed(ctx, tr)
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := grpcserver.NewRelayClient(conn).GetContacts(ctx)
	if err != nil {
		return err
	}
	printJSON(resp.Contacts)
	return nil
}

func cmdSend(newCtx ctxFunc, tr transport, args []string) error {
	if len(args) < 2 {
		return errors.New("send: need <username> <text...>")
	}
	to, text := args[0], strings.Join(args[1:], " ")
	id, err := loadIdentity()
	if err != nil {
		return err
	}
	ctx, cancel := newCtx()
	defer cancel()
	conn, me, err := authed(ctx, tr)
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := sendText(ctx, grpcserver.NewRelayClient(conn), me, id, to, text)
	if err != nil {
		return err
	}
	fmt.Printf("%s (id=%d)\n", resp.Message, resp.ID)
	return nil
}

func cmdRecv(newCtx ctxFunc, tr transport, args []string) error {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		return errors.New("recv: need <username>")
	}
	partner := args[0]
	fs := flag.NewFlagSet("recv", flag.ExitOnError)
	sinceFlag := fs.Int64("since", -1, "start after this message id (default: saved cursor)")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(args[1:])

	since := *sinceFlag
	if since < 0 {
		cursors, err := loadCursors()
		if err != nil {
			return err
		}
		since = cursors[partner]
	}

	id, err := loadIdentity()
	if err != nil {
		return err
	}
	pass, err := passphrase()
	if err != nil {
		return err
	}
	priv, err := id.unlock([]byte(pass))
	if err != nil {
		return err
	}

	ctx, cancel := newCtx()
	defer cancel()
	conn, me, err := authed(ctx, tr)
	if err != nil {
		return err
	}
	defer conn.Close()

	msgs, last, err := fetchNew(ctx, grpcserver.NewRelayClient(conn), me, priv, partner, since)
	if err != nil {
		return err
	}
	if err := saveCursor(partner, last); err != nil {
		return err
	}

	if *asJSON {
		printJSON(msgs)
		return nil
	}
	for _, m := range msgs {
		text := m.Text
		if m.Err != "" {
			text = "<" + m.Err + ">"
		}
		fmt.Printf("[%d %s] %s: %s\n", m.ID, m.At.Local().Format(time.DateTime), m.From, text)
	}
	return nil
}
