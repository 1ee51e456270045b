package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/spf13/cobra"

	"github.com/and161185/cryptachat/internal/model"
)

// adminAPI is implemented by *service.AdminService plus the migration version lookup.
type adminAPI interface {
	Users(ctx context.Context) ([]model.User, error)
	PublicKeys(ctx context.Context) ([]model.PublicKey, error)
	Messages(ctx context.Context) ([]model.Message, error)
	ChatRequests(ctx context.Context) ([]model.ChatRequest, error)
	Impact(ctx context.Context, userID uuid.UUID) (model.CascadeResult, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) (model.CascadeResult, error)
	SchemaVersion(ctx context.Context) (int64, error)
}

type openFunc func(ctx context.Context, dsn string) (adminAPI, error)

func newRootCmd(open openFunc, interactive func() bool, defaultDSN string) *cobra.Command {
	var (
		dsn string
		svc adminAPI
	)
	root := &cobra.Command{
		Use:          "cryptachat-admin",
		Short:        "Inspect and maintain the relay store",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), dsn)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			svc = s
			return nil
		},
	}
	root.PersistentFlags().StringVar(&dsn, "dsn", defaultDSN, "PostgreSQL DSN (CRYPTACHAT_DATABASE_DSN or DB_HOST/POSTGRES_*)")

	get := func() adminAPI { return svc }
	root.AddCommand(
		usersCmd(get),
		keysCmd(get),
		messagesCmd(get),
		requestsCmd(get),
		deleteUserCmd(get, interactive),
		schemaVersionCmd(get),
	)
	return root
}

func table(out io.Writer, header string, rows func(w io.Writer)) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, header)
	rows(w)
	return w.Flush()
}

func usersCmd(svc func() adminAPI) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := svc().Users(cmd.Context())
			if err != nil {
				return err
			}
			return table(cmd.OutOrStdout(), "ID\tUSERNAME\tCREATED", func(w io.Writer) {
				for _, u := range users {
					fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Username, u.CreatedAt.UTC().Format(time.RFC3339))
				}
			})
		},
	}
}

func keysCmd(svc func() adminAPI) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List published public keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := svc().PublicKeys(cmd.Context())
			if err != nil {
				return err
			}
			return table(cmd.OutOrStdout(), "USER ID\tPUBLIC KEY", func(w io.Writer) {
				for _, k := range keys {
					fmt.Fprintf(w, "%s\t%s\n", k.UserID, k.PublicKey)
				}
			})
		},
	}
}

func messagesCmd(svc func() adminAPI) *cobra.Command {
	return &cobra.Command{
		Use:   "messages",
		Short: "List message envelopes (ciphertext sizes only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			msgs, err := svc().Messages(cmd.Context())
			if err != nil {
				return err
			}
			return table(cmd.OutOrStdout(), "ID\tSENDER\tRECIPIENT\tTIMESTAMP\tSENDER BLOB\tRECIPIENT BLOB", func(w io.Writer) {
				for _, m := range msgs {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%dB\t%dB\n", m.ID, m.SenderID, m.RecipientID,
						m.Timestamp.UTC().Format(time.RFC3339Nano), len(m.SenderBlob), len(m.RecipientBlob))
				}
			})
		},
	}
}

func requestsCmd(svc func() adminAPI) *cobra.Command {
	return &cobra.Command{
		Use:   "requests",
		Short: "List chat requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reqs, err := svc().ChatRequests(cmd.Context())
			if err != nil {
				return err
			}
			return table(cmd.OutOrStdout(), "ID\tREQUESTER\tREQUESTED\tSTATUS", func(w io.Writer) {
				for _, r := range reqs {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.RequesterID, r.RequestedID, r.Status)
				}
			})
		},
	}
}

func schemaVersionCmd(svc func() adminAPI) *cobra.Command {
	return &cobra.Command{
		Use:   "schema-version",
		Short: "Print the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := svc().SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func printCascade(out io.Writer, verb string, r model.CascadeResult) {
	fmt.Fprintf(out, "%s: %d user, %d public key, %d messages, %d chat requests\n",
		verb, r.Users, r.PublicKeys, r.Messages, r.ChatRequests)
}

func deleteUserCmd(svc func() adminAPI, interactive func() bool) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-user <user-id>",
		Short: "Delete a user with its key, messages and chat requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.FromString(args[0])
			if err != nil {
				return fmt.Errorf("bad user id %q: %w", args[0], err)
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			impact, err := svc().Impact(ctx, id)
			if err != nil {
				return err
			}
			printCascade(out, "will delete", impact)

			if !yes {
				if !interactive() {
					return errors.New("refusing to delete without --yes on a non-interactive stdin")
				}
				ok, err := confirm(cmd.InOrStdin(), out)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "aborted")
					return nil
				}
			}

			res, err := svc().DeleteUser(ctx, id)
			if err != nil {
				return err
			}
			printCascade(out, "deleted", res)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm accepts only the literal answer "yes".
func confirm(in io.Reader, out io.Writer) (bool, error) {
	fmt.Fprint(out, "Type 'yes' to confirm: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return strings.TrimSpace(line) == "yes", nil
}
