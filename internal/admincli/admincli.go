// Package admincli bootstraps administrator accounts from a terminal. Admins
// cannot be created over HTTP.
package admincli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/supportchat/internal/common"
	"github.com/dmitrijs2005/supportchat/internal/flagx"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var ErrPasswordMismatch = errors.New("passwords do not match")

// AdminCreator creates a confirmed admin account.
type AdminCreator interface {
	CreateAdmin(ctx context.Context, fullName, email, password string) (*models.User, error)
}

// Run reads -email and -name from args, asks for the password twice on the
// terminal behind fd without echo, and creates the account.
func Run(ctx context.Context, args []string, creator AdminCreator, fd int, w io.Writer) error {
	var email, name string

	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.SetOutput(w)
	fs.StringVar(&email, "email", "", "admin email")
	fs.StringVar(&name, "name", "", "admin full name")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-name"})); err != nil {
		return err
	}
	if email == "" || name == "" {
		return common.NewValidationError("", "-email and -name are required")
	}

	pw, err := getPassword(w, fd, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	again, err := getPassword(w, fd, "Repeat password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(again)

	if len(pw) == 0 {
		return common.NewValidationError("password", "is required")
	}
	if !bytes.Equal(pw, again) {
		return ErrPasswordMismatch
	}

	user, err := creator.CreateAdmin(ctx, name, email, string(pw))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Admin %s created (id=%s)\n", user.Email, user.ID)
	return err
}

func getPassword(w io.Writer, fd int, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return pw, nil
}
