package admin

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

// UserCreator is the part of the user service the useradd command needs.
type UserCreator interface {
	CreateUser(ctx context.Context, email, username, password string, verified bool) (*models.User, error)
}

// UserAddOptions carries the values given on the command line. Missing
// values are asked for interactively.
type UserAddOptions struct {
	Email    string
	Username string
	Verified bool
}

// AddUser prompts for anything missing from opts, reads the password twice
// and creates the account.
func AddUser(ctx context.Context, reader *bufio.Reader, w io.Writer, users UserCreator, opts UserAddOptions) (*models.User, error) {
	email := opts.Email
	if email == "" {
		var err error
		email, err = GetSimpleText(reader, "Email", w)
		if err != nil {
			return nil, err
		}
	}

	pw, err := GetPassword("Enter password: ", w)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(pw)

	confirm, err := GetPassword("Repeat password: ", w)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(pw, confirm) {
		return nil, ErrPasswordMismatch
	}

	user, err := users.CreateUser(ctx, email, opts.Username, string(pw), opts.Verified)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(w, "created user %s (%s), verified=%t\n", user.Email, user.ID, user.IsVerified)
	return user, nil
}
