// Package admin implements vaultctl, the operator tool that manages users
// and API keys directly against the proxy's database.
package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/dmitrijs2005/keyproxy/internal/common"
	"github.com/dmitrijs2005/keyproxy/internal/cryptox"
	"github.com/dmitrijs2005/keyproxy/internal/logging"
	"github.com/dmitrijs2005/keyproxy/internal/server/config"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/keyproxy/internal/server/services"
	"github.com/dmitrijs2005/keyproxy/internal/server/store"
)

// ErrUsage reports a malformed command line.
var ErrUsage = errors.New("usage")

const usage = `usage: vaultctl [flags] <command>

commands:
  user add <username>             create a user (password read from the terminal)
  key add <username>              store an API key and make it active
  key list <username>             list a user's keys
  key activate <username> <id>    make a key active
  key delete <username> <id>      delete a key
`

type App struct {
	store  *store.Store
	keys   *services.APIKeyService
	in     *bufio.Reader
	out    io.Writer
	logger logging.Logger
}

// NewApp builds the tool on an already migrated database.
func NewApp(st *store.Store, keys *services.APIKeyService, in io.Reader, out io.Writer, l logging.Logger) *App {
	return &App{store: st, keys: keys, in: bufio.NewReader(in), out: out, logger: l}
}

// Open connects to the configured database, migrates it and returns the App
// with a close function for the database.
func Open(ctx context.Context, c *config.Config) (*App, func() error, error) {
	logger := logging.NewJSONLogger(os.Stderr, slog.LevelWarn)

	db, rm, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	closeDB := func() error { return db.Close() }

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	cipher, err := cryptox.NewCipher(c.SecretKey)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	st := store.New(db, rm)
	validator := services.NewValidator(c.MaxReferenceImages, c.MaxReferenceImageBytes)
	// no env key: the tool manages stored keys only
	keys := services.NewAPIKeyService(st, st, cipher, validator, "", logger)

	return NewApp(st, keys, os.Stdin, os.Stdout, logger), closeDB, nil
}

// Run executes one command. args are the positional arguments.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		fmt.Fprint(a.out, usage)
		return ErrUsage
	}

	switch args[0] + " " + args[1] {
	case "user add":
		if len(args) != 3 {
			break
		}
		return a.addUser(ctx, args[2])
	case "key add":
		if len(args) != 3 {
			break
		}
		return a.addKey(ctx, args[2])
	case "key list":
		if len(args) != 3 {
			break
		}
		return a.listKeys(ctx, args[2])
	case "key activate":
		if len(args) != 4 {
			break
		}
		return a.activateKey(ctx, args[2], args[3])
	case "key delete":
		if len(args) != 4 {
			break
		}
		return a.deleteKey(ctx, args[2], args[3])
	}

	fmt.Fprint(a.out, usage)
	return ErrUsage
}

func (a *App) userID(ctx context.Context, username string) (string, error) {
	u, err := a.store.GetUserByName(ctx, username)
	if errors.Is(err, common.ErrorNotFound) {
		return "", fmt.Errorf("user %q not found", username)
	}
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

func (a *App) addUser(ctx context.Context, username string) error {
	_, err := a.store.GetUserByName(ctx, username)
	if err == nil {
		return fmt.Errorf("user %q already exists", username)
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	pw, err := GetSecret(a.in, "Enter password: ", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	confirm, err := GetSecret(a.in, "Repeat password: ", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if len(pw) == 0 {
		return errors.New("password must not be empty")
	}
	if string(pw) != string(confirm) {
		return errors.New("passwords do not match")
	}

	u, err := a.store.EnsureUser(ctx, username, string(pw))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created user %s (%s)\n", u.UserName, u.ID)
	return nil
}

func (a *App) addKey(ctx context.Context, username string) error {
	userID, err := a.userID(ctx, username)
	if err != nil {
		return err
	}

	value, err := GetSecret(a.in, "Enter API key: ", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(value)

	set, err := a.keys.Add(ctx, userID, string(value))
	if err != nil {
		return err
	}
	a.printKeys(set)
	return nil
}

func (a *App) listKeys(ctx context.Context, username string) error {
	userID, err := a.userID(ctx, username)
	if err != nil {
		return err
	}

	set, err := a.keys.Serialize(ctx, userID)
	if err != nil {
		return err
	}
	a.printKeys(set)
	return nil
}

func (a *App) activateKey(ctx context.Context, username, keyID string) error {
	userID, err := a.userID(ctx, username)
	if err != nil {
		return err
	}

	set, err := a.keys.SetActive(ctx, userID, keyID)
	if err != nil {
		return err
	}
	a.printKeys(set)
	return nil
}

func (a *App) deleteKey(ctx context.Context, username, keyID string) error {
	userID, err := a.userID(ctx, username)
	if err != nil {
		return err
	}

	set, err := a.keys.Delete(ctx, userID, keyID)
	if err != nil {
		return err
	}
	a.printKeys(set)
	return nil
}

func (a *App) printKeys(set *services.KeySet) {
	if len(set.Keys) == 0 {
		fmt.Fprintln(a.out, "no keys")
		return
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKEY\tSOURCE\tACTIVE")
	for _, k := range set.Keys {
		active := ""
		if k.IsActive {
			active = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.ID, k.Mask, k.Source, active)
	}
	_ = tw.Flush()
}
