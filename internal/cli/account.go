package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"

	"github.com/Makepad-fr/donezo/internal/auth"
	"github.com/Makepad-fr/donezo/internal/ui"
	"github.com/Makepad-fr/donezo/internal/viewmodel"
)

// PasswordEnv is read when --password is not given.
const PasswordEnv = "DONEZO_PASSWORD"

func (r *runner) auth(args []string) int {
	if len(args) == 0 {
		r.p.Fail("usage: donezo auth signin|signup|signout|status|whoami")
		return ExitUsage
	}
	if r.app.Auth == nil {
		r.p.Fail("auth: the " + r.app.Config.Backend + " backend has no accounts")
		r.p.Hint("Hint: set backend = \"supabase\" in donezo.toml")
		return ExitError
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "signin", "login":
		return r.signIn(rest)
	case "signup":
		return r.signUp(rest)
	case "signout", "logout":
		return r.signOut(rest)
	case "status":
		return r.status()
	case "whoami":
		return r.whoami()
	}
	r.p.Fail("unknown auth subcommand: " + sub)
	return ExitUsage
}

func (r *runner) credentials(name string, args []string, withName bool) (email, password, display string, code int) {
	fs := r.newFlags("auth " + name)
	fs.StringVar(&email, "email", "", "account email")
	fs.StringVar(&password, "password", "", "password (default $"+PasswordEnv+", else prompt)")
	if withName {
		fs.StringVar(&display, "name", "", "display name")
	}
	pos, err := parse(fs, args)
	if err != nil {
		return "", "", "", ExitUsage
	}
	if email == "" && len(pos) == 1 {
		email = pos[0]
	}
	if email == "" {
		r.p.Fail("usage: donezo auth " + name + " --email <email> [--password p]")
		return "", "", "", ExitUsage
	}
	if password == "" {
		password = os.Getenv(PasswordEnv)
	}
	if password == "" {
		password, err = r.readPassword()
		if err != nil {
			r.p.Fail("password: " + err.Error())
			return "", "", "", ExitError
		}
	}
	if password == "" {
		r.p.Fail("password is required")
		return "", "", "", ExitUsage
	}
	return email, password, display, ExitOK
}

// readPassword hides input on a terminal and reads a plain line otherwise.
func (r *runner) readPassword() (string, error) {
	fmt.Fprint(r.env.Err, "Password: ")
	if f, ok := r.env.In.(*os.File); ok && term.IsTerminal(f.Fd()) {
		b, err := term.ReadPassword(f.Fd())
		fmt.Fprintln(r.env.Err)
		return string(b), err
	}
	line, err := bufio.NewReader(r.env.In).ReadString('\n')
	if err != nil && line == "" {
		return "", nil
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *runner) signIn(args []string) int {
	email, password, _, code := r.credentials("signin", args, false)
	if code != ExitOK {
		return code
	}
	s, err := r.app.Auth.SignIn(r.ctx, email, password)
	if err != nil {
		r.p.Fail(err.Error())
		return ExitError
	}
	r.p.OK("signed in as " + s.User.Name())
	if r.app.VM.State() == viewmodel.Failed {
		r.p.Hint("tasks could not be loaded: " + r.app.VM.LoadErr().Error())
	}
	return ExitOK
}

func (r *runner) signUp(args []string) int {
	email, password, name, code := r.credentials("signup", args, true)
	if code != ExitOK {
		return code
	}
	s, err := r.app.Auth.SignUp(r.ctx, email, password, name)
	if err != nil {
		r.p.Fail(err.Error())
		return ExitError
	}
	if s == nil {
		r.p.OK("account created; check " + email + " to confirm it, then sign in")
		return ExitOK
	}
	r.p.OK("account created, signed in as " + s.User.Name())
	return ExitOK
}

func (r *runner) signOut(args []string) int {
	if len(args) != 0 {
		r.p.Fail("usage: donezo auth signout")
		return ExitUsage
	}
	if err := r.app.Auth.SignOut(r.ctx); err != nil {
		r.p.Fail(err.Error())
		if errors.Is(err, auth.ErrEnvSession) {
			r.p.Hint("Hint: unset " + auth.TokenEnv)
		}
		return ExitError
	}
	r.p.OK("signed out")
	return ExitOK
}

func (r *runner) status() int {
	s := r.app.Auth.CurrentSession()
	if s == nil {
		r.p.Println("signed out")
		return ExitOK
	}
	lines := []string{"signed in as " + s.User.Name()}
	if s.User.Email != "" && s.User.Email != s.User.Name() {
		lines = append(lines, "email:   "+s.User.Email)
	}
	lines = append(lines, "user id: "+s.User.ID, "source:  "+s.Source)
	if !s.ExpiresAt.IsZero() {
		state := "valid"
		if s.Expired(time.Now()) {
			state = "expired"
		}
		lines = append(lines, fmt.Sprintf("expires: %s (%s)", s.ExpiresAt.Local().Format(time.RFC1123), state))
	}
	for _, l := range lines {
		r.p.Println(l)
	}
	return ExitOK
}

func (r *runner) whoami() int {
	token := r.app.Auth.AccessToken()
	if token == "" {
		r.p.Fail("not signed in")
		return ExitError
	}
	c, _, err := auth.DecodeClaims(token)
	if err != nil {
		r.p.Fail(err.Error())
		return ExitError
	}
	r.p.Printf("sub:   %s\n", c.Subject)
	if c.Email != "" {
		r.p.Printf("email: %s\n", c.Email)
	}
	if c.Role != "" {
		r.p.Printf("role:  %s\n", c.Role)
	}
	if exp := c.Expiry(); !exp.IsZero() {
		r.p.Printf("exp:   %s\n", exp.Format(time.RFC3339))
	}
	return ExitOK
}

func (r *runner) theme(args []string) int {
	prefs := r.app.Prefs
	if len(args) == 0 {
		r.p.Println(string(prefs.Mode()))
		return ExitOK
	}
	if len(args) != 1 {
		r.p.Fail("usage: donezo theme [light|dark|toggle]")
		return ExitUsage
	}
	var (
		next ui.Mode
		err  error
	)
	if args[0] == "toggle" {
		next, err = prefs.ToggleTheme()
	} else {
		next, err = ui.ParseMode(args[0])
		if err != nil {
			r.p.Fail(err.Error())
			return ExitUsage
		}
		err = prefs.SetMode(next)
	}
	if err != nil {
		r.p.Fail("save theme: " + err.Error())
		return ExitError
	}
	r.p.OK("theme: " + string(next))
	return ExitOK
}
