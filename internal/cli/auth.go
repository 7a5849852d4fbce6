package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/Makepad-fr/tada/internal/auth"
	"github.com/Makepad-fr/tada/internal/ui"
)

func (r *runner) doAuthLogin() int {
	st := r.store()
	if st == nil {
		ui.Fail(r.errw, "no credentials directory available")
		return 1
	}
	fmt.Fprint(r.out, "Paste your token: ")
	line, _ := r.in.ReadString('\n')
	token := strings.TrimSpace(line)
	if token == "" {
		fmt.Fprintln(r.out)
		ui.Fail(r.errw, "read token: empty input")
		return 1
	}
	if err := st.Set(token, nil); err != nil {
		ui.Fail(r.errw, "save token: "+err.Error())
		return 1
	}
	ui.OK(r.out, "logged in")
	return 0
}

func (r *runner) doAuthLogout() int {
	st := r.store()
	if st == nil {
		ui.Fail(r.errw, "no credentials directory available")
		return 1
	}
	ti, _ := st.Get()
	if ti != nil && ti.Source == auth.SourceEnv {
		ui.OK(r.out, "token is provided by TADA_TOKEN env var (nothing to delete)")
		return 0
	}
	if err := st.Delete(); err != nil {
		ui.Fail(r.errw, "logout: "+err.Error())
		return 1
	}
	ui.OK(r.out, "logged out")
	return 0
}

func (r *runner) doAuthStatus() int {
	var ti *auth.TokenInfo
	if st := r.store(); st != nil {
		var err error
		if ti, err = st.Get(); err != nil {
			ui.Fail(r.errw, err.Error())
			return 1
		}
	}
	if ti == nil {
		fmt.Fprintln(r.out, ui.C(ui.Current().Muted, "not logged in"))
		fmt.Fprintln(r.out, "Run: todo auth login")
		return 0
	}
	fmt.Fprintf(r.out, "source: %s\n", ti.Source)
	switch {
	case ti.ExpiresAt == nil:
		fmt.Fprintln(r.out, "expires: (unknown)")
	case ti.Expired(time.Now()):
		fmt.Fprintf(r.out, "expires: %s %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339), ui.C(ui.Current().Error, "(expired)"))
	default:
		fmt.Fprintf(r.out, "expires: %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintln(r.out, "env override: TADA_TOKEN")
	return 0
}

// whoami decodes a JWT locally (unsigned); opaque tokens print basic info.
func (r *runner) doAuthWhoAmI() int {
	var ti *auth.TokenInfo
	if st := r.store(); st != nil {
		ti, _ = st.Get()
	}
	if ti == nil {
		ui.Fail(r.errw, "not logged in. Run: todo auth login")
		return 2
	}
	if payload, ok := auth.JWTPayload(ti.Token); ok {
		fmt.Fprintln(r.out, "JWT payload:")
		fmt.Fprintln(r.out, payload)
		return 0
	}
	fmt.Fprintln(r.out, "Opaque token (cannot introspect locally).")
	fmt.Fprintln(r.out, "source:", ti.Source)
	return 0
}
