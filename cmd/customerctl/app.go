package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"customer-service/pkg/client"
	"customer-service/pkg/customersync"
	"customer-service/pkg/dashboard"
	"customer-service/pkg/jwtutil"

	"github.com/golang-jwt/jwt/v4"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "CUSTOMERCTL"

// app carries what every command needs
type app struct {
	v   *viper.Viper
	in  *bufio.Reader
	out io.Writer
	log *zap.Logger
	now func() time.Time
	rng dashboard.Rand
}

func newApp(in io.Reader, out io.Writer) *app {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &app{
		v:   v,
		in:  bufio.NewReader(in),
		out: out,
		log: zap.NewNop(),
		now: time.Now,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// tenant is the organization the commands act on. With a token it is the
// token's active organization, and --org may only repeat it. Without a token
// --org is sent as the identity header.
func (a *app) tenant() (string, error) {
	org := a.v.GetString("org")
	token := a.v.GetString("token")
	if token == "" {
		return org, nil
	}
	// the server verifies the signature; here the claim only picks the screen state
	claims := &jwtutil.UserClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	switch {
	case org == "" || org == claims.OrgID:
		return claims.OrgID, nil
	case claims.OrgID == "":
		return "", fmt.Errorf("--org %q cannot be used with a token that has no active organization", org)
	default:
		return "", fmt.Errorf("--org %q does not match the token's organization %q", org, claims.OrgID)
	}
}

// mount builds a controller and loads the tenant's customers
func (a *app) mount(ctx context.Context) (*customersync.Controller, error) {
	tenant, err := a.tenant()
	if err != nil {
		return nil, err
	}

	cfg := client.Config{
		BaseURL: a.v.GetString("url"),
		Token:   a.v.GetString("token"),
		Timeout: a.v.GetDuration("timeout"),
	}
	if cfg.Token == "" {
		cfg.UserID = a.v.GetString("user")
		cfg.OrgID = tenant
	}
	api := client.New(cfg, a.log)

	ctl := customersync.NewController(api, a.log)
	if err := ctl.SetTenant(ctx, tenant); err != nil {
		return nil, err
	}
	if s := ctl.Snapshot(); s.State == customersync.NoTenant {
		return nil, errors.New(s.Error)
	}
	return ctl, nil
}

// confirm asks a yes/no question on the input stream
func (a *app) confirm(question string) bool {
	fmt.Fprintf(a.out, "%s [y/N]: ", question)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
