// Command authcli walks the storefront identity flows from a terminal
// against a running marketplace API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/edumarket/storefront/internal/apiclient"
	"github.com/edumarket/storefront/internal/backend"
	"github.com/edumarket/storefront/internal/countdown"
	"github.com/edumarket/storefront/internal/domain"
	ctxlog "github.com/edumarket/storefront/internal/log"
	"github.com/edumarket/storefront/internal/session"
	"github.com/edumarket/storefront/internal/usecase"
	"github.com/lmittmann/tint"
)

const usage = `usage: authcli [flags] <command>

commands:
  register          create an account and confirm the phone number
  forgot-password   reset a forgotten password by SMS code
  change-password   sign in, then change the password by SMS code
  me                sign in and print the profile

flags:
`

func main() {
	apiURL := flag.String("api", envOr("API_URL", "http://localhost:4000"), "marketplace API base URL")
	timeout := flag.Duration("timeout", 15*time.Second, "per-request timeout")
	verbose := flag.Bool("v", false, "log requests to stderr")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(ctxlog.NewContextHandler(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))

	ctx := context.Background()

	nav := session.NewMemoryNavigator("/" + flag.Arg(0))
	nav.OnNavigate = func(path string) {
		fmt.Fprintf(os.Stderr, "\nYour session has ended. Please sign in again (%s).\n", path)
	}
	api := apiclient.New(*apiURL, session.NewMemoryStore(), nav,
		apiclient.WithHTTPClient(&http.Client{Timeout: *timeout}),
		apiclient.WithLogger(logger),
	)

	c := &cli{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		nav: nav,
	}
	c.uc = usecase.NewIdentityUsecase(backend.New(api), logger, usecase.WithLiveCountdown(c.tick))

	var err error
	switch flag.Arg(0) {
	case "register":
		err = c.register(ctx)
	case "forgot-password":
		err = c.forgotPassword(ctx)
	case "change-password":
		err = c.changePassword(ctx)
	case "me":
		err = c.me(ctx)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

var errInput = errors.New("no more input")

type cli struct {
	uc  *usecase.IdentityUsecase
	in  *bufio.Reader
	out io.Writer
	nav *session.MemoryNavigator
}

// tick reports the OTP countdown every half minute and when it runs out.
func (c *cli) tick(_ string, remaining int) {
	switch {
	case remaining == 0:
		fmt.Fprintln(c.out, "\nThe code has expired. Type 'resend' for a new one.")
	case remaining%30 == 0:
		fmt.Fprintf(c.out, "\n(code expires in %s)\n", countdown.Format(remaining))
	}
}

func (c *cli) prompt(label string) (string, error) {
	fmt.Fprintf(c.out, "%s: ", label)
	line, err := c.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", fmt.Errorf("%w: %v", errInput, err)
	}
	return strings.TrimSpace(line), nil
}

func (c *cli) printView(v usecase.FlowView) {
	if v.Countdown != "" {
		fmt.Fprintf(c.out, "A code was sent to %s. It expires in %s.\n", v.Phone, v.Countdown)
	}
}

// describe turns err into the message a user should see.
func describe(err error) string {
	var verr *domain.ValidationError
	var apiErr *apiclient.Error
	switch {
	case errors.As(err, &verr):
		lines := make([]string, 0, len(verr.Fields))
		for field, msg := range verr.Fields {
			lines = append(lines, fmt.Sprintf("  %s: %s", field, msg))
		}
		return "Please check your input:\n" + strings.Join(lines, "\n")
	case errors.Is(err, domain.ErrAccountExists):
		return "An account with this email or phone number already exists. Please sign in."
	case errors.Is(err, domain.ErrPhoneRequired):
		return "Add a phone number to your profile before changing your password."
	case errors.Is(err, domain.ErrSignKeyMismatch):
		return "Verification is no longer valid. Go back and request a new code."
	case errors.Is(err, domain.ErrInvalidTransition):
		return "This step is not available right now."
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return err.Error()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
