package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/edumarket/storefront/internal/domain"
	"github.com/edumarket/storefront/internal/usecase"
)

const (
	cmdResend = "resend"
	cmdBack   = "back"
)

func (c *cli) register(ctx context.Context) error {
	f := c.uc.NewRegisterFlow()
	defer f.Close()

	var in usecase.RegistrationInput
	var err error
	for _, field := range []struct {
		label string
		dst   *string
	}{
		{"Full name", &in.FullName},
		{"Email", &in.Email},
		{"Phone", &in.Phone},
		{"Password", &in.Password},
	} {
		if *field.dst, err = c.prompt(field.label); err != nil {
			return err
		}
	}
	role, err := c.prompt("Role (buyer/vendor, blank for buyer)")
	if err != nil {
		return err
	}
	in.Role = domain.Role(role)

	if err := c.uc.SubmitRegistration(ctx, f, in); err != nil {
		return err
	}
	c.printView(c.uc.View(f))

	for f.CurrentState() != usecase.StateFinalized {
		code, err := c.prompt("Code (or 'resend')")
		if err != nil {
			return err
		}
		if code == cmdResend {
			err = c.uc.ResendRegistrationOTP(ctx, f)
			if err == nil {
				c.printView(c.uc.View(f))
			}
		} else {
			err = c.uc.VerifyRegistration(ctx, f, usecase.CodeInput{Code: code})
		}
		if fatal(err) {
			return err
		}
		if err != nil {
			fmt.Fprintln(c.out, describe(err))
		}
	}

	fmt.Fprintln(c.out, "Your account is ready. Sign in to continue.")
	return nil
}

func (c *cli) forgotPassword(ctx context.Context) error {
	f := c.uc.NewForgotPasswordFlow()
	defer f.Close()

	for f.CurrentState() != usecase.StateDone {
		var err error
		switch f.CurrentState() {
		case usecase.StatePhoneEntry:
			err = c.resetPhone(ctx, f)
		case usecase.StateOTPVerify:
			err = c.resetCode(ctx, f)
		case usecase.StateSetPassword:
			err = c.resetPassword(ctx, f)
		}
		if fatal(err) {
			return err
		}
		if err != nil {
			fmt.Fprintln(c.out, describe(err))
		}
	}

	fmt.Fprintln(c.out, "Your password has been reset. Please sign in with the new password.")
	return nil
}

func (c *cli) resetPhone(ctx context.Context, f *usecase.ForgotPasswordFlow) error {
	phone, err := c.prompt("Phone")
	if err != nil {
		return err
	}
	if err := c.uc.SubmitResetPhone(ctx, f, usecase.PhoneInput{Phone: phone}); err != nil {
		return err
	}
	c.printView(c.uc.View(f))
	return nil
}

func (c *cli) resetCode(ctx context.Context, f *usecase.ForgotPasswordFlow) error {
	code, err := c.prompt("Code (or 'resend', 'back')")
	if err != nil {
		return err
	}
	switch code {
	case cmdResend:
		if err := c.uc.ResendResetOTP(ctx, f); err != nil {
			return err
		}
		c.printView(c.uc.View(f))
		return nil
	case cmdBack:
		return c.uc.BackToPhoneEntry(ctx, f)
	}
	return c.uc.VerifyResetCode(ctx, f, usecase.CodeInput{Code: code})
}

func (c *cli) resetPassword(ctx context.Context, f *usecase.ForgotPasswordFlow) error {
	in, back, err := c.promptPassword()
	if err != nil {
		return err
	}
	if back {
		return c.uc.BackToPhoneEntry(ctx, f)
	}
	err = c.uc.SubmitResetPassword(ctx, f, in)
	// Without a sign key the only way on is a fresh code.
	if err != nil && !fatal(err) && f.SignKey == nil {
		fmt.Fprintln(c.out, describe(err))
		return c.uc.BackToPhoneEntry(ctx, f)
	}
	return err
}

func (c *cli) changePassword(ctx context.Context) error {
	if err := c.login(ctx); err != nil {
		return err
	}

	f, err := c.uc.NewChangePasswordFlow(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	for f.CurrentState() != usecase.StateDone {
		var err error
		switch f.CurrentState() {
		case usecase.StateCollectNewPassword:
			err = c.newPassword(ctx, f)
		case usecase.StateOTPVerify:
			err = c.changeCode(ctx, f)
		}
		if fatal(err) {
			return err
		}
		if err != nil {
			fmt.Fprintln(c.out, describe(err))
		}
	}

	fmt.Fprintln(c.out, "Your password has been changed. Please sign in again.")
	return nil
}

func (c *cli) newPassword(ctx context.Context, f *usecase.ChangePasswordFlow) error {
	in, _, err := c.promptPassword()
	if err != nil {
		return err
	}
	if err := c.uc.SubmitChangePassword(ctx, f, in); err != nil {
		return err
	}
	c.printView(c.uc.View(f))
	return nil
}

func (c *cli) changeCode(ctx context.Context, f *usecase.ChangePasswordFlow) error {
	code, err := c.prompt("Code (or 'resend', 'back')")
	if err != nil {
		return err
	}
	switch code {
	case cmdResend:
		if err := c.uc.ResendChangeOTP(ctx, f); err != nil {
			return err
		}
		c.printView(c.uc.View(f))
		return nil
	case cmdBack:
		return c.uc.BackToNewPassword(ctx, f)
	}
	return c.uc.VerifyChangeCode(ctx, f, usecase.CodeInput{Code: code})
}

func (c *cli) me(ctx context.Context) error {
	if err := c.login(ctx); err != nil {
		return err
	}
	p, err := c.uc.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if p == nil {
		fmt.Fprintln(c.out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(c.out, "%s <%s>\nrole: %s\nphone: %s\n", p.FullName, p.Email, p.Role, p.Phone)
	return c.uc.Logout(ctx)
}

func (c *cli) login(ctx context.Context) error {
	c.nav.SetPath("/login")
	email, err := c.prompt("Email")
	if err != nil {
		return err
	}
	password, err := c.prompt("Password")
	if err != nil {
		return err
	}
	s, err := c.uc.Login(ctx, usecase.LoginInput{Email: email, Password: password})
	if err != nil {
		return err
	}
	c.nav.SetPath("/profile")
	fmt.Fprintf(c.out, "Signed in as %s.\n", s.Role)
	return nil
}

// promptPassword reads a new password twice. Typing 'back' as the
// password asks to leave the step.
func (c *cli) promptPassword() (usecase.PasswordInput, bool, error) {
	pw, err := c.prompt("New password (or 'back')")
	if err != nil || pw == cmdBack {
		return usecase.PasswordInput{}, pw == cmdBack, err
	}
	confirm, err := c.prompt("Confirm password")
	if err != nil {
		return usecase.PasswordInput{}, false, err
	}
	return usecase.PasswordInput{Password: pw, ConfirmPassword: confirm}, false, nil
}

// fatal reports whether retrying the step is pointless.
func fatal(err error) bool {
	return errors.Is(err, errInput) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, domain.ErrUnauthorized)
}
