package campusauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSigninWithOTP(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	req := collegeSignup()
	id := mustSignup(t, e, req)

	// Password phase: no session yet, code delivered on both
	// channels.
	res, err := e.Signin(ctx, id, req.Mobile, req.Password)
	if !errors.Is(err, ErrOTPRequired) {
		t.Fatalf("Signin: %v, want ErrOTPRequired", err)
	}
	if res.Session.Token != "" {
		t.Fatal("session issued before code verification")
	}
	if e.sms.count() != 1 || e.email.count() != 1 {
		t.Fatalf("deliveries sms=%d email=%d, want 1/1", e.sms.count(), e.email.count())
	}

	code := e.sms.lastCode(t)
	if e.email.lastCode(t) != code {
		t.Fatal("channels delivered different codes")
	}

	final, err := e.ConfirmSigninOTP(ctx, id, code)
	if err != nil {
		t.Fatalf("ConfirmSigninOTP: %v", err)
	}
	if _, err := e.ValidateSession(final.Session.Token); err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}

	// The code was consumed; replay finds no pending signin.
	if _, err := e.ConfirmSigninOTP(ctx, id, code); !errors.Is(err, ErrNoPendingSignin) {
		t.Fatalf("code replay: %v", err)
	}
}

func TestSigninWithoutOTP(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.OTP.Required = false })
	ctx := context.Background()
	req := collegeSignup()
	id := mustSignup(t, e, req)

	res, err := e.Signin(ctx, id, req.Mobile, req.Password)
	if err != nil {
		t.Fatalf("Signin: %v", err)
	}
	if _, err := e.ValidateSession(res.Session.Token); err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if e.sms.count() != 0 {
		t.Fatal("code delivered with OTP phase disabled")
	}
}

func TestSigninRejectsBadCredentials(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	req := collegeSignup()
	id := mustSignup(t, e, req)

	if _, err := e.Signin(ctx, "NOPE-00000000", req.Mobile, req.Password); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown identifier: %v", err)
	}
	if _, err := e.Signin(ctx, id, "9000000000", req.Password); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong mobile: %v", err)
	}
	if _, err := e.Signin(ctx, id, req.Mobile, "Wr0ng!pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if e.sms.count() != 0 {
		t.Fatal("code delivered for a failed password phase")
	}
}

func TestSigninMixedFailuresLock(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	req := collegeSignup()
	id := mustSignup(t, e, req)

	// Wrong mobile and wrong password go through the same failure
	// path and share one streak.
	if _, err := e.Signin(ctx, id, "9000000000", req.Password); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong mobile: %v", err)
	}
	if _, err := e.Signin(ctx, id, req.Mobile, "Wr0ng!pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := e.Signin(ctx, id, "9000000000", "Wr0ng!pass"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("third mixed failure: %v, want lock", err)
	}
}

func TestSigninOTPMismatchKeepsChallenge(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	req := collegeSignup()
	id := mustSignup(t, e, req)

	if _, err := e.Signin(ctx, id, req.Mobile, req.Password); !errors.Is(err, ErrOTPRequired) {
		t.Fatalf("Signin: %v", err)
	}
	code := e.sms.lastCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if _, err := e.ConfirmSigninOTP(ctx, id, wrong); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("wrong code: %v", err)
	}

	// The pending signin survives the mismatch.
	if _, err := e.ConfirmSigninOTP(ctx, id, code); err != nil {
		t.Fatalf("right code after mismatch: %v", err)
	}
}

func TestSigninOTPExpiry(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.OTP.TTL = time.Minute })
	ctx := context.Background()
	req := collegeSignup()
	id := mustSignup(t, e, req)

	if _, err := e.Signin(ctx, id, req.Mobile, req.Password); !errors.Is(err, ErrOTPRequired) {
		t.Fatalf("Signin: %v", err)
	}
	code := e.sms.lastCode(t)

	e.mr.FastForward(5 * time.Minute)
	if _, err := e.ConfirmSigninOTP(ctx, id, code); !errors.Is(err, ErrNoPendingSignin) {
		t.Fatalf("expired code: %v", err)
	}
}

func TestSigninResend(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	req := collegeSignup()
	id := mustSignup(t, e, req)

	if _, err := e.Signin(ctx, id, req.Mobile, req.Password); !errors.Is(err, ErrOTPRequired) {
		t.Fatalf("Signin: %v", err)
	}
	first := e.sms.lastCode(t)

	if err := e.ResendSigninOTP(ctx, id); err != nil {
		t.Fatalf("ResendSigninOTP: %v", err)
	}
	fresh := e.sms.lastCode(t)
	if e.sms.count() != 2 {
		t.Fatalf("deliveries %d, want 2", e.sms.count())
	}

	// The fresh code supersedes the first (mismatch keeps the
	// challenge live when the codes happen to differ).
	if fresh != first {
		if _, err := e.ConfirmSigninOTP(ctx, id, first); !errors.Is(err, ErrOTPInvalid) {
			t.Fatalf("superseded code: %v", err)
		}
	}
	if _, err := e.ConfirmSigninOTP(ctx, id, fresh); err != nil {
		t.Fatalf("fresh code: %v", err)
	}
}

func TestSigninResendLimit(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	req := collegeSignup()
	id := mustSignup(t, e, req)

	if _, err := e.Signin(ctx, id, req.Mobile, req.Password); !errors.Is(err, ErrOTPRequired) {
		t.Fatalf("Signin: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := e.ResendSigninOTP(ctx, id); err != nil {
			t.Fatalf("resend %d: %v", i+1, err)
		}
	}
	if err := e.ResendSigninOTP(ctx, id); !errors.Is(err, ErrOTPResendLimit) {
		t.Fatalf("fourth resend: %v", err)
	}
}

func TestSigninResendWithoutPending(t *testing.T) {
	e := newTestEngine(t, nil)
	req := collegeSignup()
	id := mustSignup(t, e, req)

	if err := e.ResendSigninOTP(context.Background(), id); !errors.Is(err, ErrNoPendingSignin) {
		t.Fatalf("resend without pending signin: %v", err)
	}
}

func TestSigninDeliveryFailure(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	req := collegeSignup()
	id := mustSignup(t, e, req)

	// One channel down: delivery still succeeds.
	e.sms.setFail(errors.New("gateway down"))
	if _, err := e.Signin(ctx, id, req.Mobile, req.Password); !errors.Is(err, ErrOTPRequired) {
		t.Fatalf("Signin with one channel down: %v", err)
	}
	if _, err := e.ConfirmSigninOTP(ctx, id, e.email.lastCode(t)); err != nil {
		t.Fatalf("ConfirmSigninOTP: %v", err)
	}

	// Both channels down: hard failure and no stranded challenge.
	e.email.setFail(errors.New("smtp down"))
	if _, err := e.Signin(ctx, id, req.Mobile, req.Password); !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("Signin with all channels down: %v", err)
	}
	if _, err := e.ConfirmSigninOTP(ctx, id, "123456"); !errors.Is(err, ErrNoPendingSignin) {
		t.Fatalf("challenge survived delivery failure: %v", err)
	}
}
