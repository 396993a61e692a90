// Command campusauth-demo wires the engine against a local Redis and
// walks one signup/signin round trip, with codes printed to stdout
// and the audit trail appended to a local file. Environment (or a
// .env file) selects real delivery channels:
//
//	REDIS_ADDR          redis host:port (default localhost:6379)
//	SES_FROM            enable SES email delivery from this address
//	SMS_ENDPOINT        enable SMS gateway delivery
//	SMS_AUTH_KEY        gateway auth key
//	SMS_SENDER_ID       registered sender identity
//	METRICS_ADDR        serve /metrics on this address (optional)
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	campusauth "github.com/campusworks/campusauth"
	promexport "github.com/campusworks/campusauth/metrics/export/prometheus"
	"github.com/campusworks/campusauth/notify"
	"github.com/campusworks/campusauth/notify/notifylog"
	"github.com/campusworks/campusauth/notify/notifyses"
	"github.com/campusworks/campusauth/notify/notifysms"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()
	ctx := context.Background()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	router, err := buildNotifier(ctx)
	if err != nil {
		return err
	}

	auditFile, err := os.OpenFile("campusauth-audit.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer auditFile.Close()

	engine, err := campusauth.New().
		WithRedis(rdb).
		WithNotifier(router).
		WithAuditSink(campusauth.NewJSONWriterSink(auditFile)).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Ping(ctx); err != nil {
		return fmt.Errorf("redis at %s: %w", addr, err)
	}

	if metricsAddr := os.Getenv("METRICS_ADDR"); metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promexport.NewExporter(engine).Handler())
			log.Printf("metrics on %s/metrics", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	return demo(ctx, engine)
}

// buildNotifier assembles delivery channels from the environment and
// falls back to a stdout outbox so the demo always has a channel.
func buildNotifier(ctx context.Context) (*notify.Router, error) {
	router := &notify.Router{}

	if from := os.Getenv("SES_FROM"); from != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		router.Email = notifyses.New(ses.NewFromConfig(awsCfg), from)
	}
	if endpoint := os.Getenv("SMS_ENDPOINT"); endpoint != "" {
		router.SMS = notifysms.New(notifysms.Config{
			Endpoint: endpoint,
			AuthKey:  os.Getenv("SMS_AUTH_KEY"),
			SenderID: os.Getenv("SMS_SENDER_ID"),
		})
	}
	if router.Email == nil && router.SMS == nil {
		log.Println("no delivery channels configured; codes print to stdout")
		router.Email = notifylog.New(os.Stdout)
	}
	return router, nil
}

func demo(ctx context.Context, engine *campusauth.Engine) error {
	in := bufio.NewReader(os.Stdin)

	fmt.Println("== signup ==")
	req := campusauth.SignupRequest{
		Name:       prompt(in, "name"),
		Institute:  prompt(in, "institute"),
		Department: prompt(in, "department"),
		CampusType: campusauth.CampusCollege,
		Email:      prompt(in, "email"),
		Mobile:     prompt(in, "mobile (10 digits)"),
		Password:   prompt(in, "password"),
		Fields:     strings.Split(prompt(in, "courses (comma separated)"), ","),
	}
	for i := range req.Fields {
		req.Fields[i] = strings.TrimSpace(req.Fields[i])
	}

	res, err := engine.Signup(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("registered: %s (signed in, token %s...)\n", res.Identifier, res.Session.Token[:8])

	if err := engine.Logout(ctx, res.Session.Token); err != nil {
		return err
	}

	fmt.Println("== signin ==")
	_, err = engine.Signin(ctx, res.Identifier, req.Mobile, prompt(in, "password"))
	switch {
	case errors.Is(err, campusauth.ErrOTPRequired):
		signin, err := engine.ConfirmSigninOTP(ctx, res.Identifier, prompt(in, "verification code"))
		if err != nil {
			return err
		}
		fmt.Printf("signed in, token %s...\n", signin.Session.Token[:8])
	case err != nil:
		return err
	}

	snap := engine.MetricsSnapshot()
	fmt.Printf("signins so far: %d\n", snap.Counters[campusauth.MetricSigninSuccess])
	return nil
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Printf("%s: ", label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}
