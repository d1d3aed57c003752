package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/alangunning/nomulus/internal/domain/models"
	"github.com/alangunning/nomulus/internal/domain/store"
	"github.com/alangunning/nomulus/internal/flows/handler"
	jwttoken "github.com/alangunning/nomulus/internal/jwt_token"
	"github.com/alangunning/nomulus/internal/platform/config"
	"github.com/alangunning/nomulus/internal/platform/postgres"
	"github.com/alangunning/nomulus/internal/platform/redis"
	"github.com/alangunning/nomulus/internal/tools"
	id "github.com/alangunning/nomulus/pkg/domain"
	"github.com/alangunning/nomulus/pkg/platform/dates"
	"github.com/alangunning/nomulus/pkg/secrets"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	cfg := config.FromEnv()
	switch args[0] {
	case "token":
		return cmdToken(cfg, args[1:], out, errOut)
	case "transfer-query":
		return cmdTransferQuery(args[1:], out, errOut)
	case "create-domain":
		return cmdCreateDomain(cfg, args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "registrytool: registry administration CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  registrytool token --registrar <id> [--ttl 1h]")
	fmt.Fprintln(w, "  registrytool transfer-query --server <host[:port]> --token <jwt> --name <domain> [--pw <authInfo>]")
	fmt.Fprintln(w, "  registrytool create-domain --name <domain> --registrar <id> [--years 1] [--pw <authInfo>]")
	fmt.Fprintln(w, "      [--gaining <id> --transfer-status pending --transfer-years 1 --auto-approve-in 120h]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - token signs with JWT_SIGNING_KEY, JWT_ISSUER and JWT_AUDIENCE")
	fmt.Fprintln(w, "  - create-domain writes to STORE_BACKEND (postgres or redis) and prints the authInfo")
}

func cmdToken(cfg config.Server, args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(errOut)
	registrar := fs.String("registrar", "", "registrar id (clID)")
	ttl := fs.Duration("ttl", cfg.SessionTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	registrarID, err := id.ParseRegistrarID(*registrar)
	if err != nil {
		fmt.Fprintf(errOut, "token: %v\n", err)
		return 2
	}
	svc := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	token, err := svc.GenerateSessionToken(registrarID, uuid.New(), *ttl)
	if err != nil {
		fmt.Fprintf(errOut, "token: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, token)
	return 0
}

func cmdTransferQuery(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("transfer-query", flag.ContinueOnError)
	fs.SetOutput(errOut)
	server := fs.String("server", "localhost:8080", "HOST[:PORT] to which commands are sent")
	token := fs.String("token", os.Getenv("REGISTRYTOOL_TOKEN"), "registrar session token")
	name := fs.String("name", "", "domain name")
	pw := fs.String("pw", "", "domain authInfo password")
	timeout := fs.Duration("timeout", 30*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *name == "" || *token == "" {
		fmt.Fprintln(errOut, "transfer-query: --name and --token are required")
		return 2
	}

	conn, err := tools.NewConnection(*server, *token)
	if err != nil {
		fmt.Fprintf(errOut, "transfer-query: %v\n", err)
		return 2
	}
	req := handler.TransferQueryRequest{Name: *name}
	if *pw != "" {
		req.AuthInfo = &handler.AuthInfoRequest{Password: *pw}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	var resp handler.Envelope
	if err := conn.SendJSON(ctx, "/epp/domain/transfer/query", req, &resp); err != nil {
		fmt.Fprintf(errOut, "transfer-query: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return 1
	}
	return 0
}

type domainSaver interface {
	Save(ctx context.Context, domain *models.DomainResource) error
}

func cmdCreateDomain(cfg config.Server, args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("create-domain", flag.ContinueOnError)
	fs.SetOutput(errOut)
	name := fs.String("name", "", "domain name")
	registrar := fs.String("registrar", "", "sponsoring registrar id")
	years := fs.Int("years", 1, "initial registration period in years")
	pw := fs.String("pw", "", "authInfo password (generated when empty)")
	gaining := fs.String("gaining", "", "gaining registrar of a transfer to record")
	status := fs.String("transfer-status", string(models.TransferStatusPending), "status of the recorded transfer")
	transferYears := fs.Int("transfer-years", 1, "years the recorded transfer adds")
	autoApproveIn := fs.Duration("auto-approve-in", 5*24*time.Hour, "time until the recorded transfer is automatically approved")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	domain, password, err := buildDomain(time.Now().UTC(), *name, *registrar, *years, *pw, *gaining, *status, *transferYears, *autoApproveIn)
	if err != nil {
		fmt.Fprintf(errOut, "create-domain: %v\n", err)
		return 2
	}

	ctx := context.Background()
	saver, closeFn, err := openSaver(ctx, cfg)
	if err != nil {
		fmt.Fprintf(errOut, "create-domain: %v\n", err)
		return 1
	}
	defer closeFn()

	if err := saver.Save(ctx, domain); err != nil {
		fmt.Fprintf(errOut, "create-domain: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "created %s (%s) authInfo=%s\n", domain.Name, domain.RepoID, password)
	return 0
}

// buildDomain validates the flags and returns the domain plus its cleartext
// authInfo password.
func buildDomain(now time.Time, name, registrar string, years int, pw, gaining, status string, transferYears int, autoApproveIn time.Duration) (*models.DomainResource, string, error) {
	domainName, err := id.ParseDomainName(name)
	if err != nil {
		return nil, "", err
	}
	sponsor, err := id.ParseRegistrarID(registrar)
	if err != nil {
		return nil, "", err
	}
	if years < 1 || transferYears < 0 {
		return nil, "", errors.New("years must be positive and transfer-years non-negative")
	}
	if pw == "" {
		if pw, err = secrets.Generate(); err != nil {
			return nil, "", err
		}
	}
	hash, err := secrets.Hash(pw)
	if err != nil {
		return nil, "", err
	}

	domain, err := models.NewDomainResource(domainName, sponsor, hash, now, dates.LeapSafeAddYears(now, years))
	if err != nil {
		return nil, "", err
	}
	if gaining == "" {
		return domain, pw, nil
	}

	gainingID, err := id.ParseRegistrarID(gaining)
	if err != nil {
		return nil, "", err
	}
	transferStatus, err := models.ParseTransferStatus(status)
	if err != nil {
		return nil, "", err
	}
	domain.TransferData = models.TransferData{
		Status:                    transferStatus,
		GainingRegistrarID:        gainingID,
		LosingRegistrarID:         sponsor,
		RequestTime:               now,
		PendingExpirationTime:     now.Add(autoApproveIn),
		ExtendedRegistrationYears: transferYears,
	}
	return domain, pw, nil
}

func openSaver(ctx context.Context, cfg config.Server) (domainSaver, func(), error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(db.DB)
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if client == nil {
			return pg, func() { _ = db.Close() }, nil
		}
		return store.NewFailover(pg, store.NewRedis(client.Client)), func() {
			_ = client.Close()
			_ = db.Close()
		}, nil
	case config.StoreRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, errors.New("REDIS_URL is required")
		}
		return store.NewRedis(client.Client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("create-domain needs a persistent STORE_BACKEND (postgres or redis), got %q", cfg.StoreBackend)
	}
}
