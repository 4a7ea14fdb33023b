package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/Friztone/AlertMe/internal/api"
	"github.com/Friztone/AlertMe/internal/config"
	"github.com/Friztone/AlertMe/internal/report"
	"github.com/Friztone/AlertMe/internal/session"
	"github.com/Friztone/AlertMe/pkg/logger"
	"github.com/Friztone/AlertMe/pkg/utils"
)

const usage = `usage: alertme <command> [flags]

commands:
  login         -email -password
  register      -name -email -password -confirm
  logout
  profile
  set-name      -name
  set-password  -old -new -confirm
  upload-ktp    -file
  offices       -category (pemadamkebakaran|polisi|rumahsakit|bpbd)
  report        -office -title -desc -location [-file]
  history
  detail        -id

configuration comes from env: ALERTME_API_URL (required), ALERTME_TIMEOUT,
ALERTME_SESSION_BACKEND, ALERTME_SESSION_PATH, ALERTME_REDIS_ADDR, APP_ENV.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx := context.Background()

	repo, err := buildRepository(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		os.Exit(1)
	}

	if err := run(ctx, repo, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildRepository(ctx context.Context, cfg config.Client, log *slog.Logger) (*report.Repository, error) {
	var sessions session.Store
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, err
		}
		sessions = session.NewRedisStore(rdb)
	default:
		path := cfg.SessionPath
		if path == "" {
			var err error
			if path, err = session.DefaultPath(); err != nil {
				return nil, err
			}
		}
		sessions = session.NewFileStore(path)
	}

	client, err := api.New(api.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.RequestTimeout,
	}, sessions, log)
	if err != nil {
		return nil, err
	}
	return report.NewRepository(client, sessions, log), nil
}

func run(ctx context.Context, repo *report.Repository, command string, args []string) error {
	switch command {
	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		fs.Parse(args)
		if _, err := repo.Login(ctx, *email, *password); err != nil {
			return err
		}
		fmt.Println("logged in")
		return nil

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		name := fs.String("name", "", "full name")
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "password")
		confirm := fs.String("confirm", "", "password confirmation")
		fs.Parse(args)
		if _, err := repo.Register(ctx, *name, *email, *password, *confirm); err != nil {
			return err
		}
		fmt.Println("registered and logged in")
		return nil

	case "logout":
		if err := repo.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil

	case "profile":
		profile, err := repo.Profile(ctx)
		if err != nil {
			return err
		}
		return printJSON(profile)

	case "set-name":
		fs := flag.NewFlagSet("set-name", flag.ExitOnError)
		name := fs.String("name", "", "new display name")
		fs.Parse(args)
		if err := repo.UpdateName(ctx, *name); err != nil {
			return err
		}
		fmt.Println("name updated")
		return nil

	case "set-password":
		fs := flag.NewFlagSet("set-password", flag.ExitOnError)
		oldPw := fs.String("old", "", "current password")
		newPw := fs.String("new", "", "new password")
		confirm := fs.String("confirm", "", "new password confirmation")
		fs.Parse(args)
		if err := repo.UpdatePassword(ctx, *oldPw, *newPw, *confirm); err != nil {
			return err
		}
		fmt.Println("password updated")
		return nil

	case "upload-ktp":
		fs := flag.NewFlagSet("upload-ktp", flag.ExitOnError)
		file := fs.String("file", "", "path to the ID photo")
		fs.Parse(args)
		att, cleanup, err := openAttachment(*file)
		if err != nil {
			return err
		}
		defer cleanup()
		if err := repo.UploadIDPhoto(ctx, *att); err != nil {
			return err
		}
		fmt.Println("photo uploaded")
		return nil

	case "offices":
		fs := flag.NewFlagSet("offices", flag.ExitOnError)
		category := fs.String("category", "", "office category")
		fs.Parse(args)
		offices, err := repo.ListOffices(ctx, report.Category(*category))
		if err != nil {
			return err
		}
		return printJSON(offices)

	case "report":
		fs := flag.NewFlagSet("report", flag.ExitOnError)
		office := fs.String("office", "", "target office uuid")
		title := fs.String("title", "", "report title")
		desc := fs.String("desc", "", "what happened")
		location := fs.String("location", "", "where it happened")
		file := fs.String("file", "", "optional attachment path")
		fs.Parse(args)

		var att *report.Attachment
		if *file != "" {
			a, cleanup, err := openAttachment(*file)
			if err != nil {
				return err
			}
			defer cleanup()
			att = a
		}
		if err := repo.SubmitReport(ctx, *office, *title, *desc, *location, att); err != nil {
			return err
		}
		fmt.Println("report submitted")
		return nil

	case "history":
		reports, err := repo.ListReportsForCurrentUser(ctx)
		if err != nil {
			return err
		}
		return printJSON(reports)

	case "detail":
		fs := flag.NewFlagSet("detail", flag.ExitOnError)
		id := fs.String("id", "", "report uuid")
		fs.Parse(args)
		rp, err := repo.ReportDetail(ctx, *id)
		if err != nil {
			return err
		}
		return printJSON(rp)

	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// openAttachment streams a local file; the repository never buffers it whole.
func openAttachment(path string) (*report.Attachment, func(), error) {
	if path == "" {
		return nil, nil, fmt.Errorf("a file path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	return &report.Attachment{
		Filename:    filepath.Base(path),
		ContentType: ct,
		Reader:      f,
	}, func() { f.Close() }, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
