// updctl exercises the selfupdate library from the command line: it
// reads a yaml config naming a release backend and updates (or just
// checks) the configured binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/lansespirit/selfupdate"
	"github.com/lansespirit/selfupdate/backend/github"
	"github.com/lansespirit/selfupdate/backend/gitlab"
	"github.com/lansespirit/selfupdate/backend/s3"
	"github.com/lansespirit/selfupdate/internal/config"
	"github.com/lansespirit/selfupdate/internal/logger"
	"github.com/lansespirit/selfupdate/internal/notify"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Configuration file (default: ~/.updctl.yaml)")
	check := flag.Bool("check", false, "Check for an update without installing it")
	pin := flag.String("pin", "", "Update to this exact version instead of the latest release")
	current := flag.String("current", "", "Override the current version (default: build version)")
	logLevel := flag.String("log-level", "", "Override log level (debug/info/warn/error)")
	noProgress := flag.Bool("no-progress", false, "Disable the download progress line")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("updctl %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	path := *configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	backend, err := buildBackend(cfg.Backend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid backend configuration: %v\n", err)
		os.Exit(1)
	}

	cur := *current
	if cur == "" {
		cur = version
	}
	pinned := cfg.Binary.PinnedVersion
	if *pin != "" {
		pinned = *pin
	}

	ucfg := selfupdate.Config{
		BinName:          cfg.Binary.Name,
		CurrentVersion:   cur,
		Target:           cfg.Binary.Target,
		TargetVersion:    pinned,
		BinPathInArchive: cfg.Binary.PathInArchive,
		AuthToken:        cfg.Backend.Token,
		VerifyChecksum:   cfg.Binary.VerifyChecksum,
	}
	progressing := false
	if !*noProgress {
		ucfg.OnProgress = func(received, total int64) {
			progressing = true
			if total > 0 {
				fmt.Printf("\rdownloading... %3d%%", received*100/total)
			} else {
				fmt.Printf("\rdownloading... %d bytes", received)
			}
		}
	}

	updater, err := selfupdate.NewUpdater(backend, ucfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid update configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if *check {
		runCheck(ctx, updater, cfg.Binary.Name, cur)
		return
	}

	st, err := updater.Update(ctx)
	if progressing {
		fmt.Println()
	}
	if err != nil {
		logger.Error("update failed: %v", err)
		os.Exit(1)
	}
	if st.Updated() {
		fmt.Printf("%s updated to %s\n", cfg.Binary.Name, st.Version())
		if cfg.Notify {
			_ = notify.Send("updctl", fmt.Sprintf("%s updated to %s", cfg.Binary.Name, st.Version()))
		}
		return
	}
	fmt.Printf("%s is up to date (%s)\n", cfg.Binary.Name, st.Version())
}

func runCheck(ctx context.Context, updater *selfupdate.Updater, binName, current string) {
	rel, bump, err := updater.CheckForUpdate(ctx)
	if err != nil {
		logger.Error("check failed: %v", err)
		os.Exit(1)
	}
	if rel == nil {
		fmt.Printf("%s is up to date (%s)\n", binName, current)
		return
	}
	fmt.Printf("new release available: %s -> %s (%s bump)\n", current, rel.Version, bump)
	if bump == selfupdate.BumpMajor {
		fmt.Println("warning: the new release is not version-compatible")
	}
}

func buildBackend(b config.Backend) (selfupdate.Backend, error) {
	switch b.Kind {
	case "github":
		var opts []github.Option
		if b.Token != "" {
			opts = append(opts, github.WithToken(b.Token))
		}
		if b.BaseURL != "" {
			opts = append(opts, github.WithBaseURL(b.BaseURL))
		}
		return github.New(b.Owner, b.Repo, opts...)
	case "gitlab":
		var opts []gitlab.Option
		if b.Token != "" {
			opts = append(opts, gitlab.WithToken(b.Token))
		}
		if b.BaseURL != "" {
			opts = append(opts, gitlab.WithBaseURL(b.BaseURL))
		}
		return gitlab.New(b.Project, opts...)
	case "s3":
		opts := []s3.Option{}
		if b.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(b.Endpoint))
		}
		if b.Region != "" {
			opts = append(opts, s3.WithRegion(b.Region))
		}
		if ak := os.Getenv("AWS_ACCESS_KEY_ID"); ak != "" {
			opts = append(opts, s3.WithCredentials(ak, os.Getenv("AWS_SECRET_ACCESS_KEY")))
		}
		return s3.New(b.Bucket, b.Prefix, opts...)
	default:
		return nil, fmt.Errorf("unknown backend kind %q", b.Kind)
	}
}
