package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/driftbyte/aria2ws/pkg/client"
	"github.com/driftbyte/aria2ws/pkg/config"
	"github.com/driftbyte/aria2ws/pkg/history"
	"github.com/driftbyte/aria2ws/pkg/logging"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	var err error
	switch cmd := os.Args[1]; cmd {
	case "init":
		initProfile()
	case "version":
		err = versionCommand(os.Args[2:])
	case "add":
		err = addCommand(os.Args[2:])
	case "status":
		err = statusCommand(os.Args[2:])
	case "active":
		err = listCommand("active", os.Args[2:])
	case "waiting":
		err = listCommand("waiting", os.Args[2:])
	case "stopped":
		err = listCommand("stopped", os.Args[2:])
	case "pause":
		err = gidCommand("pause", os.Args[2:])
	case "unpause":
		err = gidCommand("unpause", os.Args[2:])
	case "remove":
		err = gidCommand("remove", os.Args[2:])
	case "stat":
		err = statCommand(os.Args[2:])
	case "shutdown":
		err = shutdownCommand(os.Args[2:])
	case "watch":
		err = watchCommand(os.Args[2:])
	case "history":
		err = historyCommand(os.Args[2:])
	case "diag":
		err = diagCommand(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s error: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: a2ctl <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init      Initialize a local profile (writes config.toml)")
	fmt.Println("  version   Query the aria2 version over RPC")
	fmt.Println("  add       Queue a download from one or more URIs")
	fmt.Println("  status    Show the status of a download by gid")
	fmt.Println("  active    List active downloads")
	fmt.Println("  waiting   List waiting downloads")
	fmt.Println("  stopped   List stopped downloads")
	fmt.Println("  pause     Pause a download by gid")
	fmt.Println("  unpause   Resume a download by gid")
	fmt.Println("  remove    Remove a download by gid")
	fmt.Println("  stat      Show global transfer statistics")
	fmt.Println("  shutdown  Ask aria2 to exit gracefully")
	fmt.Println("  watch     Stream notifications; journal terminal events")
	fmt.Println("  history   List journaled terminal events")
	fmt.Println("  diag      Print profile configuration paths")
}

func initProfile() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	profilePath := fs.String("profile", "./_dev_profile", "Profile directory")
	name := fs.String("name", "dev", "Profile name")
	endpoint := fs.String("endpoint", "ws://127.0.0.1:6800/jsonrpc", "aria2 websocket endpoint")
	force := fs.Bool("force", false, "Overwrite existing config if present")
	_ = fs.Parse(os.Args[2:])
	if err := os.MkdirAll(*profilePath, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "init error: %v\n", err)
		os.Exit(1)
	}
	configPath := filepath.Join(*profilePath, "config.toml")
	if _, err := os.Stat(configPath); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "config already exists at %s (use --force to overwrite)\n", configPath)
		os.Exit(1)
	}
	cfg := config.DefaultProfile(*name)
	cfg.RPC.Endpoint = *endpoint
	if err := config.Save(configPath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "init error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("initialized profile %s at %s\n", cfg.ProfileName, *profilePath)
}

type session struct {
	cfg     *config.ProfileConfig
	client  *client.Client
	profile string
}

func dialSession(ctx context.Context, profile, endpointOverride string) (*session, error) {
	cfg, err := config.LoadProfile(profile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config not found in %s (run 'a2ctl init --profile %s')", profile, profile)
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	endpoint := cfg.RPC.Endpoint
	if endpointOverride != "" {
		endpoint = endpointOverride
	}
	logger := logging.New("a2ctl")
	if err := logger.Configure(cfg.Logging); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	opts := []client.Option{
		client.WithTimeout(time.Duration(cfg.RPC.TimeoutSeconds) * time.Second),
		client.WithExtendedTimeout(time.Duration(cfg.RPC.ExtTimeoutSeconds) * time.Second),
		client.WithLogger(logger),
	}
	if cfg.RPC.Secret != "" {
		opts = append(opts, client.WithSecret(cfg.RPC.Secret))
	}
	if cfg.RPC.NotifyBuffer > 0 {
		opts = append(opts, client.WithNotifyBuffer(cfg.RPC.NotifyBuffer))
	}
	c, err := client.Dial(ctx, endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return &session{cfg: cfg, client: c, profile: profile}, nil
}

func (s *session) close() {
	_ = s.client.Close()
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func versionCommand(args []string) error {
	fs := flag.NewFlagSet("version", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	endpoint := fs.String("endpoint", "", "Override aria2 endpoint")
	_ = fs.Parse(args)

	ctx := context.Background()
	s, err := dialSession(ctx, *profile, *endpoint)
	if err != nil {
		return err
	}
	defer s.close()
	v, err := s.client.GetVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("aria2 %s (features: %s)\n", v.Version, strings.Join(v.EnabledFeatures, ", "))
	return nil
}

func addCommand(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	endpoint := fs.String("endpoint", "", "Override aria2 endpoint")
	dir := fs.String("dir", "", "Download directory")
	out := fs.String("out", "", "Output file name")
	split := fs.Int("split", 0, "Number of connections per download")
	wait := fs.Bool("wait", false, "Block until the download finishes or errors")
	_ = fs.Parse(args)
	uris := fs.Args()
	if len(uris) == 0 {
		return fmt.Errorf("at least one URI required")
	}

	ctx := context.Background()
	s, err := dialSession(ctx, *profile, *endpoint)
	if err != nil {
		return err
	}
	defer s.close()

	var opts *client.TaskOptions
	if *dir != "" || *out != "" || *split > 0 {
		opts = &client.TaskOptions{Dir: *dir, Out: *out, Split: *split}
	}

	done := make(chan string, 1)
	var hooks *client.TaskHooks
	if *wait {
		hooks = &client.TaskHooks{
			OnComplete: func() { done <- "complete" },
			OnError:    func() { done <- "error" },
		}
	}
	gid, err := s.client.AddURI(ctx, uris, opts, nil, hooks)
	if err != nil {
		return err
	}
	fmt.Printf("queued download %s\n", gid)
	if !*wait {
		return nil
	}
	select {
	case outcome := <-done:
		fmt.Printf("download %s finished: %s\n", gid, outcome)
		if outcome == "error" {
			return fmt.Errorf("download %s failed", gid)
		}
		return nil
	case <-s.client.Done():
		return fmt.Errorf("connection closed before download %s finished", gid)
	}
}

func statusCommand(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	endpoint := fs.String("endpoint", "", "Override aria2 endpoint")
	gid := fs.String("gid", "", "Download gid")
	_ = fs.Parse(args)
	if *gid == "" {
		return fmt.Errorf("--gid is required")
	}

	ctx := context.Background()
	s, err := dialSession(ctx, *profile, *endpoint)
	if err != nil {
		return err
	}
	defer s.close()
	status, err := s.client.TellStatus(ctx, *gid)
	if err != nil {
		return err
	}
	return printJSON(status)
}

func listCommand(which string, args []string) error {
	fs := flag.NewFlagSet(which, flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	endpoint := fs.String("endpoint", "", "Override aria2 endpoint")
	offset := fs.Int("offset", 0, "List offset")
	num := fs.Int("num", 50, "Maximum results")
	_ = fs.Parse(args)

	ctx := context.Background()
	s, err := dialSession(ctx, *profile, *endpoint)
	if err != nil {
		return err
	}
	defer s.close()

	var list []client.Status
	switch which {
	case "active":
		list, err = s.client.TellActive(ctx)
	case "waiting":
		list, err = s.client.TellWaiting(ctx, *offset, *num)
	case "stopped":
		list, err = s.client.TellStopped(ctx, *offset, *num)
	}
	if err != nil {
		return err
	}
	return printJSON(list)
}

func gidCommand(which string, args []string) error {
	fs := flag.NewFlagSet(which, flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	endpoint := fs.String("endpoint", "", "Override aria2 endpoint")
	gid := fs.String("gid", "", "Download gid")
	force := fs.Bool("force", false, "Skip graceful handling (pause/remove only)")
	_ = fs.Parse(args)
	if *gid == "" {
		return fmt.Errorf("--gid is required")
	}

	ctx := context.Background()
	s, err := dialSession(ctx, *profile, *endpoint)
	if err != nil {
		return err
	}
	defer s.close()

	switch which {
	case "pause":
		if *force {
			err = s.client.ForcePause(ctx, *gid)
		} else {
			err = s.client.Pause(ctx, *gid)
		}
	case "unpause":
		err = s.client.Unpause(ctx, *gid)
	case "remove":
		if *force {
			err = s.client.ForceRemove(ctx, *gid)
		} else {
			err = s.client.Remove(ctx, *gid)
		}
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s %s: ok\n", which, *gid)
	return nil
}

func statCommand(args []string) error {
	fs := flag.NewFlagSet("stat", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	endpoint := fs.String("endpoint", "", "Override aria2 endpoint")
	_ = fs.Parse(args)

	ctx := context.Background()
	s, err := dialSession(ctx, *profile, *endpoint)
	if err != nil {
		return err
	}
	defer s.close()
	stat, err := s.client.GetGlobalStat(ctx)
	if err != nil {
		return err
	}
	return printJSON(stat)
}

func shutdownCommand(args []string) error {
	fs := flag.NewFlagSet("shutdown", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	endpoint := fs.String("endpoint", "", "Override aria2 endpoint")
	force := fs.Bool("force", false, "Shut down without waiting for downloads")
	_ = fs.Parse(args)

	ctx := context.Background()
	s, err := dialSession(ctx, *profile, *endpoint)
	if err != nil {
		return err
	}
	defer s.close()
	if *force {
		return s.client.ForceShutdown(ctx)
	}
	return s.client.Shutdown(ctx)
}

func watchCommand(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	endpoint := fs.String("endpoint", "", "Override aria2 endpoint")
	_ = fs.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := dialSession(ctx, *profile, *endpoint)
	if err != nil {
		return err
	}
	defer s.close()

	var store *history.Store
	if s.cfg.History.Enabled {
		store, err = history.Open(config.ResolvePath(*profile, s.cfg.History.DBPath))
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		if err := store.Init(ctx); err != nil {
			return fmt.Errorf("init history: %w", err)
		}
	}

	sub := s.client.SubscribeNotifications()
	defer sub.Close()
	fmt.Println("watching notifications (Ctrl+C to exit)")
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-sub.Events():
			if !ok {
				if sub.Missed() {
					fmt.Fprintln(os.Stderr, "warning: some notifications were missed")
				}
				return fmt.Errorf("connection closed")
			}
			fmt.Printf("%s %s\n", n.Method, string(n.Params))
			if store != nil && client.IsTerminalEvent(n.Method) {
				if gid := n.GID(); gid != "" {
					if _, err := store.Record(ctx, gid, n.Method); err != nil {
						fmt.Fprintf(os.Stderr, "history record failed: %v\n", err)
					}
				}
			}
		}
	}
}

func historyCommand(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	gid := fs.String("gid", "", "Filter by download gid")
	limit := fs.Int("limit", 50, "Maximum rows")
	purge := fs.Bool("purge", false, "Delete all journaled events")
	_ = fs.Parse(args)

	cfg, err := config.LoadProfile(*profile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history disabled in profile %s", cfg.ProfileName)
	}
	store, err := history.Open(config.ResolvePath(*profile, cfg.History.DBPath))
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		return err
	}
	if *purge {
		if err := store.Purge(ctx); err != nil {
			return err
		}
		fmt.Println("history purged")
		return nil
	}
	var events []history.Event
	if *gid != "" {
		events, err = store.ByGID(ctx, *gid)
	} else {
		events, err = store.Recent(ctx, *limit)
	}
	if err != nil {
		return err
	}
	return printJSON(events)
}

func diagCommand(args []string) error {
	fs := flag.NewFlagSet("diag", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	_ = fs.Parse(args)
	cfg, err := config.LoadProfile(*profile)
	if err != nil {
		return err
	}
	fmt.Printf("Profile: %s\n", cfg.ProfileName)
	fmt.Printf("Config: %s\n", filepath.Join(*profile, "config.toml"))
	fmt.Printf("Endpoint: %s\n", cfg.RPC.Endpoint)
	fmt.Printf("Timeout: %ds (extended %ds)\n", cfg.RPC.TimeoutSeconds, cfg.RPC.ExtTimeoutSeconds)
	if cfg.History.Enabled {
		fmt.Printf("History DB: %s\n", config.ResolvePath(*profile, cfg.History.DBPath))
	}
	if cfg.Logging.FilePath != "" {
		fmt.Printf("Log File: %s\n", config.ResolvePath(*profile, cfg.Logging.FilePath))
	}
	return nil
}
