package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"recstore/src/auth"
	"recstore/src/server"
	"recstore/src/settings"

	"go.uber.org/zap"
)

// printUsage prints helpful usage information
func printUsage() {
	fmt.Fprintln(os.Stderr, "recstore - a schema-checked multi-database record store")
	fmt.Fprintln(os.Stderr, "\nUsage:")
	fmt.Fprintln(os.Stderr, "  recstore [options]")
	fmt.Fprintln(os.Stderr, "\nOptions:")
	flag.PrintDefaults()

	fmt.Fprintln(os.Stderr, "\nExamples:")
	fmt.Fprintln(os.Stderr, "  recstore --datadir=/data")
	fmt.Fprintln(os.Stderr, "  recstore --port=1776 --config=recstore.toml")
}

func main() {
	args := settings.GetSettings()

	flag.StringVar(&args.DataDir, "datadir", args.DataDir, "Directory to store data files")
	flag.StringVar(&args.LogDir, "logdir", args.LogDir, "Directory to store log files (empty: stdout only)")
	flag.StringVar(&args.Host, "host", args.Host, "Host name or IP address to listen on")
	flag.IntVar(&args.Port, "port", args.Port, "Port for the TCP server")
	flag.BoolVar(&args.Verbose, "verbose", args.Verbose, "Enable verbose logging")
	flag.BoolVar(&args.Debug, "debug", args.Debug, "Enable debug mode")
	flag.BoolVar(&args.PrintToScreen, "print", args.PrintToScreen, "Print log messages to screen")
	flag.StringVar(&args.ConfigFile, "config", "", "Path to TOML config file")
	flag.BoolVar(&args.AuthEnabled, "auth", args.AuthEnabled, "Enable authentication")
	flag.StringVar(&args.UsersFile, "usersfile", args.UsersFile, "Encrypted user store file (empty: in memory)")
	flag.StringVar(&args.UsersKey, "userskey", args.UsersKey, "Encryption key for the user store")
	flag.StringVar(&args.AdminUser, "adminuser", "", "User to create at startup if missing")
	flag.StringVar(&args.AdminPassword, "adminpassword", "", "Password for --adminuser")
	flag.BoolVar(&args.NoScriptTags, "noscripttags", args.NoScriptTags, "Reject <script> tags in new collections")
	flag.BoolVar(&args.JournalEnabled, "journal", args.JournalEnabled, "Journal every mutation")
	flag.StringVar(&args.JournalDir, "journaldir", args.JournalDir, "Directory for journal files")
	flag.Usage = printUsage

	flag.Parse()

	if args.ConfigFile != "" {
		// flags given on the command line win over the config file
		explicit := map[string]string{}
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = f.Value.String() })

		if err := settings.LoadConfigFile(args.ConfigFile, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
			os.Exit(1)
		}
		for name, value := range explicit {
			flag.Set(name, value)
		}
	}

	if err := validateArguments(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		printUsage()
		os.Exit(1)
	}

	logger, err := buildLogger(args)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	if args.Verbose {
		sugar.Infow("recstore starting",
			"dataDir", args.DataDir,
			"logDir", args.LogDir,
			"host", args.Host,
			"port", args.Port,
			"auth", args.AuthEnabled,
			"journal", args.JournalEnabled,
			"noScriptTags", args.NoScriptTags)
	}

	srv, err := server.InitServer(args, sugar)
	if err != nil {
		sugar.Fatalf("Failed to initialize server: %v", err)
	}

	if args.AdminUser != "" {
		err := srv.AddUser(args.AdminUser, args.AdminPassword)
		if err != nil && !errors.Is(err, auth.ErrUserAlreadyExists) {
			sugar.Fatalf("Failed to add admin user: %v", err)
		}
	}

	if err := srv.Start(); err != nil {
		sugar.Fatalf("Failed to start server: %v", err)
	}

	// Handle graceful shutdown
	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)

	<-shutdownSignal
	sugar.Info("Shutting down server...")

	if err := srv.Stop(); err != nil {
		sugar.Errorf("Error stopping server: %v", err)
	}
}

func buildLogger(args *settings.Arguments) (*zap.Logger, error) {
	var config zap.Config
	if args.Debug {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	config.OutputPaths = nil
	if args.PrintToScreen || args.LogDir == "" {
		config.OutputPaths = append(config.OutputPaths, "stdout")
	}
	if args.LogDir != "" {
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		logFile := filepath.Join(args.LogDir, fmt.Sprintf("%s_%s_ServerLog.txt", timestamp, args.Host))
		config.OutputPaths = append(config.OutputPaths, logFile)
	}

	return config.Build()
}

// validateArguments validates the arguments and returns an error if invalid
func validateArguments(args *settings.Arguments) error {
	dirInfo, err := os.Stat(args.DataDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("error accessing data directory: %w", err)
		}
		if err := os.MkdirAll(args.DataDir, 0755); err != nil {
			return fmt.Errorf("could not create data directory: %w", err)
		}
	} else if !dirInfo.IsDir() {
		return fmt.Errorf("data directory path exists but is not a directory: %s", args.DataDir)
	}

	if args.LogDir != "" {
		if err := os.MkdirAll(args.LogDir, 0755); err != nil {
			return fmt.Errorf("could not create log directory: %w", err)
		}
	}

	if args.Port < 0 || args.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 0 and 65535)", args.Port)
	}

	if args.AdminUser != "" && args.AdminPassword == "" {
		return fmt.Errorf("--adminuser requires --adminpassword")
	}

	return nil
}
