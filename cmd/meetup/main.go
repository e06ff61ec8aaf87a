package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"campus-meetup-confirm/internal/api"
	"campus-meetup-confirm/internal/capture"
	"campus-meetup-confirm/internal/config"
	"campus-meetup-confirm/internal/model"
	"campus-meetup-confirm/internal/presenter"
	"campus-meetup-confirm/internal/repository"
	"campus-meetup-confirm/internal/scanner"
	"campus-meetup-confirm/internal/session"
	"campus-meetup-confirm/internal/success"
	"campus-meetup-confirm/pkg/logger"
)

func main() {
	// Create .env from .env.example if not exists
	if err := ensureEnvFile(); err != nil {
		log.Printf("Warning: Failed to create .env file: %v", err)
	}

	imagePath := flag.String("image", "", "decode a single photo of the code instead of watching the frame spool")
	spoolDir := flag.String("spool", "", "override the frame spool directory")
	skipReveal := flag.Bool("skip-reveal", false, "skip the staged success screen")
	flag.Usage = usage
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *spoolDir != "" {
		cfg.Scanner.SpoolDir = *spoolDir
	}
	if *skipReveal {
		cfg.Reveal.StageDelay = 0
	}

	// Initialize logger
	appLogger := logger.New(cfg.LogLevel)

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	if args[0] == "history" {
		if err := runHistory(cfg); err != nil {
			appLogger.Error("Failed to read history", "error", err)
			log.Fatalf("Failed to read history: %v", err)
		}
		return
	}

	transactionID := args[0]
	appLogger.Info("Starting meetup confirmation", "transaction_id", transactionID)

	// Initialize backend client and local history
	client := api.NewClient(&cfg.API, appLogger)
	history, err := repository.NewHistoryRepository(cfg.History.DBPath)
	if err != nil {
		appLogger.Error("Failed to open history database", "error", err)
		log.Fatalf("Failed to open history database: %v", err)
	}
	defer history.Close()

	ctx := context.Background()

	// Load and authorize the session; the fetch happens exactly once
	loader := session.NewLoader(client, appLogger)
	result := loader.Load(ctx, transactionID, cfg.Identity.UserID)
	switch result.State {
	case session.StateError:
		log.Fatalf("Failed to load transaction: %v", result.Err)
	case session.StateUnauthorized:
		fmt.Println("You are not a party to this transaction.")
		os.Exit(1)
	}

	sess := result.Session
	switch result.Role {
	case model.RoleSeller:
		err = runSeller(ctx, cfg, appLogger, client, sess)
	case model.RoleBuyer:
		err = runBuyer(ctx, cfg, appLogger, client, sess, *imagePath)
	}
	if err != nil {
		appLogger.WithTransactionID(transactionID).Error("Flow did not complete", "error", err)
		os.Exit(1)
	}

	// Shared success view
	reveal := &success.Reveal{Delay: cfg.Reveal.StageDelay, Out: os.Stdout}
	reveal.Run(ctx)

	// The rating targets the seller, so only the buyer is prompted
	if result.Role == model.RoleBuyer {
		prompt := &success.RatingPrompt{
			In:        os.Stdin,
			Out:       os.Stdout,
			Submitter: client,
			Logger:    appLogger,
		}
		_ = prompt.Run(ctx, sess)
	}

	record := &repository.ConfirmationRecord{
		TransactionID:    sess.TransactionID,
		Role:             result.Role.String(),
		CounterpartyID:   sess.CounterpartyID(cfg.Identity.UserID),
		CounterpartyName: sess.SellerName,
		ConfirmedAt:      time.Now(),
	}
	if err := history.Save(record); err != nil {
		// The backend already holds the completion; losing the local note is survivable
		appLogger.WithTransactionID(transactionID).Warn("Failed to record confirmation locally", "error", err)
	}
}

// runSeller presents the verification code and waits for the manual
// receipt acknowledgement
func runSeller(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, client *api.Client, sess *model.Session) error {
	p, err := presenter.New(sess, client, &cfg.Presenter, appLogger)
	if err != nil {
		return err
	}

	fmt.Printf("Meetup confirmation for transaction %s\n\n", sess.TransactionID)
	if cfg.Presenter.Terminal {
		fmt.Println("Have the buyer scan this code:")
		p.RenderTerminal(os.Stdout)
		fmt.Println()
	}
	if path, err := p.WritePNG(); err == nil {
		fmt.Printf("QR code image saved to: %s\n\n", path)
	} else {
		appLogger.Warn("Failed to write QR code image", "error", err)
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Press Enter once the buyer has the item (Ctrl+C to quit): ")
		if _, err := reader.ReadString('\n'); err != nil {
			return err
		}
		if err := p.Confirm(ctx); err != nil {
			// Not fatal to the session; the code stays presentable
			fmt.Printf("Confirmation failed: %v\nThe code is still valid, try again.\n", err)
			continue
		}
		return nil
	}
}

// runBuyer scans for the seller's code and requests one explicit
// confirmation after a verified match
func runBuyer(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, client *api.Client, sess *model.Session, imagePath string) error {
	scn := scanner.New(sess, client, &cfg.Scanner, appLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var src capture.Source
	if imagePath != "" {
		src = capture.NewFileSource(imagePath)
		fmt.Printf("Decoding %s...\n", imagePath)
	} else {
		src = capture.NewSpoolSource(cfg.Scanner.SpoolDir)
		fmt.Printf("Watching %s for frames... (Ctrl+C to stop)\n", cfg.Scanner.SpoolDir)
	}

	if err := scn.StartCapture(ctx, src); err != nil {
		drainNotices(scn)
		return err
	}

	captureDone := scn.CaptureDone()
	for scn.Phase() != scanner.PhaseAwaitingConfirmation {
		select {
		case <-scn.Matched():
		case <-captureDone:
			if scn.Phase() == scanner.PhaseAwaitingConfirmation {
				captureDone = nil
				continue
			}
			// Single image exhausted without a match
			scn.FinishCapture()
			drainNotices(scn)
			return fmt.Errorf("no matching code acquired")
		case n := <-scn.Notices():
			fmt.Println(n.Message)
		case <-quit:
			// Teardown before exit; no capture handle may survive this
			scn.Cancel()
			return fmt.Errorf("scan cancelled")
		}
	}
	drainNotices(scn)

	// Capture is already released; default interrupt handling is fine
	// for the prompt.
	signal.Stop(quit)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Confirm you received the item [y/N]: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			scn.Cancel()
			return err
		}
		if strings.ToLower(strings.TrimSpace(line)) != "y" {
			return fmt.Errorf("confirmation declined")
		}
		if err := scn.Confirm(ctx); err != nil {
			drainNotices(scn)
			continue
		}
		drainNotices(scn)
		return nil
	}
}

// runHistory prints the local confirmation history
func runHistory(cfg *config.Config) error {
	history, err := repository.NewHistoryRepository(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer history.Close()

	records, err := history.ListRecent(20)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No confirmations recorded on this device yet.")
		return nil
	}

	count, _ := history.Count()
	fmt.Printf("Recent confirmations (%d total):\n", count)
	for _, record := range records {
		fmt.Printf("  %s  %-6s  %s (%s)\n",
			record.ConfirmedAt.Format(time.RFC3339),
			record.Role,
			record.CounterpartyName,
			record.TransactionID,
		)
	}
	return nil
}

func drainNotices(scn *scanner.Scanner) {
	for {
		select {
		case n := <-scn.Notices():
			fmt.Println(n.Message)
		default:
			return
		}
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  meetup [flags] <transaction-id>   run the in-person confirmation flow
  meetup history                    show confirmations recorded locally

Flags:
`)
	flag.PrintDefaults()
}

// ensureEnvFile creates .env from .env.example if .env doesn't exist
func ensureEnvFile() error {
	if _, err := os.Stat(".env"); err == nil {
		return nil // .env already exists
	}
	if _, err := os.Stat(".env.example"); os.IsNotExist(err) {
		return nil // nothing to copy from
	}

	source, err := os.Open(".env.example")
	if err != nil {
		return fmt.Errorf("failed to open .env.example: %w", err)
	}
	defer source.Close()

	destination, err := os.Create(".env")
	if err != nil {
		return fmt.Errorf("failed to create .env: %w", err)
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return fmt.Errorf("failed to copy .env.example to .env: %w", err)
	}

	log.Println("Created .env file from .env.example")
	return nil
}
