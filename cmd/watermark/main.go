package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/basel-ax/watermark-builder/internal/config"
	"github.com/basel-ax/watermark-builder/internal/domain"
	"github.com/basel-ax/watermark-builder/internal/export"
	"github.com/basel-ax/watermark-builder/internal/infrastructure/watermarkapi"
	"github.com/basel-ax/watermark-builder/internal/logging"
	"github.com/basel-ax/watermark-builder/internal/picker"
	"github.com/basel-ax/watermark-builder/internal/service"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("watermark", flag.ContinueOnError)
	picturePath := fs.String("picture", "", "Picture to watermark (required)")
	modeName := fs.String("mode", "text", "Watermark mode: text or custom")
	text := fs.String("text", "", "Watermark text (text mode)")
	watermarkPath := fs.String("watermark", "", "Watermark image (custom mode)")
	outPath := fs.String("out", "", "Write the result to this file instead of the export directory")
	endpoint := fs.String("endpoint", "", "Watermarking service URL (overrides WATERMARK_ENDPOINT)")
	timeout := fs.Duration("timeout", 0, "Give up after this long (0 waits indefinitely)")
	verbose := fs.Bool("verbose", false, "Enable verbose logging")
	opts := registerWatermarkFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	set := visited(fs)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	// Configure logging
	level, format := cfg.LogLevel, cfg.LogFormat
	if *verbose {
		level, format = "debug", "console"
	}
	logger, err := logging.New(level, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	if *picturePath == "" {
		fmt.Fprintln(os.Stderr, "Please specify the picture to watermark with -picture")
		fs.Usage()
		return 2
	}
	mode, err := domain.ParseMode(*modeName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *endpoint != "" {
		cfg.WatermarkEndpoint = *endpoint
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	client := watermarkapi.NewClient(cfg.WatermarkEndpoint, cfg.WatermarkHTTPTimeout)
	session := service.NewSession("cli", client, logger, service.Hooks{})
	session.SetMode(mode)

	if err := loadImage(ctx, session, picker.TargetPicture, *picturePath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read picture: %v\n", err)
		return 1
	}

	switch mode {
	case domain.ModeText:
		if err := session.UpdateTextParams(func(p *domain.TextWatermarkParams) {
			p.Text = *text
		}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		params := session.TextParams()
		if err := opts.applyText(set, &params); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid text watermark options: %v\n", err)
			return 2
		}
		if err := session.SetTextParams(params); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	case domain.ModeCustom:
		if *watermarkPath == "" {
			fmt.Fprintln(os.Stderr, "Custom mode needs a watermark image: -watermark")
			return 2
		}
		if err := loadImage(ctx, session, picker.TargetWatermark, *watermarkPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read watermark: %v\n", err)
			return 1
		}
		params := session.CustomParams()
		if err := opts.applyCustom(set, &params); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid image watermark options: %v\n", err)
			return 2
		}
		if err := session.SetCustomParams(params); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}

	logger.Debug("Submitting watermark request", zap.String("endpoint", cfg.WatermarkEndpoint), zap.Stringer("mode", mode))
	start := time.Now()
	sub := session.Submit(ctx)
	if sub == nil {
		fmt.Fprintln(os.Stderr, service.ErrNoPicture)
		return 1
	}

	outcome, ok := sub.Wait(ctx)
	if !ok {
		sub.Cancel()
		fmt.Fprintln(os.Stderr, "Interrupted before the service answered")
		return 130
	}
	logger.Debug("Watermark request finished", zap.Duration("took", time.Since(start)))

	if outcome.State == domain.StateFailure {
		fmt.Fprintln(os.Stderr, outcome.Message)
		return 1
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, outcome.Data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write result: %v\n", err)
			return 1
		}
		fmt.Println(*outPath)
		return 0
	}

	location, exported := session.Export(ctx, export.NewFileExporter(cfg.ExportDir, logger))
	if !exported {
		fmt.Fprintln(os.Stderr, "Failed to export the result")
		return 1
	}
	fmt.Println(location)
	return 0
}

// loadImage imports the image at path the way a picker would and stores it in target
func loadImage(ctx context.Context, s *service.Session, target picker.Target, path string) error {
	completion := picker.NewCompletion()
	payload, err := picker.ImportFile(path)
	if err != nil {
		completion.Dismiss()
		s.Pick(ctx, target, completion)
		return err
	}
	completion.Resolve(payload)
	if !s.Pick(ctx, target, completion) {
		return errors.New("image was not accepted")
	}
	return nil
}
