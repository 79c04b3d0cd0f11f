package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/frbridge/internal/config"
	"github.com/ehr/frbridge/internal/domain/conformance"
	"github.com/ehr/frbridge/internal/domain/conversion"
	"github.com/ehr/frbridge/internal/domain/frcore"
	"github.com/ehr/frbridge/internal/platform/fhir"
	"github.com/ehr/frbridge/internal/platform/hl7v2"
	"github.com/ehr/frbridge/internal/platform/middleware"
)

const version = "0.1.0"

// errNotConformant makes the validate command exit non-zero.
var errNotConformant = errors.New("bundle is not FR-Core conformant")

func main() {
	rootCmd := &cobra.Command{
		Use:           "frbridge",
		Short:         "HL7 v2 to FR-Core FHIR bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(catalogCmd())

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errNotConformant) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// app holds the components every command shares.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	catalog   *frcore.Catalog
	converter *conversion.Converter
	validator *conformance.Validator
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	logger := zerolog.New(w).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return logger.Level(cfg.Level())
}

func catalogOptions(cfg *config.Config) ([]frcore.Option, error) {
	overrides, err := cfg.ParseSliceOverrides()
	if err != nil {
		return nil, err
	}
	opts := []frcore.Option{
		frcore.WithEndpointFallbacks(cfg.SourceEndpointFallback, cfg.DestinationEndpointFallback),
	}
	for _, ov := range overrides {
		opts = append(opts, frcore.WithSliceSystem(ov.ResourceType, ov.Slice, ov.System))
	}
	return opts, nil
}

func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	opts, err := catalogOptions(cfg)
	if err != nil {
		return nil, err
	}
	catalog, err := frcore.Load(opts...)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	for _, shared := range catalog.SharedSlices() {
		logger.Warn().Str("system", shared.System).Strs("slices", shared.Slices).Msg("identifier system shared by several slices")
	}
	validator, err := conformance.New(catalog)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:       cfg,
		logger:    logger,
		catalog:   catalog,
		converter: conversion.NewConverter(catalog, logger),
		validator: validator,
	}, nil
}

// bootstrap loads the config and builds the app, logging to stderr so that
// command output on stdout stays machine readable.
func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, newLogger(cfg, os.Stderr))
}

func readInput(args []string, stdin io.Reader) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(args[0])
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a raw HL7 v2 message to an FR-Core message Bundle",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			raw, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			validate, _ := cmd.Flags().GetBool("validate")
			return a.convert(raw, validate, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().Bool("validate", false, "also validate the Bundle and print the result to stderr")
	return cmd
}

func (a *app) convert(raw []byte, validate bool, out, errOut io.Writer) error {
	msg, err := hl7v2.ParseMessage(raw)
	if err != nil {
		return fmt.Errorf("parse HL7 v2 message: %w", err)
	}
	bundle := a.converter.Convert(msg)
	if err := writeJSON(out, bundle); err != nil {
		return err
	}
	if validate {
		return writeJSON(errOut, a.validator.ValidateBundle(bundle))
	}
	return nil
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a FHIR message Bundle against FR-Core",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			data, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return a.validate(data, cmd.OutOrStdout())
		},
	}
}

func (a *app) validate(data []byte, out io.Writer) error {
	result := a.validator.Validate(data)
	if err := writeJSON(out, result); err != nil {
		return err
	}
	a.logger.Info().Str("summary", result.Summary()).Msg("bundle validated")
	if !result.Valid {
		return errNotConformant
	}
	return nil
}

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the loaded FR-Core rule catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), a.catalog.Summary())
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and, when MLLP_ADDR is set, the MLLP listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, newLogger(cfg, os.Stdout))
			if err != nil {
				return err
			}
			return a.runServer()
		},
	}
}

// validateHook returns the converter's validation hook, or nil when
// validate-on-convert is off.
func (a *app) validateHook() conversion.BundleValidator {
	if !a.cfg.ValidateOnConvert {
		return nil
	}
	return func(b *fhir.Bundle) bool {
		r := a.validator.ValidateBundle(b)
		evt := a.logger.Debug()
		if !r.Valid {
			evt = a.logger.Warn().Strs("errors", r.Errors)
		}
		evt.Str("bundle_id", b.ID).Str("summary", r.Summary()).Msg("bundle validated")
		return r.Valid
	}
}

// mllpSink logs the conformance verdict of Bundles received over MLLP.
func (a *app) mllpSink() func(*fhir.Bundle) {
	if !a.cfg.ValidateOnConvert {
		return nil
	}
	return func(b *fhir.Bundle) {
		if !a.validator.Conforms(b) {
			a.logger.Warn().Str("bundle_id", b.ID).Msg("converted bundle is not FR-Core conformant")
		}
	}
}

func (a *app) newServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.BodyLimit(a.cfg.MaxBodyBytes))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	apiV1 := e.Group("/api/v1")
	hl7v2.NewHandler().RegisterRoutes(apiV1)
	conversion.NewHandler(a.converter, a.validateHook()).RegisterRoutes(apiV1)
	conformance.NewHandler(a.validator).RegisterRoutes(apiV1)
	frcore.NewHandler(a.catalog).RegisterRoutes(apiV1)

	return e
}

func (a *app) runServer() error {
	e := a.newServer()

	var mllp *hl7v2.MLLPServer
	if a.cfg.MLLPAddr != "" {
		mllp = hl7v2.NewMLLPServer(a.cfg.MLLPAddr, conversion.MLLPHandler(a.converter, a.mllpSink(), a.logger), a.logger)
		if err := mllp.Start(); err != nil {
			return err
		}
	}

	// Graceful shutdown
	go func() {
		addr := ":" + a.cfg.Port
		a.logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			a.logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.logger.Info().Msg("shutting down server")
	if mllp != nil {
		if err := mllp.Stop(); err != nil {
			a.logger.Error().Err(err).Msg("mllp shutdown failed")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	a.logger.Info().Msg("server stopped")
	return nil
}
