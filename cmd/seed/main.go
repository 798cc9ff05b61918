// Package main seeds attribute configs from a YAML file.
//
// Seeding goes through the same lifecycle as the API, so a seed file cannot
// create configs the admin form would reject. Configs whose
// (entity_type, attr_name) already exists are skipped, which makes the
// command safe to re-run.
//
// Import Path: labledger.io/lims/cmd/seed
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"labledger.io/lims/internal/attribute"
	"labledger.io/lims/internal/config"
	"labledger.io/lims/internal/governance/audit"
	"labledger.io/lims/internal/infrastructure"
	apperrors "labledger.io/lims/internal/pkg/errors"
	"labledger.io/lims/internal/pkg/logger"
	"labledger.io/lims/internal/repository"
	"labledger.io/lims/internal/service"
)

const seedActor = "seed"

// seedFile is the on-disk seed format.
type seedFile struct {
	Attributes []seedAttribute `yaml:"attributes"`
}

type seedAttribute struct {
	EntityType      string         `yaml:"entity_type"`
	AttrName        string         `yaml:"attr_name"`
	DataType        string         `yaml:"data_type"`
	ValidationRules map[string]any `yaml:"validation_rules"`
	Description     string         `yaml:"description"`
	Active          *bool          `yaml:"active"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	path := flags.StringP("file", "f", "attributes.seed.yaml", "path to the attribute seed file")
	dryRun := flags.Bool("dry-run", false, "parse and print submissions without writing")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	f, err := os.Open(*path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	subs, err := parseSeed(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", *path, err)
	}
	if *dryRun {
		for _, sub := range subs {
			logger.Info("Seed attribute", zap.String("entity_type", sub.EntityType), zap.String("attr_name", sub.AttrName))
		}
		return nil
	}

	ctx := context.Background()
	db, err := infrastructure.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	if err := repository.EnsureSchema(ctx, db.Pool); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	svc := service.NewAttributeConfigService(repository.NewPostgresStore(db.Pool), audit.NewLogger(db.Pool))
	created, skipped, err := seed(ctx, svc, subs)
	if err != nil {
		return err
	}
	logger.Info("Attribute seeding completed", zap.Int("created", created), zap.Int("skipped", skipped))
	return nil
}

// parseSeed decodes a seed file into lifecycle submissions.
func parseSeed(r io.Reader) ([]attribute.Submission, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	subs := make([]attribute.Submission, 0, len(file.Attributes))
	for i, a := range file.Attributes {
		sub := attribute.Submission{
			EntityType:  a.EntityType,
			AttrName:    a.AttrName,
			DataType:    a.DataType,
			Description: a.Description,
			Active:      a.Active,
		}
		if a.ValidationRules != nil {
			rules, err := json.Marshal(a.ValidationRules)
			if err != nil {
				return nil, fmt.Errorf("attributes[%d].validation_rules: %w", i, err)
			}
			sub.ValidationRules = string(rules)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// seed creates every submission, skipping ones whose name is taken.
// Any other rejection stops the run.
func seed(ctx context.Context, svc *service.AttributeConfigService, subs []attribute.Submission) (created, skipped int, err error) {
	for _, sub := range subs {
		_, err := svc.Create(ctx, sub, seedActor)
		var appErr *apperrors.AppError
		switch {
		case err == nil:
			created++
		case errors.As(err, &appErr) && appErr.Code == apperrors.CodeAttributeConflict:
			skipped++
			logger.Info("Attribute config exists, skipping",
				zap.String("entity_type", sub.EntityType),
				zap.String("attr_name", sub.AttrName),
			)
		default:
			return created, skipped, fmt.Errorf("seed %s.%s: %w", sub.EntityType, sub.AttrName, err)
		}
	}
	return created, skipped, nil
}
