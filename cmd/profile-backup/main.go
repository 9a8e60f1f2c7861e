// Command profile-backup exports and restores single profiles against the
// Mongo store, writing to local files or gs:// objects.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/models"
	"github.com/gospelpresentation/backend/internal/services"
	"github.com/gospelpresentation/backend/internal/storage"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:           "profile-backup",
	Short:         "Export and restore gospel presentation profiles",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a profile backup to a file or gs://bucket/object",
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore a profile's content from a backup",
	Long: `Replaces title, description, content and progress of an existing profile
with the contents of a backup. The slug stored in the backup is ignored.`,
	RunE: runImport,
}

func init() {
	_ = godotenv.Load()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetDefault("MONGO_DB", "gospel")

	rootCmd.PersistentFlags().String("mongo-uri", "", "MongoDB connection string (env MONGO_URI)")
	rootCmd.PersistentFlags().String("mongo-db", "", "MongoDB database (env MONGO_DB)")
	rootCmd.PersistentFlags().Bool("mongo-tls", false, "Enable TLS (env MONGO_TLS)")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Overall operation timeout")
	_ = v.BindPFlag("MONGO_URI", rootCmd.PersistentFlags().Lookup("mongo-uri"))
	_ = v.BindPFlag("MONGO_DB", rootCmd.PersistentFlags().Lookup("mongo-db"))
	_ = v.BindPFlag("MONGO_TLS", rootCmd.PersistentFlags().Lookup("mongo-tls"))
	_ = v.BindPFlag("TIMEOUT", rootCmd.PersistentFlags().Lookup("timeout"))

	exportCmd.Flags().String("slug", "", "Profile slug to export")
	exportCmd.Flags().String("out", "", "Destination path or gs://bucket/object (default <slug>-backup-<date>.json)")
	_ = exportCmd.MarkFlagRequired("slug")

	importCmd.Flags().String("slug", "", "Profile slug to restore into")
	importCmd.Flags().String("in", "", "Backup path or gs://bucket/object")
	_ = importCmd.MarkFlagRequired("slug")
	_ = importCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(exportCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	slug, _ := cmd.Flags().GetString("slug")
	out, _ := cmd.Flags().GetString("out")

	ctx, cancel := context.WithTimeout(cmd.Context(), v.GetDuration("TIMEOUT"))
	defer cancel()

	logger := newLogger()
	defer logger.Sync()

	store, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	p, err := store.GetProfileBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if p == nil {
		return fmt.Errorf("profile %q not found", slug)
	}

	now := time.Now()
	if out == "" {
		out = fmt.Sprintf("%s-backup-%s.json", p.Slug, now.Format("2006-01-02"))
	}
	data, err := json.MarshalIndent(models.NewProfileBackup(p, "profile-backup", now), "", "  ")
	if err != nil {
		return err
	}

	blob, err := storage.Open(ctx, out)
	if err != nil {
		return err
	}
	defer blob.Close()
	if err := blob.Write(ctx, data); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}

	logger.Info("profile exported", zap.String("slug", p.Slug), zap.String("to", blob.String()))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	slug, _ := cmd.Flags().GetString("slug")
	in, _ := cmd.Flags().GetString("in")

	ctx, cancel := context.WithTimeout(cmd.Context(), v.GetDuration("TIMEOUT"))
	defer cancel()

	logger := newLogger()
	defer logger.Sync()

	blob, err := storage.Open(ctx, in)
	if err != nil {
		return err
	}
	defer blob.Close()

	data, err := blob.Read(ctx)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	backup, err := models.ParseBackup(data)
	if err != nil {
		return fmt.Errorf("parse backup: %w", err)
	}
	if errs := backup.Profile.GospelData.Validate(); len(errs) > 0 {
		return services.NewValidationError(errs)
	}

	store, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	profiles := services.NewProfileService(store, services.NewAuthorizer(store), logger)
	p, err := profiles.Update(ctx, slug, backup.RestorePatch())
	if errors.Is(err, services.ErrProfileNotFound) {
		return fmt.Errorf("profile %q not found; create it before restoring", slug)
	}
	if err != nil {
		return fmt.Errorf("restore profile: %w", err)
	}

	logger.Info("profile restored",
		zap.String("slug", p.Slug),
		zap.String("from", blob.String()),
		zap.String("backup_version", backup.Backup.Version))
	return nil
}

func openStore(ctx context.Context, logger *zap.Logger) (*services.MongoStore, error) {
	uri := v.GetString("MONGO_URI")
	if uri == "" {
		return nil, errors.New("MONGO_URI or --mongo-uri is required")
	}
	return services.NewMongoStore(ctx, services.MongoOptions{
		URI:      uri,
		Database: v.GetString("MONGO_DB"),
		TLS:      v.GetBool("MONGO_TLS"),
	}, logger)
}

func newLogger() *zap.Logger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
