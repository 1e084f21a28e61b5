package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"surveyflow/internal/config"
	"surveyflow/internal/model"
	"surveyflow/internal/repository"
	"surveyflow/internal/service"
	"surveyflow/internal/skiplogic"
)

type seedOptions struct {
	mongoURI string
	database string
	host     string
	timeout  time.Duration
}

// NewSeedCommand creates and returns the seed subcommand
func NewSeedCommand() *cobra.Command {
	opts := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed <definition-file>...",
		Short: "Import survey definitions into MongoDB",
		Long: `Validate definition files and store them in MongoDB, replacing any
definition with the same id. Surveys are owned by the host whose username
is given with --host, defaulting to the configured HOST_USERNAME.

Connection settings come from the service configuration (CONFIG_FILE and
environment) unless overridden by flags.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.mongoURI == "" {
				opts.mongoURI = cfg.Mongo.URI
			}
			if opts.database == "" {
				opts.database = cfg.Mongo.Database
			}
			if opts.host == "" {
				opts.host = cfg.Auth.HostUsername
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.mongoURI))
			if err != nil {
				return fmt.Errorf("failed to connect to MongoDB: %w", err)
			}
			defer client.Disconnect(context.Background())

			db := client.Database(opts.database)
			if err := repository.EnsureIndexes(ctx, db); err != nil {
				return err
			}
			return seed(ctx, repository.NewSurveyRepo(db), service.HostIDFor(opts.host), args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", "", "MongoDB connection string")
	cmd.Flags().StringVar(&opts.database, "database", "", "MongoDB database name")
	cmd.Flags().StringVar(&opts.host, "host", "", "username of the owning host")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout")

	return cmd
}

func seed(ctx context.Context, repo repository.SurveyRepo, hostID string, paths []string, out io.Writer) error {
	for _, path := range paths {
		survey, err := loadDefinition(path)
		if err != nil {
			return err
		}
		if err := skiplogic.ValidateDefinition(survey); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		survey.HostID = hostID

		action, err := upsert(ctx, repo, survey)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(out, "%s survey %s (%q) from %s\n", action, survey.ID, survey.Metadata.Title, path)
	}
	return nil
}

func upsert(ctx context.Context, repo repository.SurveyRepo, survey *model.Survey) (string, error) {
	existing, err := repo.GetByID(ctx, survey.ID)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "created", repo.Create(ctx, survey)
	}
	matched, err := repo.Update(ctx, survey)
	if err != nil {
		return "", err
	}
	if !matched {
		return "", fmt.Errorf("survey %s is owned by %s", survey.ID, existing.HostID)
	}
	return "updated", nil
}
