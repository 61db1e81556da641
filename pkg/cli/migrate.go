package cli

import (
	"context"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/cli/config"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/repository/firestore"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/logging"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var projectID string
	var databaseID string
	var collectionPrefix string
	var dimension int
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (required)",
				Required:    true,
				Sources:     cli.EnvVars("ELSOL_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Value:       "(default)",
				Sources:     cli.EnvVars("ELSOL_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "firestore-collection-prefix",
				Usage:       "Prefix of Firestore collection names",
				Sources:     cli.EnvVars("ELSOL_FIRESTORE_COLLECTION_PREFIX"),
				Destination: &collectionPrefix,
			},
			&cli.IntFlag{
				Name:        "embedding-dimension",
				Usage:       "Dimension of embedding vectors",
				Value:       config.DefaultEmbeddingDimension,
				Sources:     cli.EnvVars("ELSOL_EMBEDDING_DIMENSION"),
				Destination: &dimension,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview changes without applying",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			logger.Info("Migrate configuration",
				"projectID", projectID,
				"databaseID", databaseID,
				"collectionPrefix", collectionPrefix,
				"dimension", dimension,
				"dryRun", dryRun)

			indexConfig := getIndexConfig(collectionPrefix, dimension)

			client, err := fireconf.New(ctx, projectID, databaseID, indexConfig,
				fireconf.WithLogger(logger),
				fireconf.WithDryRun(dryRun),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client")
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Error("failed to close fireconf client", "error", err.Error())
				}
			}()

			if dryRun {
				logger.Info("Dry run mode - previewing changes")
			} else {
				logger.Info("Applying migrations")
			}
			if err := client.Migrate(ctx); err != nil {
				return goerr.Wrap(err, "failed to apply migrations", goerr.V("dry_run", dryRun))
			}
			if !dryRun {
				logger.Info("Migrations applied successfully")
			}

			return nil
		},
	}
}

// getIndexConfig returns the vector indexes FindNearest needs: one per
// combination of pre-filter fields, each led by the embedding model equality.
func getIndexConfig(prefix string, dimension int) *fireconf.Config {
	n := len(firestore.FilterFields)
	indexes := make([]fireconf.Index, 0, 1<<n)

	for mask := 0; mask < 1<<n; mask++ {
		fields := []fireconf.IndexField{
			{Path: firestore.EmbeddingModelField, Order: fireconf.OrderAscending},
		}
		for i, name := range firestore.FilterFields {
			if mask&(1<<i) != 0 {
				fields = append(fields, fireconf.IndexField{Path: name, Order: fireconf.OrderAscending})
			}
		}
		fields = append(fields, fireconf.IndexField{
			Path:   firestore.EmbeddingField,
			Vector: &fireconf.VectorConfig{Dimension: dimension},
		})
		indexes = append(indexes, fireconf.Index{Fields: fields})
	}

	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name:    firestore.CollectionName(prefix, firestore.CollectionChunks),
				Indexes: indexes,
			},
		},
	}
}
