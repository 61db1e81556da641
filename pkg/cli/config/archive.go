package config

import (
	"context"
	"log/slog"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/archive"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Archive selects where raw uploads are kept. A bucket takes precedence
// over a directory; neither disables archiving.
type Archive struct {
	dir       string
	gcsBucket string
	gcsPrefix string
}

func (x *Archive) Flags() []cli.Flag {
	category := "Archive"
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-dir",
			Category:    category,
			Usage:       "Directory to keep raw uploads in",
			Sources:     cli.EnvVars("ELSOL_ARCHIVE_DIR"),
			Destination: &x.dir,
		},
		&cli.StringFlag{
			Name:        "archive-gcs-bucket",
			Category:    category,
			Usage:       "Cloud Storage bucket to keep raw uploads in",
			Sources:     cli.EnvVars("ELSOL_ARCHIVE_GCS_BUCKET"),
			Destination: &x.gcsBucket,
		},
		&cli.StringFlag{
			Name:        "archive-gcs-prefix",
			Category:    category,
			Usage:       "Object name prefix in the bucket",
			Value:       "uploads",
			Sources:     cli.EnvVars("ELSOL_ARCHIVE_GCS_PREFIX"),
			Destination: &x.gcsPrefix,
		},
	}
}

func (x *Archive) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("dir", x.dir),
		slog.String("gcs_bucket", x.gcsBucket),
		slog.String("gcs_prefix", x.gcsPrefix),
	}
}

// Configure returns the archive, or nil when archiving is disabled. The
// returned function releases the storage client.
func (x *Archive) Configure(ctx context.Context) (archive.Service, func(), error) {
	switch {
	case x.gcsBucket != "":
		gcs, err := archive.NewGCS(ctx, x.gcsBucket, x.gcsPrefix)
		if err != nil {
			return nil, func() {}, goerr.Wrap(err, "failed to configure GCS archive")
		}
		logging.Default().Info("Archiving uploads to Cloud Storage", "bucket", x.gcsBucket, "prefix", x.gcsPrefix)
		return gcs, func() { _ = gcs.Close() }, nil

	case x.dir != "":
		local, err := archive.NewLocal(x.dir)
		if err != nil {
			return nil, func() {}, goerr.Wrap(err, "failed to configure local archive")
		}
		logging.Default().Info("Archiving uploads to local directory", "dir", x.dir)
		return local, func() {}, nil

	default:
		return nil, func() {}, nil
	}
}
