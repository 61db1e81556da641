package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/transcribe"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdIngest() *cli.Command {
	var file string
	var text string
	var originType string
	var rt runtimeConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Audio or document file to index",
			Destination: &file,
		},
		&cli.StringFlag{
			Name:        "text",
			Usage:       "Text to index",
			Destination: &text,
		},
		&cli.StringFlag{
			Name:        "origin-type",
			Usage:       "Origin of --text [audio|document]",
			Value:       string(model.OriginDocument),
			Destination: &originType,
		},
	}
	flags = append(flags, rt.Flags()...)
	flags = append(flags, rt.uploadFlags()...)

	return &cli.Command{
		Name:    "ingest",
		Aliases: []string{"i"},
		Usage:   "Index a conversation transcript or clinical document",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if (file == "") == (text == "") {
				return goerr.New("exactly one of --file or --text is required")
			}

			uc, cleanup, err := rt.build(ctx, c)
			if err != nil {
				return err
			}
			defer cleanup()

			var result *usecase.IngestResult
			if file != "" {
				result, err = ingestFile(ctx, uc, file)
			} else {
				result, err = uc.Ingest.Ingest(ctx, usecase.IngestInput{
					Text:       text,
					OriginType: model.OriginType(originType),
				})
			}
			if err != nil {
				return err
			}

			printIngestResult(result)
			return nil
		},
	}
}

// ingestFile routes audio to transcription and everything else to document extraction
func ingestFile(ctx context.Context, uc *usecase.UseCases, path string) (*usecase.IngestResult, error) {
	// #nosec G304 - path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read file", goerr.V("path", path))
	}

	input := usecase.UploadInput{
		Filename: filepath.Base(path),
		Data:     data,
	}
	if transcribe.SupportedExtensions[strings.ToLower(filepath.Ext(path))] {
		return uc.Upload.UploadAudio(ctx, input)
	}
	return uc.Upload.UploadDocument(ctx, input)
}

func printIngestResult(result *usecase.IngestResult) {
	label := color.New(color.FgCyan, color.Bold)
	md := result.Metadata

	_, _ = label.Print("source_id:      ")
	_, _ = color.New(color.FgGreen).Println(result.SourceID)
	_, _ = label.Print("chunks_indexed: ")
	_, _ = color.New(color.FgWhite).Println(result.ChunksIndexed)
	_, _ = label.Print("patient_name:   ")
	_, _ = color.New(color.FgWhite).Println(md.PatientName)
	_, _ = label.Print("date:           ")
	_, _ = color.New(color.FgWhite).Println(md.Date)
	if md.Age != nil {
		_, _ = label.Print("age:            ")
		_, _ = color.New(color.FgWhite).Println(*md.Age)
	}
	if len(md.Symptoms) > 0 {
		_, _ = label.Print("symptoms:       ")
		_, _ = color.New(color.FgWhite).Println(strings.Join(md.Symptoms, ", "))
	}
}
