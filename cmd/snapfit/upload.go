package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shamspias/snapfit"
)

func newUploadCmd(a *app) *cobra.Command {
	var uploadOriginal bool

	cmd := &cobra.Command{
		Use:   "upload <input>",
		Short: "Recompress an image and post it as multipart form data",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return &usageError{errors.New("upload requires exactly one input")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Upload.URL == "" {
				return &usageError{errors.New("upload requires --url or upload.url in config")}
			}

			p := &snapfit.Pipeline{
				Compressor: a.compressor(),
				Target:     a.target,
				Uploader: &snapfit.HTTPUploader{
					URL:       a.cfg.Upload.URL,
					FieldName: a.cfg.Upload.Field,
				},
				Logger:                      a.logger,
				UploadOriginalOnDecodeError: uploadOriginal,
			}
			res, err := p.Run(cmd.Context(), snapfit.FileSource{Path: args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s → %s\n", res, a.cfg.Upload.URL)
			return nil
		},
	}

	cmd.Flags().String("url", "", "endpoint receiving the multipart form")
	cmd.Flags().String("field", "", "form field name of the file part (default \"file\")")
	cmd.Flags().BoolVar(&uploadOriginal, "upload-original", false, "upload the source unchanged if it cannot be decoded")
	_ = a.v.BindPFlag("upload.url", cmd.Flags().Lookup("url"))
	_ = a.v.BindPFlag("upload.field", cmd.Flags().Lookup("field"))
	return cmd
}
