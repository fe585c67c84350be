package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"readmegen/internal/config"
	"readmegen/internal/ingest"
	"readmegen/internal/models"
	"readmegen/internal/prompt"
	"readmegen/internal/render"
	"readmegen/internal/service/assistant"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [files...]",
		Short: "Generate a README from a description and local files",
		Long: `Generate a README from a description and local files.

Local files go through the same allow-list and per-file size limit as web
uploads (the "upload" config section). Files that fail either check are
skipped with a warning. Pass --no-limits to send every file as given.`,
		Args:  cobra.ArbitraryArgs,
		RunE:  runGenerate,
	}
	cmd.Flags().StringP("description", "d", "", "project description (required)")
	cmd.Flags().StringP("output", "o", "README.md", "output path, - for stdout")
	cmd.Flags().Bool("prompt-only", false, "print the composed prompt and exit without calling the model")
	cmd.Flags().Bool("clean", false, "strip code fences wrapping the generated Markdown")
	cmd.Flags().Bool("no-limits", false, "skip the upload allow-list and size limit for local files")
	return cmd
}

func fileSources(paths []string) ([]ingest.Source, error) {
	sources := make([]ingest.Source, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", path)
		}
		sources = append(sources, ingest.Source{
			Name: filepath.Base(path),
			Size: info.Size(),
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}
	return sources, nil
}

// filterSources applies the upload allow-list and per-file size limit and
// returns the accepted sources with a reason for every skipped one.
func filterSources(sources []ingest.Source, upload config.UploadConfig) ([]ingest.Source, []string) {
	allow := ingest.NewAllowList(upload.AllowedExtensions)
	accepted := make([]ingest.Source, 0, len(sources))
	var skipped []string
	for _, src := range sources {
		switch {
		case !allow.Allows(src.Name):
			skipped = append(skipped, src.Name+": file type not allowed")
		case upload.MaxUploadBytes > 0 && src.Size > upload.MaxUploadBytes:
			skipped = append(skipped, fmt.Sprintf("%s: file exceeds %d bytes", src.Name, upload.MaxUploadBytes))
		default:
			accepted = append(accepted, src)
		}
	}
	return accepted, skipped
}

func runGenerate(cmd *cobra.Command, args []string) error {
	description, _ := cmd.Flags().GetString("description")
	output, _ := cmd.Flags().GetString("output")
	promptOnly, _ := cmd.Flags().GetBool("prompt-only")
	clean, _ := cmd.Flags().GetBool("clean")
	noLimits, _ := cmd.Flags().GetBool("no-limits")
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sources, err := fileSources(args)
	if err != nil {
		return err
	}
	if !noLimits {
		var skipped []string
		sources, skipped = filterSources(sources, cfg.Upload)
		for _, reason := range skipped {
			printWarning(stderr, "Skipped %s", reason)
		}
	}
	files := ingest.Ingest(sources)
	req, err := prompt.NewRequest(description, files)
	if err != nil {
		printWarning(stderr, "Please enter a project description first (--description)")
		return err
	}
	if promptOnly {
		_, err := io.WriteString(stdout, req.Prompt())
		return err
	}

	gen, err := newGenerator(cmd.Context(), cfg)
	if err != nil {
		printError(stderr, "%v", err)
		return err
	}

	fmt.Fprintln(stderr, styleTitle.Render("readmegen"))
	printStat(stderr, "Files Uploaded", files.Len())
	printStat(stderr, "Model", cfg.Generator.Provider+"/"+gen.Model())

	res := gen.Generate(cmd.Context(), req.Prompt())
	if !res.OK() {
		msg := assistant.FailureMessage(res.Err)
		printError(stderr, "%s", msg)
		return errors.New(msg)
	}
	text := res.Text
	if clean {
		text = render.StripFences(text)
	}

	if output == "-" {
		if _, err := io.WriteString(stdout, text); err != nil {
			return err
		}
	} else {
		if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}
		printSuccess(stderr, "README generated successfully: %s", output)
	}

	state := &models.SessionState{Files: files, Output: text}
	stats := models.ComputeStats(state)
	printStat(stderr, "Lines", stats.Lines)
	printStat(stderr, "Words", stats.Words)
	printStat(stderr, "Characters", stats.Characters)
	return nil
}
