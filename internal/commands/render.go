package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ums-math/ums-site/internal/app"
	"go.uber.org/zap"
)

// RenderOptions are the flags of the render subcommand
type RenderOptions struct {
	Semester   string // "" = latest
	Leadership string // year or "previous", "" = configured year
	Workshop   string // "" = current workshop
	Out        string // "" or "-" = stdout
}

// Render writes the full front page without starting a server.
func Render(ctx context.Context, cfg *app.Config, opts RenderOptions, stdout io.Writer, log *zap.Logger) error {
	if opts.Semester != "" {
		if _, _, err := app.ParseSemesterKey(opts.Semester); err != nil {
			return err
		}
	}

	src, err := app.NewSourceFromConfig(cfg, log)
	if err != nil {
		return err
	}
	site := app.NewSite(cfg, src, log)
	site.ReloadCatalog(ctx)

	req := app.PageRequest{Semester: opts.Semester, WorkshopYear: opts.Workshop}
	if opts.Leadership == "previous" {
		req.PreviousLeaders = true
	} else {
		req.LeadershipYear = opts.Leadership
	}

	if opts.Out == "" || opts.Out == "-" {
		if err := site.RenderPage(ctx, stdout, req); err != nil {
			return fmt.Errorf("failed to render page: %w", err)
		}
	} else if err := renderToFile(ctx, site, req, opts.Out); err != nil {
		return err
	}
	log.Info("Page rendered", zap.String("semester", opts.Semester), zap.String("out", opts.Out))
	return nil
}

func renderToFile(ctx context.Context, site *app.Site, req app.PageRequest, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := site.RenderPage(ctx, f, req); err != nil {
		f.Close()
		return fmt.Errorf("failed to render page: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
