package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parona-source/pkgcheck/pkg/config"
	"github.com/parona-source/pkgcheck/pkg/depgraph"
	"github.com/parona-source/pkgcheck/pkg/ebuild"
	"github.com/parona-source/pkgcheck/pkg/repo"
)

// graphCommand creates the graph command for rendering dependency diagrams.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		configPath string
		format     string
		output     string
		attrsStr   string
		detailed   bool
	)

	cmd := &cobra.Command{
		Use:   "graph ATOM",
		Short: "Render a package's dependency tree as a diagram",
		Long: `Render a package's dependency tree as a diagram.

The atom selects the package; when several versions match, the newest is
used. Atoms with no repository match are drawn red, blockers grey, and
virtuals blue.

Formats: dot (Graphviz source), svg, png.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return c.runGraph(cfg, args[0], format, output, attrsStr, detailed)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pkgcheck.toml", "path to the scan configuration")
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: dot, svg, png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout for dot, <pkg>.<format> otherwise)")
	cmd.Flags().StringVar(&attrsStr, "attrs", "", "dependency attributes to include (comma-separated, default all)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label resolved atoms with their matching versions")

	return cmd
}

func (c *CLI) runGraph(cfg *config.Config, rawAtom, format, output, attrsStr string, detailed bool) error {
	atom, err := ebuild.ParseAtom(rawAtom)
	if err != nil {
		return err
	}

	repository, err := repo.Load(cfg.Repo)
	if err != nil {
		return err
	}
	matches := repository.Search(atom)
	if len(matches) == 0 {
		return fmt.Errorf("no package matches %s", atom)
	}
	pkg := matches[len(matches)-1]
	c.Logger.Debug("rendering dependency graph", "package", pkg.CPV())

	opts := depgraph.Options{Detailed: detailed}
	if attrsStr != "" {
		opts.Attrs = strings.Split(attrsStr, ",")
	}
	dot, err := depgraph.ToDOT(pkg, repository, opts)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case "dot":
		data = []byte(dot)
	case "svg":
		data, err = depgraph.RenderSVG(dot)
	case "png":
		data, err = depgraph.RenderPNG(dot)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return err
	}

	if output == "" {
		if format == "dot" {
			_, err := os.Stdout.Write(data)
			return err
		}
		output = strings.ReplaceAll(pkg.CPV(), "/", "_") + "." + format
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}
	printSuccess("Rendered %s", pkg.CPV())
	printFile(output)
	return nil
}
