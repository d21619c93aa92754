package main

import (
	"fmt"
	"io"
	"os"

	"github.com/lox/hintquiz/internal/catalog"
)

// CatalogCmd groups catalog subcommands.
type CatalogCmd struct {
	Check CatalogCheckCmd `cmd:"" help:"Validate a catalog file and report data issues"`
}

// CatalogCheckCmd loads a catalog and prints a summary plus any degenerate
// data. With --strict, issues fail the command.
type CatalogCheckCmd struct {
	Path   string `arg:"" optional:"" help:"Catalog file, CSV or HCL (defaults to the built-in catalog)"`
	Strict bool   `help:"Exit non-zero when issues are found"`
}

func (c *CatalogCheckCmd) Run() error {
	return checkCatalog(os.Stdout, c.Path, c.Strict)
}

func checkCatalog(w io.Writer, path string, strict bool) error {
	cat, err := catalog.NewLoader(path).Get()
	if err != nil {
		return err
	}

	source := path
	if source == "" {
		source = "built-in"
	}
	fmt.Fprintf(w, "Catalog: %s\n", source)
	fmt.Fprintf(w, "Items: %d\n", len(cat.Items()))
	fmt.Fprintf(w, "Hints: %d\n", cat.Len())

	issues := cat.Audit()
	if len(issues) == 0 {
		fmt.Fprintln(w, "No issues found")
		return nil
	}

	fmt.Fprintf(w, "Issues: %d\n", len(issues))
	for _, issue := range issues {
		fmt.Fprintf(w, "  %s\n", issue)
	}
	if strict {
		return fmt.Errorf("catalog has %d issues", len(issues))
	}
	return nil
}
