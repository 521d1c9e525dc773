package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/tui/styles"
)

// Output formats for list
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Format string
	Match  string
	Limit  int
	Offset int
}

// listRow is one movie as printed by list
type listRow struct {
	Position    int     `json:"position" yaml:"position"`
	ID          int64   `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Year        int     `json:"year,omitempty" yaml:"year,omitempty"`
	Rating      float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
	ReleaseDate string  `json:"release_date,omitempty" yaml:"release_date,omitempty"`
	Overview    string  `json:"overview,omitempty" yaml:"overview,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the cached movies",
		Long: `Print the cached movies in list order. Reads the local cache only.

Example:
  marquee list --limit 20
  marquee list --match "dune" --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch opts.Format {
			case FormatTable, FormatJSON, FormatYAML:
			default:
				return fmt.Errorf("invalid format %q: must be one of table, json, yaml", opts.Format)
			}

			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			var movies []domain.StoredMovie
			if opts.Match != "" {
				movies, err = a.queries.Search(cmd.Context(), opts.Match)
				if err == nil && opts.Limit > 0 && len(movies) > opts.Limit {
					movies = movies[:opts.Limit]
				}
			} else if opts.Limit > 0 {
				movies, err = a.queries.Page(cmd.Context(), opts.Offset, opts.Limit)
			} else {
				movies, err = a.queries.All(cmd.Context())
			}
			if err != nil {
				return err
			}

			return writeMovies(opts.Out, opts.Format, toRows(movies, opts.Match == "", opts.Offset))
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "o", FormatTable, "output format (table|json|yaml)")
	cmd.Flags().StringVarP(&opts.Match, "match", "m", "", "fuzzy match titles")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum movies to print (0 = all)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "skip this many movies")

	return cmd
}

// toRows numbers movies from 1. Search results are ranked, so their
// position is the rank rather than the list position.
func toRows(movies []domain.StoredMovie, listOrder bool, offset int) []listRow {
	if !listOrder {
		offset = 0
	}
	rows := make([]listRow, len(movies))
	for i, m := range movies {
		row := listRow{
			Position: offset + i + 1,
			ID:       m.ID,
			Title:    m.Title,
			Year:     m.Year(),
			Rating:   m.VoteAverage,
			Overview: m.Overview,
		}
		if !m.ReleaseDate.IsZero() {
			row.ReleaseDate = m.ReleaseDate.Format("2006-01-02")
		}
		rows[i] = row
	}
	return rows
}

func writeMovies(w io.Writer, format string, rows []listRow) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintln(w, renderTable(rows))
		return err
	}
}

func renderTable(rows []listRow) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.TableBorderStyle).
		Headers("#", "TITLE", "YEAR", "RATING").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.TableHeaderStyle
			}
			return styles.TableCellStyle
		})

	for _, r := range rows {
		year, rating := "", ""
		if r.Year > 0 {
			year = strconv.Itoa(r.Year)
		}
		if r.Rating > 0 {
			rating = strconv.FormatFloat(r.Rating, 'f', 1, 64)
		}
		t.Row(strconv.Itoa(r.Position), r.Title, year, rating)
	}
	return t.Render()
}
