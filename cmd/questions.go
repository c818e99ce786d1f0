package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sourcelens/audit-cli/internal/catalog"
	"github.com/sourcelens/audit-cli/internal/model"
	"github.com/sourcelens/audit-cli/internal/pipeline"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Inspect the universal question catalog",
	Long:  "Commands for listing, filtering, and deriving evaluation questions.",
}

// -- questions list --

var questionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List universal questions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		category, _ := cmd.Flags().GetString("category")
		difficulty, _ := cmd.Flags().GetString("difficulty")
		asJSON, _ := cmd.Flags().GetBool("json")

		questions, err := filterQuestions(catalog.Default(), category, difficulty)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(questions)
		}

		if len(questions) == 0 {
			fmt.Fprintln(os.Stderr, "No questions match.")
			return nil
		}
		formatQuestionsList(os.Stdout, questions)
		return nil
	},
}

// -- questions show --

var questionsShowCmd = &cobra.Command{
	Use:   "show <question-id>",
	Short: "Show one universal question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, ok := catalog.Default().ByID(args[0])
		if !ok {
			return eris.Errorf("unknown question id %q", args[0])
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(q)
	},
}

// -- questions stats --

var questionsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		stats := catalog.Default().Stats()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "Catalog version:\t%s\n", stats.Version)
		_, _ = fmt.Fprintf(w, "Total questions:\t%d\n", stats.Total)
		_, _ = fmt.Fprintf(w, "Total weight:\t%.1f\n", stats.TotalWeight)
		for _, cat := range model.Categories() {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", cat, stats.ByCategory[cat])
		}
		for _, d := range model.Difficulties() {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", d, stats.ByDifficulty[d])
		}
		return w.Flush()
	},
}

// -- questions generate --

var questionsGenerateCmd = &cobra.Command{
	Use:   "generate <snapshot.yaml>",
	Short: "Derive site-specific questions from a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := pipeline.LoadSnapshot(args[0])
		if err != nil {
			return err
		}

		siteCtx := model.SiteContext{
			CompanyName: snap.CompanyName,
			Domain:      snap.Domain,
		}
		for _, page := range snap.Pages {
			siteCtx.PageTexts = append(siteCtx.PageTexts, page.MainContent)
			if siteCtx.Title == "" {
				siteCtx.Title = page.Title
			}
			if desc, ok := page.Metadata["description"]; ok && siteCtx.Description == "" {
				siteCtx.Description = desc
			}
			if st, ok := page.Metadata["schema_type"]; ok {
				siteCtx.SchemaTypes = append(siteCtx.SchemaTypes, st)
			}
			if siteCtx.Headings == nil {
				siteCtx.Headings = page.Headings
			}
		}

		opts := catalog.DeriveOptions{
			MaxQuestions:        cfg.Catalog.MaxQuestions,
			MinKeywordFrequency: cfg.Catalog.MinKeywordFrequency,
		}
		set, err := catalog.Default().GenerateForSite(siteCtx, opts)
		if err != nil {
			return eris.Wrap(err, "questions generate")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(set)
	},
}

func init() {
	questionsListCmd.Flags().String("category", "", "filter by category (identity, offerings, contact, trust, differentiation)")
	questionsListCmd.Flags().String("difficulty", "", "filter by difficulty (easy, medium, hard)")
	questionsListCmd.Flags().Bool("json", false, "emit JSON instead of a table")

	questionsCmd.AddCommand(questionsListCmd)
	questionsCmd.AddCommand(questionsShowCmd)
	questionsCmd.AddCommand(questionsStatsCmd)
	questionsCmd.AddCommand(questionsGenerateCmd)
	rootCmd.AddCommand(questionsCmd)
}

// filterQuestions applies optional category and difficulty filters over the
// universal set.
func filterQuestions(cat *catalog.Catalog, category, difficulty string) ([]model.Question, error) {
	questions := cat.Universal()
	if category != "" {
		if !validCategory(category) {
			return nil, eris.Errorf("unknown category %q", category)
		}
		questions = cat.ByCategory(model.Category(category))
	}
	if difficulty != "" {
		if !validDifficulty(difficulty) {
			return nil, eris.Errorf("unknown difficulty %q", difficulty)
		}
		filtered := questions[:0:0]
		for _, q := range questions {
			if q.Difficulty == model.Difficulty(difficulty) {
				filtered = append(filtered, q)
			}
		}
		questions = filtered
	}
	return questions, nil
}

func validCategory(s string) bool {
	for _, c := range model.Categories() {
		if string(c) == s {
			return true
		}
	}
	return false
}

func validDifficulty(s string) bool {
	for _, d := range model.Difficulties() {
		if string(d) == s {
			return true
		}
	}
	return false
}

// formatQuestionsList writes a tabular question listing to w.
func formatQuestionsList(out io.Writer, questions []model.Question) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCATEGORY\tDIFFICULTY\tWEIGHT\tTEMPLATE")
	_, _ = fmt.Fprintln(w, "--\t--------\t----------\t------\t--------")
	for _, q := range questions {
		template := q.Template
		if len(template) > 60 {
			template = template[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s\n",
			q.ID, q.Category, q.Difficulty, q.Weight, template)
	}
	_ = w.Flush()
}
