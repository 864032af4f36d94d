package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Admissions/internal/ranking"
	"github.com/MikeSquared-Agency/Admissions/internal/scoring"
	"github.com/MikeSquared-Agency/Admissions/internal/spreadsheet"
)

type rankOptions struct {
	criteriaPath string
	filePath     string
	sheet        string
	maxRows      int
	outPath      string
	cutoff       ranking.Cutoff
}

func newRankCmd() *cobra.Command {
	var opts rankOptions
	c := &cobra.Command{
		Use:   "rank",
		Short: "Rank the candidates of a spreadsheet without a database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := runRank(opts)
			if err != nil {
				return err
			}
			printRanking(cmd.OutOrStdout(), r)
			if len(r.MissingScores) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d missing scores were ranked as 0\n", len(r.MissingScores))
			}
			if opts.outPath != "" {
				if err := writeRankingFile(opts.outPath, r); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "wrote", opts.outPath)
			}
			return nil
		},
	}
	c.Flags().StringVar(&opts.criteriaPath, "criteria", "", "period YAML with weights or criteria (required)")
	c.Flags().StringVar(&opts.filePath, "file", "", "candidate workbook (.xlsx, required)")
	c.Flags().StringVar(&opts.sheet, "sheet", "", "sheet to read (default first sheet)")
	c.Flags().IntVar(&opts.maxRows, "max-rows", 5000, "maximum data rows")
	c.Flags().StringVar(&opts.outPath, "out", "", "write the ranking workbook here")
	c.Flags().IntVar(&opts.cutoff.TopN, "top-n", 70, "number of candidates that pass (0 disables)")
	c.Flags().Float64Var(&opts.cutoff.Threshold, "threshold", 0, "minimum preference to pass (0 disables)")
	_ = c.MarkFlagRequired("criteria")
	_ = c.MarkFlagRequired("file")
	return c
}

func runRank(opts rankOptions) (*ranking.Ranking, error) {
	if err := opts.cutoff.Validate(); err != nil {
		return nil, err
	}
	pf, err := loadPeriodFile(opts.criteriaPath)
	if err != nil {
		return nil, err
	}
	criteria, err := pf.criteria()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(opts.filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	candidates, err := spreadsheet.ReadCandidates(f, criteria, spreadsheet.Options{
		Sheet:   opts.sheet,
		MaxRows: opts.maxRows,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.filePath, err)
	}
	for _, c := range candidates {
		c.ID = uuid.New()
	}

	engCriteria := ranking.ToEngineCriteria(criteria)
	engCandidates := ranking.ToEngineCandidates(candidates)
	eval, err := scoring.Evaluate(engCriteria, engCandidates)
	if err != nil {
		return nil, err
	}
	frontier := scoring.ComputeFrontier(engCriteria, engCandidates)
	return ranking.Apply(uuid.Nil, pf.Name, time.Now().UTC(), eval, frontier, opts.cutoff), nil
}

func printRanking(w io.Writer, r *ranking.Ranking) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tPREFERENCE\tD+\tD-\tSTATUS")
	for _, e := range r.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.Rank, e.Name,
			spreadsheet.FormatFixed(e.Preference),
			spreadsheet.FormatFixed(e.DPlus),
			spreadsheet.FormatFixed(e.DMinus),
			ranking.StatusLabel(e.Pass),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d candidates, %d pass\n", len(r.Results), r.PassCount)
}

func writeRankingFile(path string, r *ranking.Ranking) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := spreadsheet.WriteRanking(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
