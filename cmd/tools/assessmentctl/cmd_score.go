package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"assessment-pipeline/internal/models"
	scoreanswers "assessment-pipeline/internal/workers/assessment/score-answers"
	"assessment-pipeline/pkg/catalog"
)

type scoreOptions struct {
	file        string
	catalogPath string
	asJSON      bool
}

func newScoreCmd() *cobra.Command {
	opts := &scoreOptions{}
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an answer file against the question catalog",
		Long: `Score reads answers as {"answers":{"0":"A",...}} or a flat {"0":"A",...} map
and prints the percentage, maturity tier and per-question breakdown.
Use "-" as the file to read from stdin.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "answers JSON file (required)")
	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "question catalog file (default: built-in)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runScore(cmd *cobra.Command, opts *scoreOptions) error {
	cat, err := catalog.LoadCatalog(opts.catalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	var data []byte
	if opts.file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(opts.file)
	}
	if err != nil {
		return fmt.Errorf("read answers: %w", err)
	}

	answers, err := decodeAnswers(data)
	if err != nil {
		return err
	}
	for _, i := range answers.Indexes() {
		if i < 0 || i >= cat.Len() {
			return fmt.Errorf("question index %d must be between 0 and %d", i, cat.Len()-1)
		}
		if !answers[i].Valid() {
			return fmt.Errorf("answer %q for question %d must be A, B or C", answers[i], i)
		}
	}

	result := scoreanswers.Evaluate(answers, cat.Len())
	out := cmd.OutOrStdout()

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(out, "Score:  %d%% (%s, %s)\n", result.Percentage, result.MaturityTier, result.Band)
	fmt.Fprintf(out, "        %s\n\n", result.Description)
	fmt.Fprintln(out, renderTable(
		[]string{"Status", "Count"},
		[][]string{
			{models.AnswerFull.Label(), strconv.Itoa(result.Breakdown.Full)},
			{models.AnswerPartial.Label(), strconv.Itoa(result.Breakdown.Partial)},
			{models.AnswerNone.Label(), strconv.Itoa(result.Breakdown.None)},
			{"Total", strconv.Itoa(result.Breakdown.Total)},
		},
		[]columnAlignment{alignLeft, alignRight},
	))

	rows := make([][]string, 0, cat.Len())
	for i := 0; i < cat.Len(); i++ {
		q, _ := cat.Question(i)
		rows = append(rows, []string{strconv.Itoa(i), q.Theme, q.Text, string(answers.Get(i))})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Theme", "Question", "Answer"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))
	return nil
}

// decodeAnswers accepts either a submission-shaped document or a bare answer map.
func decodeAnswers(data []byte) (models.AnswerSet, error) {
	var wrapped struct {
		Answers models.AnswerSet `json:"answers"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Answers) > 0 {
		return wrapped.Answers, nil
	}

	var flat models.AnswerSet
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("decode answers: no answers found")
	}
	return flat, nil
}
