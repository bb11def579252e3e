package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/riskfeed/internal/model"
	"github.com/ppiankov/riskfeed/internal/pipeline"
)

var (
	scoreLines bool
	scoreLabel bool
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score [text...]",
	Short: "Score a text for violence and hate risk",
	Long: `Score prints the risk verdict for a text as JSON: the score in [0,1],
the violence type and the explanation of the signals behind it.

Without arguments the text is read from stdin. With --lines every stdin
line is scored separately and printed as one JSON object per line.

With --label the text is run through the full labeler, adding profanity
detection and, when configured, the moderation cross-check.

Example:
  riskfeed score "we should kill them all"
  echo "they are subhuman vermin" | riskfeed score
  riskfeed score --lines < comments.txt`,
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().BoolVar(&scoreLines, "lines", false, "score each stdin line separately (JSON lines output)")
	scoreCmd.Flags().BoolVar(&scoreLabel, "label", false, "run the full labeler instead of the scorer alone")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	components, err := pipeline.Build(cfg, logger)
	if err != nil {
		return err
	}

	evaluate := func(text string) any {
		if scoreLabel {
			return components.Labeler.Label(cmd.Context(), model.Post{Title: text})
		}
		return components.Scorer.ScoreText(text)
	}

	out := cmd.OutOrStdout()
	if scoreLines && len(args) == 0 {
		return scoreEachLine(cmd.InOrStdin(), out, evaluate)
	}

	text, err := inputText(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(evaluate(text))
}

// inputText joins args, or reads all of in when there are none
func inputText(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// scoreEachLine writes one JSON result per non-empty input line
func scoreEachLine(in io.Reader, out io.Writer, evaluate func(string) any) error {
	enc := json.NewEncoder(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := enc.Encode(evaluate(line)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	return nil
}
